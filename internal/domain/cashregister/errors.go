package cashregister

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/shared"
)

// Error codes of the cash register context
const (
	CodeAlreadyClosed     = "ALREADY_CLOSED"
	CodeRegisterClosed    = "REGISTER_CLOSED"
	CodeConsistency       = "CONSISTENCY_ERROR"
	CodeDuplicateRegister = "DUPLICATE_REGISTER"
	CodeMalformedRow      = "MALFORMED_ROW"
)

var (
	ErrAlreadyClosed     = shared.NewDomainError(CodeAlreadyClosed, "Cash register is already closed")
	ErrRegisterClosed    = shared.NewDomainError(CodeRegisterClosed, "Cash register is closed and cannot accept movements")
	ErrConsistency       = shared.NewDomainError(CodeConsistency, "Movement was recorded but the register balance was not updated")
	ErrDuplicateRegister = shared.NewDomainError(CodeDuplicateRegister, "Cash register already exists")
	ErrMalformedRow      = shared.NewDomainError(CodeMalformedRow, "Stored row cannot be mapped to a register")
)

// NewValidationError builds a VALIDATION_ERROR with message
func NewValidationError(message string) *shared.DomainError {
	return shared.NewValidationError(message)
}

// ConsistencyError reports that a movement row was persisted but the balance
// update that should follow it failed. The ledger is left out of balance until
// the register is reconciled.
type ConsistencyError struct {
	RegisterID uuid.UUID
	MovementID uuid.UUID
	Cause      error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("movement %s recorded but balance of register %s not updated: %v",
		e.MovementID, e.RegisterID, e.Cause)
}

// Unwrap exposes ErrConsistency and the cause
func (e *ConsistencyError) Unwrap() []error {
	return []error{ErrConsistency, e.Cause}
}
