package cashregister

import (
	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
)

// ListRegistersQuery selects registers from the cached list
type ListRegistersQuery struct {
	ForceRefresh bool
	RestaurantID *uuid.UUID
	Status       *cashregister.RegisterStatus
}

// RegisterListing is the result of ListRegisters. A cache hit on a full
// fetch reports FetchSourceCache; a hit on an emergency fetch keeps
// FetchSourceEmergency so it still reads as degraded.
type RegisterListing struct {
	Registers []*cashregister.Register
	Source    FetchSource
	Cached    bool
}

// Degraded reports whether the list came from a fallback query
func (l *RegisterListing) Degraded() bool {
	return l.Source == FetchSourceEmergency || l.Source == FetchSourceEmpty
}

// OpenRegisterCommand opens a new till session
type OpenRegisterCommand struct {
	Name           string
	InitialAmount  decimal.Decimal
	RestaurantID   uuid.UUID
	Opening        *cashregister.OpeningDetails
	IdempotencyKey string
}

// RecordMovementCommand appends a movement to an open register
type RecordMovementCommand struct {
	Description   string
	Amount        decimal.Decimal
	Type          cashregister.MovementType
	PaymentMethod cashregister.PaymentMethod
	RegisterID    uuid.UUID
	RestaurantID  uuid.UUID
	OrderID       *uuid.UUID
}

// ReconcileResult reports a balance recomputation
type ReconcileResult struct {
	Register        *cashregister.Register
	PreviousBalance decimal.Decimal
	DerivedBalance  decimal.Decimal
	Corrected       bool
}
