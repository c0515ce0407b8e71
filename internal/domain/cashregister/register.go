package cashregister

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RegisterStatus represents the lifecycle state of a cash register session
type RegisterStatus string

const (
	// RegisterStatusOpen accepts movements
	RegisterStatusOpen RegisterStatus = "OPEN"
	// RegisterStatusClosed is terminal
	RegisterStatusClosed RegisterStatus = "CLOSED"
)

// String returns the string representation of RegisterStatus
func (s RegisterStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is valid
func (s RegisterStatus) IsValid() bool {
	switch s {
	case RegisterStatusOpen, RegisterStatusClosed:
		return true
	}
	return false
}

// Register is one till session of a restaurant, from opening to closing.
// CurrentAmount must always equal InitialAmount plus the signed sum of the
// register's movements.
type Register struct {
	shared.BaseEntity
	Name          string
	InitialAmount decimal.Decimal
	CurrentAmount decimal.Decimal
	Status        RegisterStatus
	RestaurantID  uuid.UUID
	OpenedAt      time.Time
	ClosedAt      *time.Time
	Opening       *OpeningDetails
}

// NewRegister creates an OPEN register whose balance starts at initialAmount.
func NewRegister(name string, initialAmount decimal.Decimal, restaurantID uuid.UUID, now time.Time) (*Register, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewValidationError("Register name cannot be empty")
	}
	if len(name) > 100 {
		return nil, shared.NewValidationError("Register name cannot exceed 100 characters")
	}
	if initialAmount.IsNegative() {
		return nil, shared.NewValidationError("Initial amount cannot be negative")
	}
	if err := ValidateAmount("Initial amount", initialAmount); err != nil {
		return nil, err
	}
	if restaurantID == uuid.Nil {
		return nil, shared.NewValidationError("Restaurant ID cannot be empty")
	}

	return &Register{
		BaseEntity:    shared.NewBaseEntity(now),
		Name:          name,
		InitialAmount: initialAmount,
		CurrentAmount: initialAmount,
		Status:        RegisterStatusOpen,
		RestaurantID:  restaurantID,
		OpenedAt:      now,
	}, nil
}

// IsOpen returns true while the register accepts movements
func (r *Register) IsOpen() bool {
	return r.Status == RegisterStatusOpen
}

// IsClosed returns true once the register has been closed
func (r *Register) IsClosed() bool {
	return r.Status == RegisterStatusClosed
}

// Close transitions the register to CLOSED. The balance is left untouched.
func (r *Register) Close(now time.Time) error {
	if r.Status == RegisterStatusClosed {
		return ErrAlreadyClosed
	}
	closedAt := now
	r.Status = RegisterStatusClosed
	r.ClosedAt = &closedAt
	r.Touch(now)
	return nil
}

// ExpectedBalance derives the balance from the opening amount and movement totals.
func (r *Register) ExpectedBalance(totals MovementTotals) decimal.Decimal {
	return r.InitialAmount.Add(totals.Income).Sub(totals.Expense)
}

// BelongsTo reports whether the register is scoped to restaurantID
func (r *Register) BelongsTo(restaurantID uuid.UUID) bool {
	return r.RestaurantID == restaurantID
}

// Clone returns a copy that shares no pointers with r
func (r *Register) Clone() *Register {
	if r == nil {
		return nil
	}
	c := *r
	if r.ClosedAt != nil {
		closedAt := *r.ClosedAt
		c.ClosedAt = &closedAt
	}
	if r.Opening != nil {
		opening := *r.Opening
		opening.Denominations = append([]Denomination(nil), r.Opening.Denominations...)
		c.Opening = &opening
	}
	return &c
}

// MovementTotals aggregates the movements of one register
type MovementTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Count   int64
}

// Net returns income minus expense
func (t MovementTotals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}
