package cashregister

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterFilter narrows ListRegisters
type RegisterFilter struct {
	RestaurantID *uuid.UUID
	Status       *RegisterStatus
	Limit        int
}

// LedgerStore is the persistence contract of the cash ledger.
// Every method may fail with a transport error; callers decide whether to
// absorb it (reads) or surface it (writes).
type LedgerStore interface {
	// ListRegisters returns full rows ordered by opened_at descending
	ListRegisters(ctx context.Context, filter RegisterFilter) ([]*Register, error)

	// ListRegisterSummaries returns the reduced column set, newest first.
	// InitialAmount and CreatedAt are not populated.
	ListRegisterSummaries(ctx context.Context, filter RegisterFilter) ([]*Register, error)

	// FindRegister returns shared.ErrNotFound when no row matches
	FindRegister(ctx context.Context, id uuid.UUID) (*Register, error)

	// CreateRegisterValidated runs the server-side validated create and
	// returns the row as stored
	CreateRegisterValidated(ctx context.Context, register *Register) (*Register, error)

	// InsertRegister writes the row directly. A primary key clash yields ErrDuplicateRegister.
	InsertRegister(ctx context.Context, register *Register) error

	// CloseRegister flips an OPEN row to CLOSED. ErrAlreadyClosed when the row is not OPEN.
	CloseRegister(ctx context.Context, id uuid.UUID, closedAt time.Time) error

	InsertMovement(ctx context.Context, movement *Movement) error

	// ApplyBalanceDelta atomically adds delta to current_amount of an OPEN
	// register and returns the balance read back after the update
	ApplyBalanceDelta(ctx context.Context, registerID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error)

	// SumMovements aggregates movements of a register by direction
	SumMovements(ctx context.Context, registerID uuid.UUID) (MovementTotals, error)

	// SetBalance overwrites current_amount regardless of status
	SetBalance(ctx context.Context, registerID uuid.UUID, amount decimal.Decimal, at time.Time) error

	// ListMovements returns movements ordered by created_at ascending
	ListMovements(ctx context.Context, registerID uuid.UUID) ([]*Movement, error)
}

// Transactor is implemented by stores that can run several writes atomically
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(store LedgerStore) error) error
}

// RestaurantDirectory answers whether a restaurant scope exists
type RestaurantDirectory interface {
	Exists(ctx context.Context, restaurantID uuid.UUID) (bool, error)
}
