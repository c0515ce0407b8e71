package cashregister

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MovementType is the direction of a cash movement
type MovementType string

const (
	// MovementTypeIncome adds to the register balance
	MovementTypeIncome MovementType = "INCOME"
	// MovementTypeExpense subtracts from the register balance
	MovementTypeExpense MovementType = "EXPENSE"
)

// String returns the string representation of MovementType
func (t MovementType) String() string {
	return string(t)
}

// IsValid returns true if the movement type is valid
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeIncome, MovementTypeExpense:
		return true
	}
	return false
}

// Sign returns 1 for income and -1 for expense
func (t MovementType) Sign() int {
	if t == MovementTypeExpense {
		return -1
	}
	return 1
}

// PaymentMethod is how the money moved
type PaymentMethod string

const (
	PaymentMethodCash       PaymentMethod = "CASH"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodPix        PaymentMethod = "PIX"
	PaymentMethodOther      PaymentMethod = "OTHER"
)

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// IsValid returns true if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash,
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodPix,
		PaymentMethodOther:
		return true
	}
	return false
}

// AllPaymentMethods returns every payment method in display order
func AllPaymentMethods() []PaymentMethod {
	return []PaymentMethod{
		PaymentMethodCash,
		PaymentMethodCreditCard,
		PaymentMethodDebitCard,
		PaymentMethodPix,
		PaymentMethodOther,
	}
}

// Movement is an immutable ledger entry against a register.
// Amount is always positive; the direction is carried by Type.
type Movement struct {
	shared.BaseEntity
	Description    string
	Amount         decimal.Decimal
	Type           MovementType
	PaymentMethod  PaymentMethod
	CashRegisterID uuid.UUID
	RestaurantID   uuid.UUID
	OrderID        *uuid.UUID
}

// MovementInput carries the caller-supplied fields of a movement
type MovementInput struct {
	Description    string
	Amount         decimal.Decimal
	Type           MovementType
	PaymentMethod  PaymentMethod
	CashRegisterID uuid.UUID
	RestaurantID   uuid.UUID
	OrderID        *uuid.UUID
}

// NewMovement validates input and builds a movement stamped at now
func NewMovement(input MovementInput, now time.Time) (*Movement, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, shared.NewValidationError("Movement description cannot be empty")
	}
	if len(description) > 255 {
		return nil, shared.NewValidationError("Movement description cannot exceed 255 characters")
	}
	if !input.Amount.IsPositive() {
		return nil, shared.NewValidationError("Movement amount must be positive")
	}
	if err := ValidateAmount("Movement amount", input.Amount); err != nil {
		return nil, err
	}
	if !input.Type.IsValid() {
		return nil, shared.NewValidationError("Invalid movement type")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, shared.NewValidationError("Invalid payment method")
	}
	if input.CashRegisterID == uuid.Nil {
		return nil, shared.NewValidationError("Cash register ID cannot be empty")
	}
	if input.RestaurantID == uuid.Nil {
		return nil, shared.NewValidationError("Restaurant ID cannot be empty")
	}
	if input.OrderID != nil && *input.OrderID == uuid.Nil {
		return nil, shared.NewValidationError("Order ID cannot be empty when provided")
	}

	var orderID *uuid.UUID
	if input.OrderID != nil {
		id := *input.OrderID
		orderID = &id
	}

	return &Movement{
		BaseEntity:     shared.NewBaseEntity(now),
		Description:    description,
		Amount:         input.Amount,
		Type:           input.Type,
		PaymentMethod:  input.PaymentMethod,
		CashRegisterID: input.CashRegisterID,
		RestaurantID:   input.RestaurantID,
		OrderID:        orderID,
	}, nil
}

// SignedAmount returns the amount with the sign of its direction
func (m *Movement) SignedAmount() decimal.Decimal {
	if m.Type == MovementTypeExpense {
		return m.Amount.Neg()
	}
	return m.Amount
}
