package models

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
)

// CashMovementModel is the persistence model for the Movement entity.
// Rows are insert-only.
type CashMovementModel struct {
	BaseModel
	Description    string          `gorm:"type:varchar(255);not null"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Type           string          `gorm:"type:varchar(10);not null"`
	PaymentMethod  string          `gorm:"type:varchar(20);not null"`
	CashRegisterID uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_movement_register"`
	RestaurantID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_cash_movement_restaurant"`
	OrderID        *uuid.UUID      `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CashMovementModel) TableName() string {
	return "cash_movements"
}

// ToDomain converts the row to a Movement.
func (m *CashMovementModel) ToDomain() (*cashregister.Movement, error) {
	movementType := cashregister.MovementType(m.Type)
	if !movementType.IsValid() {
		return nil, fmt.Errorf("movement %s has type %q: %w", m.ID, m.Type, cashregister.ErrMalformedRow)
	}
	method := cashregister.PaymentMethod(m.PaymentMethod)
	if !method.IsValid() {
		return nil, fmt.Errorf("movement %s has payment method %q: %w", m.ID, m.PaymentMethod, cashregister.ErrMalformedRow)
	}
	return &cashregister.Movement{
		BaseEntity:     m.BaseModel.ToDomain(),
		Description:    m.Description,
		Amount:         m.Amount,
		Type:           movementType,
		PaymentMethod:  method,
		CashRegisterID: m.CashRegisterID,
		RestaurantID:   m.RestaurantID,
		OrderID:        m.OrderID,
	}, nil
}

// FromDomain populates the persistence model from a Movement.
func (m *CashMovementModel) FromDomain(mv *cashregister.Movement) {
	m.FromDomainBaseEntity(mv.BaseEntity)
	m.Description = mv.Description
	m.Amount = mv.Amount
	m.Type = mv.Type.String()
	m.PaymentMethod = mv.PaymentMethod.String()
	m.CashRegisterID = mv.CashRegisterID
	m.RestaurantID = mv.RestaurantID
	m.OrderID = mv.OrderID
}

// CashMovementModelFromDomain creates a new persistence model from a Movement.
func CashMovementModelFromDomain(mv *cashregister.Movement) *CashMovementModel {
	m := &CashMovementModel{}
	m.FromDomain(mv)
	return m
}
