package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
)

// CashRegisterModel is the persistence model for the Register entity.
type CashRegisterModel struct {
	BaseModel
	Name          string                `gorm:"type:varchar(100);not null"`
	InitialAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CurrentAmount decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status        string                `gorm:"type:varchar(10);not null;default:'OPEN';index:idx_cash_register_status"`
	RestaurantID  uuid.UUID             `gorm:"type:uuid;not null;index:idx_cash_register_restaurant"`
	OpenedAt      time.Time             `gorm:"not null;index:idx_cash_register_opened"`
	ClosedAt      *time.Time
	Opening       *OpeningDetailsRecord `gorm:"column:opening_details;type:text;serializer:json"`
}

// TableName returns the table name for GORM
func (CashRegisterModel) TableName() string {
	return "cash_registers"
}

// ToDomain converts the row to a Register. Rows with an unknown status are
// rejected with cashregister.ErrMalformedRow.
func (m *CashRegisterModel) ToDomain() (*cashregister.Register, error) {
	status := cashregister.RegisterStatus(m.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("register %s has status %q: %w", m.ID, m.Status, cashregister.ErrMalformedRow)
	}
	if m.ID == uuid.Nil {
		return nil, fmt.Errorf("register row without id: %w", cashregister.ErrMalformedRow)
	}
	return &cashregister.Register{
		BaseEntity:    m.BaseModel.ToDomain(),
		Name:          m.Name,
		InitialAmount: m.InitialAmount,
		CurrentAmount: m.CurrentAmount,
		Status:        status,
		RestaurantID:  m.RestaurantID,
		OpenedAt:      m.OpenedAt,
		ClosedAt:      m.ClosedAt,
		Opening:       m.Opening.ToDomain(),
	}, nil
}

// FromDomain populates the persistence model from a Register.
func (m *CashRegisterModel) FromDomain(r *cashregister.Register) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Name = r.Name
	m.InitialAmount = r.InitialAmount
	m.CurrentAmount = r.CurrentAmount
	m.Status = r.Status.String()
	m.RestaurantID = r.RestaurantID
	m.OpenedAt = r.OpenedAt
	m.ClosedAt = r.ClosedAt
	m.Opening = OpeningDetailsRecordFromDomain(r.Opening)
}

// CashRegisterModelFromDomain creates a new persistence model from a Register.
func CashRegisterModelFromDomain(r *cashregister.Register) *CashRegisterModel {
	m := &CashRegisterModel{}
	m.FromDomain(r)
	return m
}

// OpeningDetailsRecord is the JSON document stored in cash_registers.opening_details
type OpeningDetailsRecord struct {
	OperatorID    string               `json:"operator_id,omitempty"`
	OperatorName  string               `json:"operator_name,omitempty"`
	Denominations []DenominationRecord `json:"denominations,omitempty"`
	PendingChange bool                 `json:"pending_change,omitempty"`
	Notes         string               `json:"notes,omitempty"`
}

// DenominationRecord is one line of the opening breakdown
type DenominationRecord struct {
	Value    decimal.Decimal `json:"value"`
	Quantity int             `json:"quantity"`
}

// ToDomain converts the record; a nil record stays nil
func (o *OpeningDetailsRecord) ToDomain() *cashregister.OpeningDetails {
	if o == nil {
		return nil
	}
	details := &cashregister.OpeningDetails{
		OperatorID:    o.OperatorID,
		OperatorName:  o.OperatorName,
		PendingChange: o.PendingChange,
		Notes:         o.Notes,
	}
	for _, d := range o.Denominations {
		details.Denominations = append(details.Denominations, cashregister.Denomination{
			Value:    d.Value,
			Quantity: d.Quantity,
		})
	}
	return details
}

// OpeningDetailsRecordFromDomain converts opening details for storage
func OpeningDetailsRecordFromDomain(o *cashregister.OpeningDetails) *OpeningDetailsRecord {
	if o == nil {
		return nil
	}
	record := &OpeningDetailsRecord{
		OperatorID:    o.OperatorID,
		OperatorName:  o.OperatorName,
		PendingChange: o.PendingChange,
		Notes:         o.Notes,
	}
	for _, d := range o.Denominations {
		record.Denominations = append(record.Denominations, DenominationRecord{
			Value:    d.Value,
			Quantity: d.Quantity,
		})
	}
	return record
}
