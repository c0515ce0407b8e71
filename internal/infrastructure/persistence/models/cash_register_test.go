package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCashRegisterModel_RoundTrip(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	r, err := cashregister.NewRegister("Caixa 3", decimal.RequireFromString("20.00"), uuid.New(), now)
	require.NoError(t, err)
	r.Opening = &cashregister.OpeningDetails{
		OperatorID:    "op-1",
		Denominations: []cashregister.Denomination{{Value: decimal.NewFromInt(10), Quantity: 2}},
		Notes:         "troco conferido",
	}
	require.NoError(t, r.Close(now.Add(time.Hour)))

	m := CashRegisterModelFromDomain(r)
	assert.Equal(t, "CLOSED", m.Status)
	assert.Equal(t, "cash_registers", m.TableName())

	back, err := m.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, r, back)
}

func TestCashRegisterModel_NilOpening(t *testing.T) {
	m := &CashRegisterModel{BaseModel: BaseModel{ID: uuid.New()}, Status: "OPEN"}
	r, err := m.ToDomain()
	require.NoError(t, err)
	assert.Nil(t, r.Opening)
	assert.Nil(t, OpeningDetailsRecordFromDomain(nil))
}

func TestCashRegisterModel_Malformed(t *testing.T) {
	tests := []struct {
		name  string
		model CashRegisterModel
	}{
		{"unknown status", CashRegisterModel{BaseModel: BaseModel{ID: uuid.New()}, Status: "PAUSED"}},
		{"empty status", CashRegisterModel{BaseModel: BaseModel{ID: uuid.New()}}},
		{"missing id", CashRegisterModel{Status: "OPEN"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.model.ToDomain()
			assert.ErrorIs(t, err, cashregister.ErrMalformedRow)
		})
	}
}

func TestCashMovementModel_RoundTrip(t *testing.T) {
	orderID := uuid.New()
	mv, err := cashregister.NewMovement(cashregister.MovementInput{
		Description:    "Pedido 42",
		Amount:         decimal.RequireFromString("37.90"),
		Type:           cashregister.MovementTypeIncome,
		PaymentMethod:  cashregister.PaymentMethodPix,
		CashRegisterID: uuid.New(),
		RestaurantID:   uuid.New(),
		OrderID:        &orderID,
	}, time.Now().UTC())
	require.NoError(t, err)

	m := CashMovementModelFromDomain(mv)
	back, err := m.ToDomain()
	require.NoError(t, err)
	assert.Equal(t, mv, back)

	m.PaymentMethod = "BITCOIN"
	_, err = m.ToDomain()
	assert.ErrorIs(t, err, cashregister.ErrMalformedRow)

	m.PaymentMethod = "PIX"
	m.Type = "REFUND"
	_, err = m.ToDomain()
	assert.ErrorIs(t, err, cashregister.ErrMalformedRow)
}
