package cashregister

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestRegisterStatus(t *testing.T) {
	t.Run("IsValid returns true for valid statuses", func(t *testing.T) {
		assert.True(t, RegisterStatusOpen.IsValid())
		assert.True(t, RegisterStatusClosed.IsValid())
	})

	t.Run("IsValid returns false for invalid status", func(t *testing.T) {
		assert.False(t, RegisterStatus("PAUSED").IsValid())
		assert.False(t, RegisterStatus("").IsValid())
	})

	t.Run("String returns correct value", func(t *testing.T) {
		assert.Equal(t, "OPEN", RegisterStatusOpen.String())
		assert.Equal(t, "CLOSED", RegisterStatusClosed.String())
	})
}

func TestNewRegister(t *testing.T) {
	restaurantID := uuid.New()

	t.Run("creates open register with balance equal to initial amount", func(t *testing.T) {
		r, err := NewRegister("  Front counter ", decimal.NewFromInt(150), restaurantID, testNow)
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, r.ID)
		assert.Equal(t, "Front counter", r.Name)
		assert.True(t, r.InitialAmount.Equal(decimal.NewFromInt(150)))
		assert.True(t, r.CurrentAmount.Equal(r.InitialAmount))
		assert.Equal(t, RegisterStatusOpen, r.Status)
		assert.Equal(t, restaurantID, r.RestaurantID)
		assert.Equal(t, testNow, r.OpenedAt)
		assert.Nil(t, r.ClosedAt)
		assert.True(t, r.IsOpen())
	})

	t.Run("accepts zero initial amount", func(t *testing.T) {
		r, err := NewRegister("Bar", decimal.Zero, restaurantID, testNow)
		require.NoError(t, err)
		assert.True(t, r.CurrentAmount.IsZero())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		tests := []struct {
			name         string
			regName      string
			amount       decimal.Decimal
			restaurantID uuid.UUID
		}{
			{"blank name", "   ", decimal.NewFromInt(10), restaurantID},
			{"name too long", strings.Repeat("x", 101), decimal.NewFromInt(10), restaurantID},
			{"negative amount", "Bar", decimal.NewFromInt(-1), restaurantID},
			{"nil restaurant", "Bar", decimal.NewFromInt(10), uuid.Nil},
			{"fifth decimal place", "Bar", decimal.RequireFromString("0.00001"), restaurantID},
			{"fifteen integer digits", "Bar", decimal.RequireFromString("100000000000000"), restaurantID},
			{"huge exponent", "Bar", decimal.RequireFromString("1e2000000000"), restaurantID},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				r, err := NewRegister(tt.regName, tt.amount, tt.restaurantID, testNow)
				assert.Nil(t, r)
				assert.True(t, shared.IsValidation(err))
			})
		}
	})
}

func TestRegister_Close(t *testing.T) {
	t.Run("closes once and keeps balance", func(t *testing.T) {
		r, err := NewRegister("Bar", decimal.NewFromInt(100), uuid.New(), testNow)
		require.NoError(t, err)
		r.CurrentAmount = decimal.NewFromInt(180)

		closeAt := testNow.Add(8 * time.Hour)
		require.NoError(t, r.Close(closeAt))

		assert.Equal(t, RegisterStatusClosed, r.Status)
		require.NotNil(t, r.ClosedAt)
		assert.Equal(t, closeAt, *r.ClosedAt)
		assert.True(t, r.CurrentAmount.Equal(decimal.NewFromInt(180)))
		assert.True(t, r.IsClosed())
	})

	t.Run("second close fails and leaves closedAt untouched", func(t *testing.T) {
		r, err := NewRegister("Bar", decimal.NewFromInt(100), uuid.New(), testNow)
		require.NoError(t, err)
		require.NoError(t, r.Close(testNow.Add(time.Hour)))

		err = r.Close(testNow.Add(2 * time.Hour))
		assert.True(t, errors.Is(err, ErrAlreadyClosed))
		assert.Equal(t, testNow.Add(time.Hour), *r.ClosedAt)
	})
}

func TestRegister_ExpectedBalance(t *testing.T) {
	r, err := NewRegister("Bar", decimal.NewFromInt(100), uuid.New(), testNow)
	require.NoError(t, err)

	totals := MovementTotals{
		Income:  decimal.RequireFromString("52.50"),
		Expense: decimal.RequireFromString("20.25"),
		Count:   3,
	}
	assert.Equal(t, "132.25", r.ExpectedBalance(totals).StringFixed(2))
	assert.Equal(t, "32.25", totals.Net().StringFixed(2))
}

func TestRegister_Clone(t *testing.T) {
	r, err := NewRegister("Bar", decimal.NewFromInt(100), uuid.New(), testNow)
	require.NoError(t, err)
	require.NoError(t, r.Close(testNow.Add(time.Hour)))
	r.Opening = &OpeningDetails{
		OperatorName:  "Ana",
		Denominations: []Denomination{{Value: decimal.NewFromInt(50), Quantity: 2}},
	}

	c := r.Clone()
	require.NotSame(t, r, c)
	require.NotSame(t, r.ClosedAt, c.ClosedAt)
	assert.Equal(t, *r.ClosedAt, *c.ClosedAt)

	c.Opening.Denominations[0].Quantity = 9
	assert.Equal(t, 2, r.Opening.Denominations[0].Quantity)

	var nilRegister *Register
	assert.Nil(t, nilRegister.Clone())
}

func TestCreateOutcome(t *testing.T) {
	r := &Register{Name: "Bar"}
	cause := errors.New("function missing")

	outcomes := []CreateOutcome{
		ValidatedWrite{Register: r},
		FallbackWriteUsed{Register: r, Cause: cause},
		ReplayedOpen{Register: r},
	}
	paths := []OpenPath{OpenPathValidated, OpenPathFallback, OpenPathReplayed}

	for i, o := range outcomes {
		assert.Same(t, r, o.OpenedRegister())
		assert.Equal(t, paths[i], o.Path())
	}

	fb, ok := outcomes[1].(FallbackWriteUsed)
	require.True(t, ok)
	assert.Equal(t, cause, fb.Cause)
}

func TestConsistencyError(t *testing.T) {
	cause := errors.New("connection reset")
	err := error(&ConsistencyError{RegisterID: uuid.New(), MovementID: uuid.New(), Cause: cause})

	assert.True(t, errors.Is(err, ErrConsistency))
	assert.True(t, errors.Is(err, cause))

	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, CodeConsistency, de.Code)

	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Contains(t, err.Error(), "connection reset")
}
