package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/restodash/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{})
	assert.Nil(t, lm)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestNewLedgerMetrics_Noop(t *testing.T) {
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{
		Meter: noop.NewMeterProvider().Meter("test"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	assert.NotPanics(t, func() {
		lm.RecordFetchAttempt(ctx, 1, errors.New("timeout"))
		lm.RecordFetch(ctx, "full", time.Millisecond)
		lm.RecordCacheLookup(ctx, true)
		lm.RecordOpen(ctx, "validated")
		lm.RecordClose(ctx)
		lm.RecordMovement(ctx, "INCOME", "CASH", decimal.NewFromInt(1))
		lm.RecordConsistencyError(ctx)
		lm.RecordReconciliation(ctx, false)
	})
}

func TestLedgerMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	lm, err := telemetry.NewLedgerMetrics(telemetry.LedgerMetricsConfig{Meter: meter})
	require.NoError(t, err)

	ctx := context.Background()
	lm.RecordFetchAttempt(ctx, 1, errors.New("timeout"))
	lm.RecordFetchAttempt(ctx, 2, nil)
	lm.RecordFetch(ctx, "full", 1200*time.Millisecond)
	lm.RecordOpen(ctx, "fallback")
	lm.RecordClose(ctx)
	lm.RecordMovement(ctx, "INCOME", "PIX", decimal.RequireFromString("12.345"))
	lm.RecordMovement(ctx, "EXPENSE", "CASH", decimal.RequireFromString("0.50"))
	lm.RecordConsistencyError(ctx)
	lm.RecordReconciliation(ctx, true)

	data := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, data["pdv_register_fetch_attempts_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["pdv_register_fetch_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["pdv_register_opened_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["pdv_register_closed_total"]))
	assert.Equal(t, int64(2), sumOf(t, data["pdv_movement_recorded_total"]))
	// 12.345 rounds to 1235 cents
	assert.Equal(t, int64(1285), sumOf(t, data["pdv_movement_amount_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["pdv_consistency_error_total"]))
	assert.Equal(t, int64(1), sumOf(t, data["pdv_reconciliation_total"]))

	opened := data["pdv_register_opened_total"].(metricdata.Sum[int64])
	require.Len(t, opened.DataPoints, 1)
	path, ok := opened.DataPoints[0].Attributes.Value(attribute.Key("open_path"))
	require.True(t, ok)
	assert.Equal(t, "fallback", path.AsString())

	_, ok = data["pdv_register_fetch_duration_seconds"].(metricdata.Histogram[float64])
	assert.True(t, ok)
}
