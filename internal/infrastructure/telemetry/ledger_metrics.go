package telemetry

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// LedgerMetrics records cash ledger activity.
type LedgerMetrics struct {
	logger *zap.Logger

	fetchAttempts     *Counter
	fetchResults      *Counter
	fetchDuration     *Histogram
	cacheLookups      *Counter
	registersOpened   *Counter
	registersClosed   *Counter
	movements         *Counter
	movementAmount    *Counter
	consistencyErrors *Counter
	reconciliations   *Counter
}

// LedgerMetricsConfig holds configuration for ledger metrics.
type LedgerMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewLedgerMetrics registers the ledger instruments on cfg.Meter.
func NewLedgerMetrics(cfg LedgerMetricsConfig) (*LedgerMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	lm := &LedgerMetrics{logger: logger}

	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&lm.fetchAttempts, "pdv_register_fetch_attempts_total", "Full register list fetch attempts", "{attempts}"},
		{&lm.fetchResults, "pdv_register_fetch_total", "Register list fetches by the source that answered", "{fetches}"},
		{&lm.cacheLookups, "pdv_register_cache_lookups_total", "Register cache lookups", "{lookups}"},
		{&lm.registersOpened, "pdv_register_opened_total", "Registers opened, by write path", "{registers}"},
		{&lm.registersClosed, "pdv_register_closed_total", "Registers closed", "{registers}"},
		{&lm.movements, "pdv_movement_recorded_total", "Cash movements recorded", "{movements}"},
		{&lm.movementAmount, "pdv_movement_amount_total", "Recorded movement amount in cents", "{cents}"},
		{&lm.consistencyErrors, "pdv_consistency_error_total", "Movements persisted without a balance update", "{errors}"},
		{&lm.reconciliations, "pdv_reconciliation_total", "Balance reconciliations", "{reconciliations}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}

	var err error
	lm.fetchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "pdv_register_fetch_duration_seconds",
		Description: "Time to answer a register list request, retries included",
		Unit:        "s",
		Boundaries:  FetchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Ledger metrics initialized")
	return lm, nil
}

// RecordFetchAttempt counts one full-row attempt.
func (lm *LedgerMetrics) RecordFetchAttempt(ctx context.Context, attempt int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	lm.fetchAttempts.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordFetch counts a finished fetch and its duration.
func (lm *LedgerMetrics) RecordFetch(ctx context.Context, source string, d time.Duration) {
	lm.fetchResults.Inc(ctx, AttrFetchSource.String(source))
	lm.fetchDuration.RecordDuration(ctx, d, AttrFetchSource.String(source))
}

// RecordCacheLookup counts a cache hit or miss.
func (lm *LedgerMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	lm.cacheLookups.Inc(ctx, AttrOutcome.String(outcome))
}

// RecordOpen counts an opened register by write path.
func (lm *LedgerMetrics) RecordOpen(ctx context.Context, path string) {
	lm.registersOpened.Inc(ctx, AttrOpenPath.String(path))
}

// RecordClose counts a closed register.
func (lm *LedgerMetrics) RecordClose(ctx context.Context) {
	lm.registersClosed.Inc(ctx)
}

// RecordMovement counts a recorded movement and adds its amount in cents.
func (lm *LedgerMetrics) RecordMovement(ctx context.Context, movementType, paymentMethod string, amount decimal.Decimal) {
	attrs := []attribute.KeyValue{
		AttrMovementType.String(movementType),
		AttrPaymentMethod.String(paymentMethod),
	}
	lm.movements.Inc(ctx, attrs...)
	lm.movementAmount.Add(ctx, amount.Shift(2).Round(0).IntPart(), attrs...)
}

// RecordConsistencyError counts a movement whose balance update failed.
func (lm *LedgerMetrics) RecordConsistencyError(ctx context.Context) {
	lm.consistencyErrors.Inc(ctx)
}

// RecordReconciliation counts a reconciliation and whether it changed the balance.
func (lm *LedgerMetrics) RecordReconciliation(ctx context.Context, corrected bool) {
	outcome := "balanced"
	if corrected {
		outcome = "corrected"
	}
	lm.reconciliations.Inc(ctx, AttrOutcome.String(outcome))
}

// ErrMeterNil is returned when a metrics constructor receives a nil meter.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
