package cashregister

import (
	"context"
	"time"

	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
)

// RegisterCache holds the last fetched register list of each scope, with
// the fetch source that produced it. Put must drop lists fetched under a
// generation that Invalidate has since ended.
type RegisterCache interface {
	Get(scope string) ([]*cashregister.Register, string, bool)
	Generation() uint64
	Put(scope string, registers []*cashregister.Register, source string, generation uint64) bool
	Invalidate()
}

// Metrics receives ledger counters. telemetry.LedgerMetrics implements it.
type Metrics interface {
	RecordFetchAttempt(ctx context.Context, attempt int, err error)
	RecordFetch(ctx context.Context, source string, d time.Duration)
	RecordCacheLookup(ctx context.Context, hit bool)
	RecordOpen(ctx context.Context, path string)
	RecordClose(ctx context.Context)
	RecordMovement(ctx context.Context, movementType, paymentMethod string, amount decimal.Decimal)
	RecordConsistencyError(ctx context.Context)
	RecordReconciliation(ctx context.Context, corrected bool)
}

type noopMetrics struct{}

func (noopMetrics) RecordFetchAttempt(context.Context, int, error) {}
func (noopMetrics) RecordFetch(context.Context, string, time.Duration) {}
func (noopMetrics) RecordCacheLookup(context.Context, bool) {}
func (noopMetrics) RecordOpen(context.Context, string) {}
func (noopMetrics) RecordClose(context.Context) {}
func (noopMetrics) RecordMovement(context.Context, string, string, decimal.Decimal) {}
func (noopMetrics) RecordConsistencyError(context.Context) {}
func (noopMetrics) RecordReconciliation(context.Context, bool) {}

// noCache never hits
type noCache struct{}

func (noCache) Get(string) ([]*cashregister.Register, string, bool) { return nil, "", false }
func (noCache) Generation() uint64 { return 0 }
func (noCache) Put(string, []*cashregister.Register, string, uint64) bool { return false }
func (noCache) Invalidate() {}
