package cashregister

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/restodash/backend/internal/infrastructure/logger"
	"github.com/restodash/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// FetchSource tells which query produced a register list
type FetchSource string

const (
	// FetchSourceFull is the full-row query
	FetchSourceFull FetchSource = "full"
	// FetchSourceEmergency is the reduced query run after every full attempt failed
	FetchSourceEmergency FetchSource = "emergency"
	// FetchSourceEmpty means both queries failed and an empty list was returned
	FetchSourceEmpty FetchSource = "empty"
	// FetchSourceCache is a fresh cache hit on a full fetch; no query ran
	FetchSourceCache FetchSource = "cache"
)

// Default fetch policy
const (
	DefaultFetchAttempts  = 3
	DefaultFetchBaseDelay = time.Second
	DefaultEmergencyLimit = 100
)

// FetchScope names the register list one fetch sequence reads
type FetchScope struct {
	// RestaurantID narrows both queries; nil reads every restaurant
	RestaurantID *uuid.UUID
	// Generation is the cache generation read before fetching. Callers of
	// different generations never share a sequence.
	Generation uint64
}

// CacheKey is the key of the scope in the register cache
func (s FetchScope) CacheKey() string {
	if s.RestaurantID == nil {
		return ""
	}
	return s.RestaurantID.String()
}

func (s FetchScope) groupKey() string {
	return "registers:" + s.CacheKey() + "#" + strconv.FormatUint(s.Generation, 10)
}

func (s FetchScope) filter() cashregister.RegisterFilter {
	return cashregister.RegisterFilter{RestaurantID: s.RestaurantID}
}

// FetchPolicy configures the retry sequence of the register fetch
type FetchPolicy struct {
	Attempts       int
	BaseDelay      time.Duration
	EmergencyLimit int
}

// DefaultFetchPolicy returns 3 attempts, 1s linear step and a 100 row emergency query
func DefaultFetchPolicy() FetchPolicy {
	return FetchPolicy{
		Attempts:       DefaultFetchAttempts,
		BaseDelay:      DefaultFetchBaseDelay,
		EmergencyLimit: DefaultEmergencyLimit,
	}
}

func (p FetchPolicy) normalized() FetchPolicy {
	d := DefaultFetchPolicy()
	if p.Attempts < 1 {
		p.Attempts = d.Attempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.EmergencyLimit < 1 {
		p.EmergencyLimit = d.EmergencyLimit
	}
	return p
}

// FetchResult is the outcome of one fetch sequence
type FetchResult struct {
	Registers []*cashregister.Register
	Source    FetchSource
	Attempts  int
}

// Fetcher reads the register list with retries, an emergency query and an
// empty fallback. It never returns an error. Concurrent callers share the
// sequence already in flight.
type Fetcher struct {
	store    cashregister.LedgerStore
	policy   FetchPolicy
	newTimer func() backoff.Timer
	metrics  Metrics
	logger   *zap.Logger
	now      func() time.Time
	group    singleflight.Group
}

// NewFetcher creates a Fetcher. A nil newTimer uses real timers.
func NewFetcher(store cashregister.LedgerStore, policy FetchPolicy, newTimer func() backoff.Timer, metrics Metrics, log *zap.Logger) *Fetcher {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		store:    store,
		policy:   policy.normalized(),
		newTimer: newTimer,
		metrics:  metrics,
		logger:   log,
		now:      time.Now,
	}
}

// Fetch returns the register list of scope. A caller whose ctx ends before the
// shared sequence finishes gets an empty result; the sequence keeps running
// for the others.
func (f *Fetcher) Fetch(ctx context.Context, scope FetchScope) FetchResult {
	ch := f.group.DoChan(scope.groupKey(), func() (any, error) {
		return f.run(context.WithoutCancel(ctx), scope), nil
	})

	select {
	case res := <-ch:
		result := res.Val.(FetchResult)
		result.Registers = cloneAll(result.Registers)
		return result
	case <-ctx.Done():
		logger.WithLogger(ctx, f.logger).Warn("register fetch abandoned by caller", zap.Error(ctx.Err()))
		return FetchResult{Registers: []*cashregister.Register{}, Source: FetchSourceEmpty}
	}
}

func (f *Fetcher) run(ctx context.Context, scope FetchScope) FetchResult {
	ctx, span := telemetry.StartServiceSpan(ctx, "cash_register", "fetch")
	defer span.End()

	log := logger.WithLogger(ctx, f.logger)
	if scope.RestaurantID != nil {
		log = log.With(zap.String("restaurant_id", scope.RestaurantID.String()))
	}
	start := f.now()

	var (
		registers []*cashregister.Register
		attempt   int
	)
	operation := func() error {
		attempt++
		rows, err := f.store.ListRegisters(ctx, scope.filter())
		f.metrics.RecordFetchAttempt(ctx, attempt, err)
		if err != nil {
			return err
		}
		registers = rows
		return nil
	}
	notify := func(err error, delay time.Duration) {
		log.Warn("register fetch failed, retrying",
			zap.Int(telemetry.SpanAttrAttempt, attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}

	var timer backoff.Timer
	if f.newTimer != nil {
		timer = f.newTimer()
	}
	policy := backoff.WithContext(retryPolicy(f.policy.Attempts, f.policy.BaseDelay), ctx)

	var result FetchResult
	if err := backoff.RetryNotifyWithTimer(operation, policy, notify, timer); err == nil {
		result.Registers = nonNil(registers)
		result.Source = FetchSourceFull
	} else {
		log.Warn("register fetch attempts exhausted, running emergency query",
			zap.Int("attempts", attempt),
			zap.Int("limit", f.policy.EmergencyLimit),
			zap.Error(err),
		)
		summaries := scope.filter()
		summaries.Limit = f.policy.EmergencyLimit
		rows, emergencyErr := f.store.ListRegisterSummaries(ctx, summaries)
		if emergencyErr == nil {
			result.Registers = nonNil(rows)
			result.Source = FetchSourceEmergency
		} else {
			log.Error("emergency register query failed, returning empty list", zap.Error(emergencyErr))
			telemetry.RecordError(span, emergencyErr)
			result.Registers = []*cashregister.Register{}
			result.Source = FetchSourceEmpty
		}
	}
	result.Attempts = attempt

	f.metrics.RecordFetch(ctx, string(result.Source), f.now().Sub(start))
	telemetry.SetAttributes(span,
		telemetry.SpanAttrFetchSource, string(result.Source),
		telemetry.SpanAttrAttempt, attempt,
	)
	return result
}

// cloneAll copies the shared result for one caller
func cloneAll(registers []*cashregister.Register) []*cashregister.Register {
	out := make([]*cashregister.Register, 0, len(registers))
	for _, r := range registers {
		out = append(out, r.Clone())
	}
	return out
}

func nonNil(registers []*cashregister.Register) []*cashregister.Register {
	if registers == nil {
		return []*cashregister.Register{}
	}
	return registers
}
