package cashregister

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/restodash/backend/internal/infrastructure/logger"
	"github.com/restodash/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const spanService = "cash_register"

// LedgerService runs the cash register operations against a LedgerStore.
// Reads degrade instead of failing; writes surface store failures as
// TransientStoreError so the terminal can resubmit.
type LedgerService struct {
	store          cashregister.LedgerStore
	restaurants    cashregister.RestaurantDirectory
	fetcher        *Fetcher
	cache          RegisterCache
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	transactional  bool
	metrics        Metrics
	logger         *zap.Logger
	now            func() time.Time

	fetchPolicy FetchPolicy
	newTimer    func() backoff.Timer
}

// Option configures a LedgerService
type Option func(*LedgerService)

// WithRegisterCache sets the cache of the register list
func WithRegisterCache(cache RegisterCache) Option {
	return func(s *LedgerService) {
		if cache != nil {
			s.cache = cache
		}
	}
}

// WithIdempotencyStore enables idempotency keys on OpenRegister
func WithIdempotencyStore(store shared.IdempotencyStore, ttl time.Duration) Option {
	return func(s *LedgerService) {
		s.idempotency = store
		if ttl > 0 {
			s.idempotencyTTL = ttl
		}
	}
}

// WithMetrics sets the metrics sink
func WithMetrics(m Metrics) Option {
	return func(s *LedgerService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithLogger sets the service logger
func WithLogger(l *zap.Logger) Option {
	return func(s *LedgerService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source of created and closed timestamps
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithTransactionalWrites toggles single-transaction movement writes on stores
// that implement cashregister.Transactor
func WithTransactionalWrites(enabled bool) Option {
	return func(s *LedgerService) {
		s.transactional = enabled
	}
}

// WithFetchPolicy sets the retry policy of ListRegisters
func WithFetchPolicy(p FetchPolicy) Option {
	return func(s *LedgerService) {
		s.fetchPolicy = p
	}
}

// WithRetryTimer replaces the timer that spaces fetch attempts
func WithRetryTimer(newTimer func() backoff.Timer) Option {
	return func(s *LedgerService) {
		s.newTimer = newTimer
	}
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(store cashregister.LedgerStore, restaurants cashregister.RestaurantDirectory, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:          store,
		restaurants:    restaurants,
		cache:          noCache{},
		idempotencyTTL: shared.DefaultIdempotencyConfig().TTL,
		transactional:  true,
		metrics:        noopMetrics{},
		logger:         zap.NewNop(),
		now:            time.Now,
		fetchPolicy:    DefaultFetchPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fetcher = NewFetcher(store, s.fetchPolicy, s.newTimer, s.metrics, s.logger)
	return s
}

// ListRegisters returns the registers of the query's restaurant, or of all
// restaurants, from the cache when it is fresh and forceRefresh is false.
// Store failures never surface: the list degrades to the emergency query and
// then to empty.
func (s *LedgerService) ListRegisters(ctx context.Context, query ListRegistersQuery) *RegisterListing {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list")
	defer span.End()

	scope := FetchScope{RestaurantID: query.RestaurantID}
	if !query.ForceRefresh {
		cached, source, hit := s.cache.Get(scope.CacheKey())
		s.metrics.RecordCacheLookup(ctx, hit)
		if hit {
			listing := &RegisterListing{
				Registers: filterRegisters(cached, query),
				Source:    cachedSource(source),
				Cached:    true,
			}
			telemetry.SetAttributes(span, telemetry.SpanAttrFetchSource, string(listing.Source))
			return listing
		}
	}

	// read before the fetch so a write landing during it voids the Put
	scope.Generation = s.cache.Generation()
	result := s.fetcher.Fetch(ctx, scope)
	if result.Source == FetchSourceFull || result.Source == FetchSourceEmergency {
		s.cache.Put(scope.CacheKey(), result.Registers, string(result.Source), scope.Generation)
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrFetchSource, string(result.Source))

	return &RegisterListing{Registers: filterRegisters(result.Registers, query), Source: result.Source}
}

func cachedSource(source string) FetchSource {
	if FetchSource(source) == FetchSourceEmergency {
		return FetchSourceEmergency
	}
	return FetchSourceCache
}

func filterRegisters(registers []*cashregister.Register, query ListRegistersQuery) []*cashregister.Register {
	out := make([]*cashregister.Register, 0, len(registers))
	for _, r := range registers {
		if query.Status != nil && r.Status != *query.Status {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GetRegister returns one register
func (s *LedgerService) GetRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "get",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, id.String()))
	defer span.End()

	register, err := s.findRegister(ctx, "get register", id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return register, nil
}

// findRegister passes NotFound through and wraps every other store error as transient
func (s *LedgerService) findRegister(ctx context.Context, op string, id uuid.UUID) (*cashregister.Register, error) {
	register, err := s.store.FindRegister(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.NewTransientStoreError(op, err)
	}
	return register, nil
}

// OpenRegister opens a register. The validated server-side create is tried
// first; when it fails the same row is inserted directly and the outcome is
// FallbackWriteUsed. A repeated idempotency key replays the first open.
func (s *LedgerService) OpenRegister(ctx context.Context, cmd OpenRegisterCommand) (cashregister.CreateOutcome, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "open",
		telemetry.WithAttribute(telemetry.SpanAttrRestaurantID, cmd.RestaurantID.String()))
	defer span.End()

	outcome, err := s.openRegister(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	register := outcome.OpenedRegister()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrRegisterID, register.ID.String(),
		telemetry.SpanAttrOpenPath, string(outcome.Path()),
	)
	telemetry.SetOK(span)
	s.metrics.RecordOpen(ctx, string(outcome.Path()))
	return outcome, nil
}

func (s *LedgerService) openRegister(ctx context.Context, cmd OpenRegisterCommand) (cashregister.CreateOutcome, error) {
	log := logger.WithLogger(ctx, s.logger)

	register, err := cashregister.NewRegister(cmd.Name, cmd.InitialAmount, cmd.RestaurantID, s.now())
	if err != nil {
		return nil, err
	}
	if cmd.Opening != nil {
		if err := cmd.Opening.Validate(register.InitialAmount); err != nil {
			return nil, err
		}
		opening := *cmd.Opening
		opening.Denominations = append([]cashregister.Denomination(nil), cmd.Opening.Denominations...)
		register.Opening = &opening
	}

	exists, err := s.restaurants.Exists(ctx, cmd.RestaurantID)
	if err != nil {
		return nil, shared.NewTransientStoreError("lookup restaurant", err)
	}
	if !exists {
		return nil, shared.NewValidationError("Restaurant not found")
	}

	key, replay, err := s.reserveKey(ctx, cmd)
	if err != nil || replay != nil {
		return replay, err
	}

	outcome, err := s.writeRegister(ctx, register)
	if err != nil {
		s.releaseKey(ctx, key)
		return nil, err
	}

	if key != "" {
		if err := s.idempotency.Complete(ctx, key, outcome.OpenedRegister().ID.String(), s.idempotencyTTL); err != nil {
			log.Warn("failed to record idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
	s.cache.Invalidate()

	log.Info("Cash register opened",
		zap.String("register_id", outcome.OpenedRegister().ID.String()),
		zap.String("restaurant_id", cmd.RestaurantID.String()),
		zap.String("initial_amount", register.InitialAmount.StringFixed(2)),
		zap.String("path", string(outcome.Path())),
	)
	return outcome, nil
}

// reserveKey claims the idempotency key of cmd. It returns a ReplayedOpen when
// the key already completed. An unreachable key store degrades to an open
// without replay protection.
func (s *LedgerService) reserveKey(ctx context.Context, cmd OpenRegisterCommand) (string, cashregister.CreateOutcome, error) {
	if cmd.IdempotencyKey == "" || s.idempotency == nil {
		return "", nil, nil
	}
	log := logger.WithLogger(ctx, s.logger)
	key := cmd.RestaurantID.String() + ":" + cmd.IdempotencyKey

	reserved, err := s.idempotency.Reserve(ctx, key, s.idempotencyTTL)
	if err != nil {
		log.Warn("idempotency store unavailable, opening without replay protection",
			zap.String("key", key), zap.Error(err))
		return "", nil, nil
	}
	if reserved {
		return key, nil, nil
	}

	value, found, err := s.idempotency.Lookup(ctx, key)
	if err != nil {
		return "", nil, shared.NewTransientStoreError("lookup idempotency key", err)
	}
	if !found {
		return "", nil, shared.ErrDuplicateRequest
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return "", nil, shared.NewTransientStoreError("lookup idempotency key", err)
	}
	register, err := s.findRegister(ctx, "replay open", id)
	if err != nil {
		return "", nil, err
	}
	log.Info("Replayed cash register open", zap.String("key", key), zap.String("register_id", id.String()))
	return "", cashregister.ReplayedOpen{Register: register}, nil
}

func (s *LedgerService) releaseKey(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.idempotency.Release(ctx, key); err != nil {
		logger.WithLogger(ctx, s.logger).Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
	}
}

func (s *LedgerService) writeRegister(ctx context.Context, register *cashregister.Register) (cashregister.CreateOutcome, error) {
	log := logger.WithLogger(ctx, s.logger)

	created, err := s.store.CreateRegisterValidated(ctx, register)
	if err == nil {
		return cashregister.ValidatedWrite{Register: created}, nil
	}

	log.Warn("degraded write: validated register create failed, inserting directly",
		zap.String("register_id", register.ID.String()),
		zap.Error(err),
	)

	insertErr := s.store.InsertRegister(ctx, register)
	switch {
	case insertErr == nil:
		return cashregister.FallbackWriteUsed{Register: register, Cause: err}, nil
	case errors.Is(insertErr, cashregister.ErrDuplicateRegister):
		// the validated create committed even though it reported an error
		stored, findErr := s.store.FindRegister(ctx, register.ID)
		if findErr != nil {
			return nil, shared.NewTransientStoreError("open register", findErr)
		}
		return cashregister.ValidatedWrite{Register: stored}, nil
	default:
		log.Error("fallback register insert failed",
			zap.String("register_id", register.ID.String()),
			zap.Error(insertErr),
		)
		return nil, shared.NewTransientStoreError("open register", insertErr)
	}
}

// CloseRegister closes an open register. Closing twice fails with AlreadyClosed
// and writes nothing.
func (s *LedgerService) CloseRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "close",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, id.String()))
	defer span.End()
	ctx = logger.ContextWithRegisterID(ctx, id.String())

	register, err := s.closeRegister(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return register, nil
}

func (s *LedgerService) closeRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	register, err := s.findRegister(ctx, "close register", id)
	if err != nil {
		return nil, err
	}
	if err := register.Close(s.now()); err != nil {
		return nil, err
	}

	if err := s.store.CloseRegister(ctx, id, *register.ClosedAt); err != nil {
		if errors.Is(err, cashregister.ErrAlreadyClosed) || errors.Is(err, shared.ErrNotFound) {
			return nil, err
		}
		return nil, shared.NewTransientStoreError("close register", err)
	}

	s.cache.Invalidate()
	s.metrics.RecordClose(ctx)
	logger.WithLogger(ctx, s.logger).Info("Cash register closed",
		zap.String("register_id", id.String()),
		zap.String("current_amount", register.CurrentAmount.StringFixed(2)),
	)
	return register, nil
}

// ListMovements returns the movements of a register, oldest first
func (s *LedgerService) ListMovements(ctx context.Context, registerID uuid.UUID) ([]*cashregister.Movement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "list_movements",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, registerID.String()))
	defer span.End()

	if _, err := s.findRegister(ctx, "list movements", registerID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	movements, err := s.store.ListMovements(ctx, registerID)
	if err != nil {
		err = shared.NewTransientStoreError("list movements", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return movements, nil
}

// RecordMovement appends a movement and moves the register balance by its
// signed amount. Without a transaction the two writes are sequential; when the
// second fails the movement stays and a ConsistencyError is returned.
func (s *LedgerService) RecordMovement(ctx context.Context, cmd RecordMovementCommand) (*cashregister.Movement, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "record_movement",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, cmd.RegisterID.String()))
	defer span.End()
	ctx = logger.ContextWithRegisterID(ctx, cmd.RegisterID.String())

	movement, err := s.recordMovement(ctx, cmd)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrMovementID, movement.ID.String(),
		telemetry.SpanAttrAmount, movement.SignedAmount().String(),
	)
	telemetry.SetOK(span)
	return movement, nil
}

func (s *LedgerService) recordMovement(ctx context.Context, cmd RecordMovementCommand) (*cashregister.Movement, error) {
	log := logger.WithLogger(ctx, s.logger)

	movement, err := cashregister.NewMovement(cashregister.MovementInput{
		Description:    cmd.Description,
		Amount:         cmd.Amount,
		Type:           cmd.Type,
		PaymentMethod:  cmd.PaymentMethod,
		CashRegisterID: cmd.RegisterID,
		RestaurantID:   cmd.RestaurantID,
		OrderID:        cmd.OrderID,
	}, s.now())
	if err != nil {
		return nil, err
	}

	register, err := s.findRegister(ctx, "record movement", cmd.RegisterID)
	if err != nil {
		return nil, err
	}
	if !register.BelongsTo(cmd.RestaurantID) {
		return nil, shared.NewValidationError("Cash register does not belong to this restaurant")
	}
	if register.IsClosed() {
		return nil, cashregister.ErrRegisterClosed
	}

	delta := movement.SignedAmount()
	balance := register.CurrentAmount

	if tx, ok := s.store.(cashregister.Transactor); ok && s.transactional {
		err := tx.WithinTransaction(ctx, func(store cashregister.LedgerStore) error {
			if err := store.InsertMovement(ctx, movement); err != nil {
				return err
			}
			b, err := store.ApplyBalanceDelta(ctx, register.ID, delta, movement.CreatedAt)
			if err != nil {
				return err
			}
			balance = b
			return nil
		})
		if err != nil {
			if errors.Is(err, cashregister.ErrRegisterClosed) || errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			return nil, shared.NewTransientStoreError("record movement", err)
		}
	} else {
		if err := s.store.InsertMovement(ctx, movement); err != nil {
			return nil, shared.NewTransientStoreError("record movement", err)
		}
		b, err := s.store.ApplyBalanceDelta(ctx, register.ID, delta, movement.CreatedAt)
		if err != nil {
			consistencyErr := &cashregister.ConsistencyError{
				RegisterID: register.ID,
				MovementID: movement.ID,
				Cause:      err,
			}
			s.metrics.RecordConsistencyError(ctx)
			log.Error("movement recorded but register balance not updated",
				zap.String("register_id", register.ID.String()),
				zap.String("movement_id", movement.ID.String()),
				zap.String("delta", delta.String()),
				zap.Error(err),
			)
			s.cache.Invalidate()
			return nil, consistencyErr
		}
		balance = b
	}

	s.cache.Invalidate()
	s.metrics.RecordMovement(ctx, movement.Type.String(), movement.PaymentMethod.String(), movement.Amount)
	log.Debug("Movement recorded",
		zap.String("register_id", register.ID.String()),
		zap.String("movement_id", movement.ID.String()),
		zap.String("type", movement.Type.String()),
		zap.String("balance", balance.StringFixed(2)),
	)
	return movement, nil
}

// ReconcileBalance rewrites the register balance from its opening amount and
// movements. It repairs the drift a ConsistencyError leaves behind and may be
// repeated freely. Closed registers are reconciled too.
func (s *LedgerService) ReconcileBalance(ctx context.Context, registerID uuid.UUID) (*ReconcileResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "reconcile",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, registerID.String()))
	defer span.End()
	ctx = logger.ContextWithRegisterID(ctx, registerID.String())

	result, err := s.reconcileBalance(ctx, registerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

func (s *LedgerService) reconcileBalance(ctx context.Context, registerID uuid.UUID) (*ReconcileResult, error) {
	register, err := s.findRegister(ctx, "reconcile balance", registerID)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.SumMovements(ctx, registerID)
	if err != nil {
		return nil, shared.NewTransientStoreError("reconcile balance", err)
	}

	derived := register.ExpectedBalance(totals)
	result := &ReconcileResult{
		PreviousBalance: register.CurrentAmount,
		DerivedBalance:  derived,
		Corrected:       !derived.Equal(register.CurrentAmount),
	}

	if result.Corrected {
		now := s.now()
		if err := s.store.SetBalance(ctx, registerID, derived, now); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			return nil, shared.NewTransientStoreError("reconcile balance", err)
		}
		register.CurrentAmount = derived
		register.Touch(now)
		s.cache.Invalidate()

		logger.WithLogger(ctx, s.logger).Warn("Register balance corrected",
			zap.String("register_id", registerID.String()),
			zap.String("previous", result.PreviousBalance.StringFixed(2)),
			zap.String("derived", derived.StringFixed(2)),
			zap.Int64("movements", totals.Count),
		)
	}

	s.metrics.RecordReconciliation(ctx, result.Corrected)
	result.Register = register
	return result, nil
}

// GetSummary builds the closing report of a register
func (s *LedgerService) GetSummary(ctx context.Context, registerID uuid.UUID) (*cashregister.RegisterSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, spanService, "summary",
		telemetry.WithAttribute(telemetry.SpanAttrRegisterID, registerID.String()))
	defer span.End()

	register, err := s.findRegister(ctx, "register summary", registerID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	movements, err := s.store.ListMovements(ctx, registerID)
	if err != nil {
		err = shared.NewTransientStoreError("register summary", err)
		telemetry.RecordError(span, err)
		return nil, err
	}
	return cashregister.Summarize(register, movements), nil
}
