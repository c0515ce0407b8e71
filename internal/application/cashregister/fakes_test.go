package cashregister

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/restodash/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errConnReset = errors.New("read tcp 10.0.0.7:5432: connection reset by peer")

// fakeStore is an in-memory LedgerStore with per-method failure injection
type fakeStore struct {
	mu        sync.Mutex
	registers map[uuid.UUID]*cashregister.Register
	movements []*cashregister.Movement

	// listErrs is consumed one error per ListRegisters call; nil entries succeed
	listErrs    []error
	listGate    chan struct{}
	listStarted chan struct{}

	summariesErr      error
	findErr           error
	validatedErr      error
	insertErr         error
	insertMovementErr error
	applyDeltaErr     error
	sumErr            error
	setBalanceErr     error
	listMovementsErr  error

	// validatedCommits makes the validated create write the row and still report validatedErr
	validatedCommits bool

	listCalls       int
	listFilters     []cashregister.RegisterFilter
	summaryLimit    int
	summaryFilter   cashregister.RegisterFilter
	findCalls       int
	validatedCalls  int
	insertCalls     int
	closeCalls      int
	setBalanceCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{registers: make(map[uuid.UUID]*cashregister.Register)}
}

func (s *fakeStore) put(r *cashregister.Register) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[r.ID] = r.Clone()
}

func (s *fakeStore) get(id uuid.UUID) *cashregister.Register {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[id].Clone()
}

func (s *fakeStore) movementCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.movements)
}

// sorted returns copies of the registers matching filter, newest first
func (s *fakeStore) sorted(filter cashregister.RegisterFilter) []*cashregister.Register {
	out := make([]*cashregister.Register, 0, len(s.registers))
	for _, r := range s.registers {
		if filter.RestaurantID != nil && !r.BelongsTo(*filter.RestaurantID) {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out
}

// ListRegisters reads the rows before waiting on listGate, so a gated call
// returns what the store held when it started
func (s *fakeStore) ListRegisters(ctx context.Context, filter cashregister.RegisterFilter) ([]*cashregister.Register, error) {
	s.mu.Lock()
	s.listCalls++
	s.listFilters = append(s.listFilters, filter)
	first := s.listCalls == 1
	var err error
	if len(s.listErrs) > 0 {
		err = s.listErrs[0]
		s.listErrs = s.listErrs[1:]
	}
	rows := s.sorted(filter)
	gate, started := s.listGate, s.listStarted
	s.mu.Unlock()

	if first && started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *fakeStore) ListRegisterSummaries(ctx context.Context, filter cashregister.RegisterFilter) ([]*cashregister.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summaryLimit = filter.Limit
	s.summaryFilter = filter
	if s.summariesErr != nil {
		return nil, s.summariesErr
	}
	rows := s.sorted(filter)
	for _, r := range rows {
		r.InitialAmount = decimal.Zero
		r.Opening = nil
	}
	return rows, nil
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listCalls
}

func (s *fakeStore) FindRegister(ctx context.Context, id uuid.UUID) (*cashregister.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findErr != nil {
		return nil, s.findErr
	}
	r, ok := s.registers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *fakeStore) CreateRegisterValidated(ctx context.Context, register *cashregister.Register) (*cashregister.Register, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validatedCalls++
	if s.validatedErr != nil && !s.validatedCommits {
		return nil, s.validatedErr
	}
	s.registers[register.ID] = register.Clone()
	if s.validatedErr != nil {
		return nil, s.validatedErr
	}
	return register.Clone(), nil
}

func (s *fakeStore) InsertRegister(ctx context.Context, register *cashregister.Register) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertCalls++
	if s.insertErr != nil {
		return s.insertErr
	}
	if _, ok := s.registers[register.ID]; ok {
		return cashregister.ErrDuplicateRegister
	}
	s.registers[register.ID] = register.Clone()
	return nil
}

func (s *fakeStore) CloseRegister(ctx context.Context, id uuid.UUID, closedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	r, ok := s.registers[id]
	if !ok {
		return shared.ErrNotFound
	}
	if r.IsClosed() {
		return cashregister.ErrAlreadyClosed
	}
	return r.Close(closedAt)
}

func (s *fakeStore) InsertMovement(ctx context.Context, movement *cashregister.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertMovementErr != nil {
		return s.insertMovementErr
	}
	m := *movement
	s.movements = append(s.movements, &m)
	return nil
}

func (s *fakeStore) ApplyBalanceDelta(ctx context.Context, registerID uuid.UUID, delta decimal.Decimal, at time.Time) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.applyDeltaErr != nil {
		return decimal.Zero, s.applyDeltaErr
	}
	r, ok := s.registers[registerID]
	if !ok {
		return decimal.Zero, shared.ErrNotFound
	}
	if r.IsClosed() {
		return decimal.Zero, cashregister.ErrRegisterClosed
	}
	r.CurrentAmount = r.CurrentAmount.Add(delta)
	r.Touch(at)
	return r.CurrentAmount, nil
}

func (s *fakeStore) SumMovements(ctx context.Context, registerID uuid.UUID) (cashregister.MovementTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sumErr != nil {
		return cashregister.MovementTotals{}, s.sumErr
	}
	totals := cashregister.MovementTotals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, m := range s.movements {
		if m.CashRegisterID != registerID {
			continue
		}
		if m.Type == cashregister.MovementTypeIncome {
			totals.Income = totals.Income.Add(m.Amount)
		} else {
			totals.Expense = totals.Expense.Add(m.Amount)
		}
		totals.Count++
	}
	return totals, nil
}

func (s *fakeStore) SetBalance(ctx context.Context, registerID uuid.UUID, amount decimal.Decimal, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setBalanceCalls++
	if s.setBalanceErr != nil {
		return s.setBalanceErr
	}
	r, ok := s.registers[registerID]
	if !ok {
		return shared.ErrNotFound
	}
	r.CurrentAmount = amount
	r.Touch(at)
	return nil
}

func (s *fakeStore) ListMovements(ctx context.Context, registerID uuid.UUID) ([]*cashregister.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listMovementsErr != nil {
		return nil, s.listMovementsErr
	}
	var out []*cashregister.Movement
	for _, m := range s.movements {
		if m.CashRegisterID == registerID {
			c := *m
			out = append(out, &c)
		}
	}
	return out, nil
}

// txStore adds all-or-nothing transactions to fakeStore
type txStore struct {
	*fakeStore
}

func (s *txStore) WithinTransaction(ctx context.Context, fn func(store cashregister.LedgerStore) error) error {
	s.mu.Lock()
	snapshot := make(map[uuid.UUID]*cashregister.Register, len(s.registers))
	for id, r := range s.registers {
		snapshot[id] = r.Clone()
	}
	movements := append([]*cashregister.Movement(nil), s.movements...)
	s.mu.Unlock()

	if err := fn(s.fakeStore); err != nil {
		s.mu.Lock()
		s.registers = snapshot
		s.movements = movements
		s.mu.Unlock()
		return err
	}
	return nil
}

// MockRestaurantDirectory is a mock implementation of RestaurantDirectory
type MockRestaurantDirectory struct {
	mock.Mock
}

func (m *MockRestaurantDirectory) Exists(ctx context.Context, restaurantID uuid.UUID) (bool, error) {
	args := m.Called(ctx, restaurantID)
	return args.Bool(0), args.Error(1)
}

// recordingTimer fires immediately and remembers every requested delay
type recordingTimer struct {
	mu     sync.Mutex
	delays []time.Duration
	c      chan time.Time
}

func newRecordingTimer() *recordingTimer {
	return &recordingTimer{c: make(chan time.Time, 1)}
}

func (t *recordingTimer) Start(d time.Duration) {
	t.mu.Lock()
	t.delays = append(t.delays, d)
	t.mu.Unlock()
	t.c <- time.Time{}
}

func (t *recordingTimer) Stop() {}

func (t *recordingTimer) C() <-chan time.Time {
	return t.c
}

func (t *recordingTimer) Delays() []time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]time.Duration(nil), t.delays...)
}

// recordingMetrics keeps the calls it receives
type recordingMetrics struct {
	mu                sync.Mutex
	attempts          []error
	sources           []string
	cacheLookups      []bool
	opens             []string
	closes            int
	movements         []string
	consistencyErrors int
	reconciliations   []bool
}

func (m *recordingMetrics) RecordFetchAttempt(_ context.Context, _ int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts = append(m.attempts, err)
}

func (m *recordingMetrics) RecordFetch(_ context.Context, source string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, source)
}

func (m *recordingMetrics) RecordCacheLookup(_ context.Context, hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheLookups = append(m.cacheLookups, hit)
}

func (m *recordingMetrics) RecordOpen(_ context.Context, path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opens = append(m.opens, path)
}

func (m *recordingMetrics) RecordClose(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closes++
}

func (m *recordingMetrics) RecordMovement(_ context.Context, movementType, paymentMethod string, _ decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, movementType+"/"+paymentMethod)
}

func (m *recordingMetrics) RecordConsistencyError(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consistencyErrors++
}

func (m *recordingMetrics) RecordReconciliation(_ context.Context, corrected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations = append(m.reconciliations, corrected)
}

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func openRegisterAt(t *testing.T, name, initial string, restaurantID uuid.UUID, at time.Time) *cashregister.Register {
	t.Helper()
	r, err := cashregister.NewRegister(name, decimal.RequireFromString(initial), restaurantID, at)
	require.NoError(t, err)
	return r
}
