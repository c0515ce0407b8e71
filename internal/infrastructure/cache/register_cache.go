package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/restodash/backend/internal/domain/cashregister"
	"go.uber.org/zap"
)

// DefaultRegisterCacheTTL is how long a fetched register list stays fresh
const DefaultRegisterCacheTTL = 10 * time.Second

// InMemoryRegisterCache holds the last fetched register list of each
// restaurant scope. Lists are replaced as a whole; entries are copied on the
// way in and out so callers can never mutate cached state.
//
// Every Invalidate starts a new generation. A Put carries the generation read
// before its fetch began and is dropped when a write invalidated in between.
type InMemoryRegisterCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry[[]*cashregister.Register]
	generation uint64
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	hits       int64
	misses     int64
	stalePuts  int64
	disabled   bool
}

// cacheEntry wraps a cached value with the time it was written and the
// query that produced it
type cacheEntry[T any] struct {
	value    T
	source   string
	storedAt time.Time
}

// isExpired checks if the cache entry is older than ttl at now
func (e *cacheEntry[T]) isExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.storedAt) > ttl
}

// RegisterCacheOption is a functional option for configuring the cache
type RegisterCacheOption func(*InMemoryRegisterCache)

// WithTTL sets the freshness window. A non-positive ttl disables caching.
func WithTTL(ttl time.Duration) RegisterCacheOption {
	return func(c *InMemoryRegisterCache) {
		c.ttl = ttl
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) RegisterCacheOption {
	return func(c *InMemoryRegisterCache) {
		c.now = now
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) RegisterCacheOption {
	return func(c *InMemoryRegisterCache) {
		c.logger = logger
	}
}

// NewInMemoryRegisterCache creates an empty register cache
func NewInMemoryRegisterCache(opts ...RegisterCacheOption) *InMemoryRegisterCache {
	c := &InMemoryRegisterCache{
		entries: make(map[string]*cacheEntry[[]*cashregister.Register]),
		ttl:     DefaultRegisterCacheTTL,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.disabled = c.ttl <= 0
	return c
}

// Get returns the cached list of scope and its source if it is younger than the TTL
func (c *InMemoryRegisterCache) Get(scope string) ([]*cashregister.Register, string, bool) {
	c.mu.RLock()
	entry := c.entries[scope]
	c.mu.RUnlock()

	if entry == nil || entry.isExpired(c.now(), c.ttl) {
		atomic.AddInt64(&c.misses, 1)
		c.logger.Debug("register cache miss", zap.String("scope", scope))
		return nil, "", false
	}

	atomic.AddInt64(&c.hits, 1)
	c.logger.Debug("register cache hit",
		zap.String("scope", scope),
		zap.String("source", entry.source),
		zap.Int("registers", len(entry.value)),
	)
	return cloneRegisters(entry.value), entry.source, true
}

// Generation returns the current invalidation generation. Read it before
// fetching and hand it to Put.
func (c *InMemoryRegisterCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Put replaces the cached list of scope and restarts its TTL. It reports
// false and stores nothing when generation is no longer current.
func (c *InMemoryRegisterCache) Put(scope string, registers []*cashregister.Register, source string, generation uint64) bool {
	if c.disabled {
		return false
	}
	entry := &cacheEntry[[]*cashregister.Register]{
		value:    cloneRegisters(registers),
		source:   source,
		storedAt: c.now(),
	}

	c.mu.Lock()
	if generation != c.generation {
		current := c.generation
		c.mu.Unlock()
		atomic.AddInt64(&c.stalePuts, 1)
		c.logger.Debug("register cache dropped stale put",
			zap.String("scope", scope),
			zap.Uint64("generation", generation),
			zap.Uint64("current_generation", current),
		)
		return false
	}
	c.entries[scope] = entry
	c.mu.Unlock()
	return true
}

// Invalidate drops every cached list and starts a new generation
func (c *InMemoryRegisterCache) Invalidate() {
	c.mu.Lock()
	c.generation++
	clear(c.entries)
	c.mu.Unlock()
	c.logger.Debug("register cache invalidated")
}

// Stats returns cache statistics
func (c *InMemoryRegisterCache) Stats() CacheStats {
	return CacheStats{
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		StalePuts: atomic.LoadInt64(&c.stalePuts),
	}
}

// CacheStats holds cache statistics
type CacheStats struct {
	Hits      int64
	Misses    int64
	StalePuts int64
}

// HitRate returns the cache hit rate as a percentage
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

func cloneRegisters(in []*cashregister.Register) []*cashregister.Register {
	out := make([]*cashregister.Register, 0, len(in))
	for _, r := range in {
		if r == nil {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}
