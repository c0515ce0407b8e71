package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/restodash/backend/internal/domain/cashregister"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegisters(t *testing.T, n int) []*cashregister.Register {
	t.Helper()
	out := make([]*cashregister.Register, 0, n)
	for i := range n {
		r, err := cashregister.NewRegister("Till", decimal.NewFromInt(int64(100*(i+1))), uuid.New(), time.Now())
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

const allScope = ""

func TestInMemoryRegisterCache_GetPut(t *testing.T) {
	clock := newFakeClock()
	c := NewInMemoryRegisterCache(WithClock(clock.Now))

	_, _, ok := c.Get(allScope)
	assert.False(t, ok, "empty cache misses")

	registers := testRegisters(t, 2)
	require.True(t, c.Put(allScope, registers, "full", c.Generation()))

	got, source, ok := c.Get(allScope)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, registers[0].ID, got[0].ID)
	assert.Equal(t, "full", source)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 50.0, stats.HitRate(), 0.001)
}

func TestInMemoryRegisterCache_Scopes(t *testing.T) {
	c := NewInMemoryRegisterCache()
	restaurant := uuid.New().String()

	c.Put(restaurant, testRegisters(t, 1), "full", c.Generation())
	c.Put(allScope, testRegisters(t, 3), "emergency", c.Generation())

	got, source, ok := c.Get(restaurant)
	require.True(t, ok)
	assert.Len(t, got, 1)
	assert.Equal(t, "full", source)

	got, source, ok = c.Get(allScope)
	require.True(t, ok)
	assert.Len(t, got, 3)
	assert.Equal(t, "emergency", source)

	_, _, ok = c.Get(uuid.New().String())
	assert.False(t, ok)

	c.Invalidate()
	_, _, ok = c.Get(restaurant)
	assert.False(t, ok, "invalidate drops every scope")
}

func TestInMemoryRegisterCache_TTL(t *testing.T) {
	clock := newFakeClock()
	c := NewInMemoryRegisterCache(WithClock(clock.Now))
	c.Put(allScope, testRegisters(t, 1), "full", c.Generation())

	clock.Advance(10 * time.Second)
	_, _, ok := c.Get(allScope)
	assert.True(t, ok, "entry is fresh up to the TTL")

	clock.Advance(time.Millisecond)
	_, _, ok = c.Get(allScope)
	assert.False(t, ok, "entry older than the TTL misses")

	c.Put(allScope, testRegisters(t, 1), "full", c.Generation())
	_, _, ok = c.Get(allScope)
	assert.True(t, ok, "put restarts the TTL")
}

func TestInMemoryRegisterCache_Invalidate(t *testing.T) {
	c := NewInMemoryRegisterCache()
	c.Put(allScope, testRegisters(t, 3), "full", c.Generation())

	before := c.Generation()
	c.Invalidate()

	_, _, ok := c.Get(allScope)
	assert.False(t, ok)
	assert.Equal(t, before+1, c.Generation())
}

func TestInMemoryRegisterCache_StalePutIsDropped(t *testing.T) {
	c := NewInMemoryRegisterCache()

	// a fetch reads the generation, then a write invalidates before it stores
	generation := c.Generation()
	c.Invalidate()

	assert.False(t, c.Put(allScope, testRegisters(t, 2), "full", generation))
	_, _, ok := c.Get(allScope)
	assert.False(t, ok, "rows read before the write must not be served")
	assert.Equal(t, int64(1), c.Stats().StalePuts)

	assert.True(t, c.Put(allScope, testRegisters(t, 2), "full", c.Generation()))
	_, _, ok = c.Get(allScope)
	assert.True(t, ok)
}

func TestInMemoryRegisterCache_Copies(t *testing.T) {
	c := NewInMemoryRegisterCache()
	registers := testRegisters(t, 1)
	c.Put(allScope, registers, "full", c.Generation())

	registers[0].Name = "mutated after put"

	got, _, ok := c.Get(allScope)
	require.True(t, ok)
	assert.Equal(t, "Till", got[0].Name)

	got[0].CurrentAmount = decimal.NewFromInt(-1)
	again, _, ok := c.Get(allScope)
	require.True(t, ok)
	assert.True(t, again[0].CurrentAmount.Equal(decimal.NewFromInt(100)))
}

func TestInMemoryRegisterCache_EmptyListIsCached(t *testing.T) {
	c := NewInMemoryRegisterCache()
	c.Put(allScope, []*cashregister.Register{}, "full", c.Generation())

	got, _, ok := c.Get(allScope)
	assert.True(t, ok)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestInMemoryRegisterCache_Disabled(t *testing.T) {
	c := NewInMemoryRegisterCache(WithTTL(0))
	assert.False(t, c.Put(allScope, testRegisters(t, 1), "full", c.Generation()))

	_, _, ok := c.Get(allScope)
	assert.False(t, ok)
}

func TestInMemoryRegisterCache_Concurrent(t *testing.T) {
	c := NewInMemoryRegisterCache()
	registers := testRegisters(t, 5)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 3 {
			case 0:
				c.Put(allScope, registers, "full", c.Generation())
			case 1:
				c.Get(allScope)
			default:
				c.Invalidate()
			}
		}(i)
	}
	wg.Wait()

	stats := c.Stats()
	assert.Equal(t, int64(17), stats.Hits+stats.Misses)
	assert.Equal(t, uint64(16), c.Generation())
}
