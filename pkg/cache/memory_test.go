package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryCacheRoundTripsStructs(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	ctx := context.Background()

	type payload struct {
		Positive int `json:"positive"`
	}
	require.NoError(t, mc.Set(ctx, "s", payload{Positive: 4}, time.Minute))

	var got payload
	require.NoError(t, mc.Get(ctx, "s", &got))
	assert.Equal(t, 4, got.Positive)

	var missing payload
	assert.ErrorIs(t, mc.Get(ctx, "nope", &missing), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "k", "v", time.Minute))
	ok, _ := mc.Exists(ctx, "k")
	assert.True(t, ok)

	clock.Advance(2 * time.Minute)
	ok, _ = mc.Exists(ctx, "k")
	assert.False(t, ok)
	var s string
	assert.ErrorIs(t, mc.Get(ctx, "k", &s), ErrCacheMiss)
}

func TestMemoryCacheTryLock(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	ok, err := mc.TryLock(ctx, "lock", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = mc.TryLock(ctx, "lock", 15*time.Minute)
	assert.False(t, ok)

	clock.Advance(16 * time.Minute)
	ok, _ = mc.TryLock(ctx, "lock", 15*time.Minute)
	assert.True(t, ok)

	require.NoError(t, mc.Unlock(ctx, "lock"))
	ok, _ = mc.TryLock(ctx, "lock", time.Minute)
	assert.True(t, ok)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryCleanup(0), WithMemoryMaxSize(2), WithMemoryClock(clock.Now))
	defer mc.Close()
	ctx := context.Background()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	clock.Advance(time.Second)

	var s string
	require.NoError(t, mc.Get(ctx, "a", &s)) // touch a
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	ok, _ := mc.Exists(ctx, "b")
	assert.False(t, ok)
	ok, _ = mc.Exists(ctx, "a", "c")
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "sentiment:bitcoin:25", Key("sentiment", "bitcoin", 25))
}
