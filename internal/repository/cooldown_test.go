package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/pkg/cache"
)

func TestCacheCooldown(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0), cache.WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()
	cd := NewCacheCooldown(mc)

	active, err := cd.Active(ctx, "bitcoin")
	require.NoError(t, err)
	assert.False(t, active)

	ok, err := cd.Claim(ctx, "bitcoin", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = cd.Claim(ctx, "bitcoin", 15*time.Minute)
	assert.False(t, ok, "second claim inside the window must fail")

	active, _ = cd.Active(ctx, "bitcoin")
	assert.True(t, active)
	active, _ = cd.Active(ctx, "ethereum")
	assert.False(t, active)

	now = now.Add(16 * time.Minute)
	active, _ = cd.Active(ctx, "bitcoin")
	assert.False(t, active)
}

func TestCacheCooldownRelease(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	defer mc.Close()
	cd := NewCacheCooldown(mc)

	ok, err := cd.Claim(ctx, "bitcoin", 15*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cd.Release(ctx, "bitcoin"))
	active, err := cd.Active(ctx, "bitcoin")
	require.NoError(t, err)
	assert.False(t, active)

	ok, _ = cd.Claim(ctx, "bitcoin", 15*time.Minute)
	assert.True(t, ok, "a released slot can be claimed again")
}
