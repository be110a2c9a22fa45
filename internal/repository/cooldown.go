package repository

import (
	"context"
	"time"

	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
)

// CacheCooldown stores one expiring lock key per traded symbol. Backed by
// MemoryCache for a single instance, or Redis so instances share cooldowns.
type CacheCooldown struct {
	cache cache.Service
}

var _ domrepo.Cooldown = (*CacheCooldown)(nil)

func NewCacheCooldown(c cache.Service) *CacheCooldown {
	return &CacheCooldown{cache: c}
}

func cooldownKey(symbol string) string { return cache.Key("cooldown", symbol) }

func (c *CacheCooldown) Active(ctx context.Context, symbol string) (bool, error) {
	return c.cache.Exists(ctx, cooldownKey(symbol))
}

func (c *CacheCooldown) Claim(ctx context.Context, symbol string, window time.Duration) (bool, error) {
	return c.cache.TryLock(ctx, cooldownKey(symbol), window)
}

func (c *CacheCooldown) Release(ctx context.Context, symbol string) error {
	return c.cache.Delete(ctx, cooldownKey(symbol))
}
