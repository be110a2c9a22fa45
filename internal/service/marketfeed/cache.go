package marketfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domsvc "SignalForge/internal/domain/service"
)

// SnapshotCache holds the latest pushed snapshot per symbol. Snapshots
// older than maxAge are reported as unavailable.
type SnapshotCache struct {
	mu     sync.RWMutex
	latest map[string]models.MarketSnapshot
	maxAge time.Duration
	now    func() time.Time
}

var _ domsvc.MarketData = (*SnapshotCache)(nil)

func NewSnapshotCache(maxAge time.Duration) *SnapshotCache {
	return &SnapshotCache{latest: make(map[string]models.MarketSnapshot), maxAge: maxAge, now: time.Now}
}

// Put keeps s if it is valid and not older than the cached one.
func (c *SnapshotCache) Put(s models.MarketSnapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.latest[s.Symbol]; ok && cur.Timestamp.After(s.Timestamp) {
		return nil
	}
	c.latest[s.Symbol] = s
	return nil
}

func (c *SnapshotCache) Snapshot(_ context.Context, symbol string) (*models.MarketSnapshot, error) {
	c.mu.RLock()
	s, ok := c.latest[symbol]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no snapshot for %s", models.ErrDataUnavailable, symbol)
	}
	if c.maxAge > 0 && c.now().Sub(s.Timestamp) > c.maxAge {
		return nil, fmt.Errorf("%w: snapshot for %s is stale", models.ErrDataUnavailable, symbol)
	}
	return &s, nil
}
