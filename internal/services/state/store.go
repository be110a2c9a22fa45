// Package state owns the shared strategy configuration and the pattern
// memory. Both are read lock-free from published snapshots; strategy writes
// are serialised through a single owner goroutine.
package state

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

type patchRequest struct {
	patch models.StrategyPatch
	done  chan error
}

// Store is the single owner of StrategyConfig.
type Store struct {
	docs       domrepo.DocumentStore
	historyCap int
	now        func() time.Time
	logger     *applogger.Logger
	metrics    domrepo.Metrics

	current     atomic.Pointer[models.StrategyConfig]
	personality atomic.Pointer[models.PersonalityProfile]
	requests    chan patchRequest
	running     atomic.Bool
}

type Option func(*Store)

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithHistoryCap(n int) Option { return func(s *Store) { s.historyCap = n } }

func WithMetrics(m domrepo.Metrics) Option { return func(s *Store) { s.metrics = m } }

// NewStore loads the persisted document. A missing or corrupt document
// falls back to defaults; only the load error is logged, never returned.
func NewStore(ctx context.Context, docs domrepo.DocumentStore, personality models.PersonalityProfile, logger *applogger.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = applogger.Nop()
	}
	s := &Store{
		docs:       docs,
		historyCap: 200,
		now:        time.Now,
		logger:     logger,
		metrics:    domrepo.NopMetrics{},
		requests:   make(chan patchRequest),
	}
	for _, opt := range opts {
		opt(s)
	}

	cfg := models.DefaultStrategy()
	var doc models.PersistedConfig
	switch err := docs.LoadDocument(ctx, domrepo.DocStrategy, &doc); {
	case err == nil:
		cfg = doc.Strategy.Normalize()
		if doc.Personality != (models.PersonalityProfile{}) {
			personality = doc.Personality
		}
	case errors.Is(err, models.ErrNotFound):
		s.logger.Info("no persisted strategy, using defaults")
	default:
		s.logger.Warn("strategy store unreadable, using defaults",
			applogger.Error(fmt.Errorf("%w: %v", models.ErrConfigCorrupt, err)))
	}

	s.current.Store(&cfg)
	s.personality.Store(&personality)
	s.metrics.RecordThresholds(cfg.BuyRSIThreshold, cfg.SellRSIThreshold)
	return s
}

// Read returns the current configuration.
func (s *Store) Read() models.StrategyConfig {
	cfg := *s.current.Load()
	if cfg.ProfitRSIRange != nil {
		r := *cfg.ProfitRSIRange
		cfg.ProfitRSIRange = &r
	}
	return cfg
}

// Profile returns the personality carried in the persisted document.
func (s *Store) Profile() models.PersonalityProfile {
	return *s.personality.Load()
}

// Run applies patches in arrival order until ctx is done.
func (s *Store) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("strategy store already running")
	}
	defer s.running.Store(false)

	for {
		select {
		case <-ctx.Done():
			return nil
		case req := <-s.requests:
			req.done <- s.apply(ctx, req.patch)
		}
	}
}

// Update hands the patch to the owner goroutine and waits until it is
// applied. RSI fields are clamped to [10,90], never rejected.
func (s *Store) Update(ctx context.Context, patch models.StrategyPatch) error {
	if patch.Empty() {
		return nil
	}
	req := patchRequest{patch: patch, done: make(chan error, 1)}
	select {
	case s.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) apply(ctx context.Context, patch models.StrategyPatch) error {
	next := patch.Apply(s.Read())
	s.current.Store(&next)
	s.metrics.RecordThresholds(next.BuyRSIThreshold, next.SellRSIThreshold)

	// The in-memory config is authoritative; persistence failures are
	// reported but do not roll the update back.
	doc := models.PersistedConfig{Strategy: next, Personality: s.Profile()}
	if err := s.docs.SaveDocument(ctx, domrepo.DocStrategy, doc); err != nil {
		s.metrics.RecordError("strategy_persist")
		return fmt.Errorf("persist strategy: %w", err)
	}

	entry := models.StrategyUpdate{Timestamp: s.now().UTC(), UpdatedFields: patch.Fields(next)}
	if err := s.docs.AppendCapped(ctx, domrepo.ListStrategyUpdates, entry, s.historyCap); err != nil {
		s.metrics.RecordError("strategy_history")
		return fmt.Errorf("append strategy history: %w", err)
	}

	s.logger.Info("strategy updated",
		applogger.Any("fields", entry.UpdatedFields),
		applogger.Float64("buy_rsi", next.BuyRSIThreshold),
		applogger.Float64("sell_rsi", next.SellRSIThreshold),
	)
	return nil
}

func (s *Store) History(ctx context.Context) ([]models.StrategyUpdate, error) {
	var out []models.StrategyUpdate
	if err := s.docs.LoadList(ctx, domrepo.ListStrategyUpdates, &out); err != nil {
		return nil, fmt.Errorf("load strategy history: %w", err)
	}
	return out, nil
}
