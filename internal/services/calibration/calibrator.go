// Package calibration measures how well the current thresholds reproduce
// recorded decisions and moves them when they do not.
package calibration

import (
	"context"
	"errors"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/decision"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

var (
	ErrNoHistory = errors.New("no pattern history to replay")
	ErrNoReplay  = errors.New("no replay result to mutate from")
)

type Config struct {
	AccuracyThreshold   float64
	StableAccuracy      float64
	MutationStep        int
	MismatchSample      int
	ReplayCash          float64
	ConfidenceThreshold float64

	CloneCount  int
	CloneJitter int
	CloneTrials int
	CloneFee    float64
	CloneNoise  float64

	ReplayCap   int
	MutationCap int
	CloneCap    int
}

// Strategy is the strategy store as seen by calibration.
type Strategy interface {
	Read() models.StrategyConfig
	Update(ctx context.Context, patch models.StrategyPatch) error
}

type PatternSource interface {
	Snapshot() []models.PatternRecord
}

type Replayer interface {
	Replay(cfg models.StrategyConfig, in decision.Input) models.Decision
}

type Calibrator struct {
	cfg      Config
	strategy Strategy
	patterns PatternSource
	engine   Replayer
	docs     domrepo.DocumentStore
	src      rng.Source
	now      func() time.Time
	logger   *applogger.Logger
	metrics  domrepo.Metrics
}

type Option func(*Calibrator)

func WithRand(src rng.Source) Option { return func(c *Calibrator) { c.src = src } }

func WithClock(now func() time.Time) Option { return func(c *Calibrator) { c.now = now } }

func WithLogger(l *applogger.Logger) Option { return func(c *Calibrator) { c.logger = l } }

func WithMetrics(m domrepo.Metrics) Option { return func(c *Calibrator) { c.metrics = m } }

func New(cfg Config, strategy Strategy, patterns PatternSource, engine Replayer, docs domrepo.DocumentStore, opts ...Option) *Calibrator {
	c := &Calibrator{
		cfg:      cfg,
		strategy: strategy,
		patterns: patterns,
		engine:   engine,
		docs:     docs,
		src:      rng.Default(),
		now:      time.Now,
		logger:   applogger.Nop(),
		metrics:  domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calibrator) ReplayLog(ctx context.Context) ([]models.ReplayResult, error) {
	var out []models.ReplayResult
	if err := c.docs.LoadList(ctx, domrepo.ListReplay, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Calibrator) MutationLog(ctx context.Context) ([]models.MutationRecord, error) {
	var out []models.MutationRecord
	if err := c.docs.LoadList(ctx, domrepo.ListMutations, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Calibrator) CloneLog(ctx context.Context) ([]models.CloneRun, error) {
	var out []models.CloneRun
	if err := c.docs.LoadList(ctx, domrepo.ListClones, &out); err != nil {
		return nil, err
	}
	return out, nil
}
