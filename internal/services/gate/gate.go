// Package gate filters market snapshots before any decision work is done.
package gate

import (
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

// Rejection reasons, also used as metric labels.
const (
	ReasonInvalid    = "invalid_snapshot"
	ReasonLowVolume  = "low_volume"
	ReasonVolatile   = "volatile_extreme_rsi"
	ReasonStagnant   = "stagnant_market"
	ReasonQuietHours = "quiet_hours"
	ReasonPanic      = "panic"
)

const (
	volatileChange   = 15.0
	stagnantChange   = 1.0
	stagnantRejectP  = 0.5
	quietRejectP     = 0.4
	quietHourStart   = 2
	quietHourEnd     = 4
	volatileRSILower = 30.0
	volatileRSIUpper = 70.0
)

type Gate struct {
	minVolume float64
	src       rng.Source
	now       func() time.Time
	logger    *applogger.Logger
	metrics   domrepo.Metrics
}

type Option func(*Gate)

func WithRand(src rng.Source) Option { return func(g *Gate) { g.src = src } }

func WithClock(now func() time.Time) Option { return func(g *Gate) { g.now = now } }

func WithMetrics(m domrepo.Metrics) Option { return func(g *Gate) { g.metrics = m } }

func WithLogger(l *applogger.Logger) Option { return func(g *Gate) { g.logger = l } }

func New(minVolume float64, opts ...Option) *Gate {
	g := &Gate{
		minVolume: minVolume,
		src:       rng.Default(),
		now:       time.Now,
		logger:    applogger.Nop(),
		metrics:   domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Allowed reports whether the snapshot may proceed to prediction.
func (g *Gate) Allowed(s *models.MarketSnapshot) bool {
	ok, _ := g.Check(s)
	return ok
}

// Check is Allowed plus the reason for a rejection. Random filters draw
// fresh values on every call, so repeated checks of the same snapshot can
// disagree.
func (g *Gate) Check(s *models.MarketSnapshot) (allowed bool, reason string) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("gate evaluation panicked", applogger.Any("panic", fmt.Sprint(r)))
			allowed, reason = false, ReasonPanic
		}
		if !allowed {
			g.metrics.RecordGateRejection(reason)
		}
	}()

	if err := s.Validate(); err != nil {
		return false, ReasonInvalid
	}
	if s.Volume < g.minVolume {
		return false, ReasonLowVolume
	}

	change := math.Abs(s.Change24h)
	if change > volatileChange && (s.RSI < volatileRSILower || s.RSI > volatileRSIUpper) {
		return false, ReasonVolatile
	}
	if change < stagnantChange && rng.Chance(g.src, stagnantRejectP) {
		return false, ReasonStagnant
	}

	hour := g.now().UTC().Hour()
	if hour >= quietHourStart && hour <= quietHourEnd && rng.Chance(g.src, quietRejectP) {
		return false, ReasonQuietHours
	}
	return true, ""
}
