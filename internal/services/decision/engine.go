// Package decision turns an admitted snapshot into a trade signal.
package decision

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

const (
	buyCashFraction = 0.15
	minLiquidity    = 0.05
	maxLiquidity    = 2.0
	urgentChange    = 4.0
	urgency         = 1.5
)

var ErrInvalidInput = errors.New("invalid decision input")

// Input is everything one evaluation needs. Holding is in asset units.
type Input struct {
	Snapshot        *models.MarketSnapshot
	Sentiment       models.SentimentSummary
	GlobalSentiment models.SentimentSummary
	Prediction      models.Prediction
	Cash            float64
	Holding         float64
}

func (in Input) Validate() error {
	if err := in.Snapshot.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.Sentiment.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := in.GlobalSentiment.Validate(); err != nil {
		return fmt.Errorf("%w: global %v", ErrInvalidInput, err)
	}
	if p := in.Prediction.Probability; !finiteNonNegative(p) || p > 1 {
		return fmt.Errorf("%w: probability %v", ErrInvalidInput, p)
	}
	if !finiteNonNegative(in.Cash) || !finiteNonNegative(in.Holding) {
		return fmt.Errorf("%w: cash %v holding %v", ErrInvalidInput, in.Cash, in.Holding)
	}
	return nil
}

type Config struct {
	Cooldown          time.Duration
	MinConfidence     float64
	MinTradeAmount    float64
	MaxTradeAmount    float64
	MinCashFloor      float64
	MinHoldingValue   float64
	OverrideMinAmount float64
	OverrideMaxAmount float64
}

// StrategySource is the read side of the strategy store.
type StrategySource interface {
	Read() models.StrategyConfig
}

type Engine struct {
	cfg         Config
	strategy    StrategySource
	personality domsvc.PersonalitySource
	cooldown    domrepo.Cooldown
	overrides   []Override
	src         rng.Source
	now         func() time.Time
	logger      *applogger.Logger
	metrics     domrepo.Metrics
}

type Option func(*Engine)

func WithRand(src rng.Source) Option { return func(e *Engine) { e.src = src } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithOverrides(o ...Override) Option { return func(e *Engine) { e.overrides = o } }

func WithLogger(l *applogger.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithMetrics(m domrepo.Metrics) Option { return func(e *Engine) { e.metrics = m } }

func NewEngine(cfg Config, strategy StrategySource, personality domsvc.PersonalitySource, cooldown domrepo.Cooldown, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		strategy:    strategy,
		personality: personality,
		cooldown:    cooldown,
		overrides:   DefaultOverrides(),
		src:         rng.Default(),
		now:         time.Now,
		logger:      applogger.Nop(),
		metrics:     domrepo.NopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs one full evaluation. An emitted signal claims the symbol's
// cooldown slot; if another caller claimed it first the result is NO_SIGNAL.
func (e *Engine) Decide(ctx context.Context, in Input) (d models.Decision) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("decision panicked", applogger.Any("panic", fmt.Sprint(r)))
			e.metrics.RecordError("decision")
			d = noSignal("internal error", models.EffectiveThresholds{})
		}
		e.metrics.RecordDecision(symbolOf(in), d.State)
	}()

	if err := in.Validate(); err != nil {
		e.logger.Warn("rejected decision input", applogger.Symbol(symbolOf(in)), applogger.Error(err))
		return noSignal("invalid input", models.EffectiveThresholds{})
	}
	symbol := in.Snapshot.Symbol

	if e.cooldown != nil {
		active, err := e.cooldown.Active(ctx, symbol)
		if err != nil {
			e.logger.Warn("cooldown lookup failed", applogger.Symbol(symbol), applogger.Error(err))
			return noSignal("cooldown unavailable", models.EffectiveThresholds{})
		}
		if active {
			return noSignal("cooldown active", models.EffectiveThresholds{})
		}
	}

	d = e.evaluate(e.strategy.Read(), in, e.src)
	if d.Signal == nil {
		e.logger.Debug("no signal", applogger.Symbol(symbol), applogger.String("reason", d.Reason))
		return d
	}

	if e.cooldown != nil {
		claimed, err := e.cooldown.Claim(ctx, symbol, e.cfg.Cooldown)
		if err != nil || !claimed {
			if err != nil {
				e.logger.Warn("cooldown claim failed", applogger.Symbol(symbol), applogger.Error(err))
			}
			return noSignal("cooldown active", d.Thresholds)
		}
	}

	d.Signal.ID = uuid.NewString()
	d.Signal.CreatedAt = e.now().UTC()
	var tone string
	if e.personality != nil {
		tone = e.personality.Profile().ConfidenceTone
	}
	e.logger.Info("signal emitted",
		applogger.Symbol(symbol),
		applogger.String("state", string(d.State)),
		applogger.String("confidence", ConfidenceLabel(tone, in.Prediction.Probability)),
		applogger.Float64("amount", d.Signal.Amount),
		applogger.Float64("price", d.Signal.Price),
		applogger.String("reason", d.Reason),
	)
	return d
}

// Release frees the cooldown slot claimed for symbol. Callers use it when
// an emitted signal could not be executed.
func (e *Engine) Release(ctx context.Context, symbol string) {
	if e.cooldown == nil {
		return
	}
	if err := e.cooldown.Release(ctx, symbol); err != nil {
		e.logger.Warn("cooldown release failed", applogger.Symbol(symbol), applogger.Error(err))
	}
}

// Replay evaluates cfg against the input without cooldowns, logging or
// randomness. Override amounts are fixed at the lower bound.
func (e *Engine) Replay(cfg models.StrategyConfig, in Input) models.Decision {
	if err := in.Validate(); err != nil {
		return noSignal("invalid input", models.EffectiveThresholds{})
	}
	return e.evaluate(cfg.Normalize(), in, lowerBound{})
}

func (e *Engine) evaluate(cfg models.StrategyConfig, in Input, src rng.Source) models.Decision {
	s := in.Snapshot
	var profile models.PersonalityProfile
	if e.personality != nil {
		profile = e.personality.Profile()
	}
	th := Thresholds(cfg, profile, in.GlobalSentiment)
	if !in.Prediction.Available {
		return noSignal("model unavailable", th)
	}

	canBuy := in.Cash > e.cfg.MinCashFloor
	canSell := in.Holding*s.Price > e.cfg.MinHoldingValue

	for _, o := range e.overrides {
		action, reason, ok := o.Evaluate(in, th)
		if !ok {
			continue
		}
		quote := rng.Uniform(src, e.cfg.OverrideMinAmount, e.cfg.OverrideMaxAmount)
		switch {
		case action == models.ActionBuy && canBuy:
			return signal(models.StateOverride, s, action, quote, reason, th, true)
		case action == models.ActionSell && canSell:
			return signal(models.StateOverride, s, action, math.Min(in.Holding, quote/s.Price), reason, th, true)
		}
	}

	strength := in.Sentiment.SignalStrength()
	pred := in.Prediction

	if pred.Probability >= e.cfg.MinConfidence && s.RSI <= th.Buy && strength > 0 && pred.Rising && canBuy {
		reason := fmt.Sprintf("RSI %.1f at or below %.1f with confidence %.2f", s.RSI, th.Buy, pred.Probability)
		return signal(models.StateBuy, s, models.ActionBuy, e.buyAmount(in), reason, th, false)
	}

	if canSell {
		units := math.Min(in.Holding, e.cfg.MaxTradeAmount/s.Price)
		if s.RSI >= th.Sell && (strength < 0 || !pred.Rising) {
			reason := fmt.Sprintf("RSI %.1f at or above %.1f", s.RSI, th.Sell)
			return signal(models.StateSell, s, models.ActionSell, units, reason, th, false)
		}
		if !pred.Rising {
			return signal(models.StateSell, s, models.ActionSell, units, "defensive exit, price not expected to rise", th, false)
		}
	}

	return noSignal("no rule matched", th)
}

func (e *Engine) buyAmount(in Input) float64 {
	s := in.Snapshot
	liquidity := clamp(minLiquidity, maxLiquidity, s.Volume/1e6)
	u := 1.0
	if math.Abs(s.Change24h) > urgentChange {
		u = urgency
	}
	return clamp(e.cfg.MinTradeAmount, e.cfg.MaxTradeAmount, in.Cash*buyCashFraction*liquidity*u)
}

func signal(state models.DecisionState, s *models.MarketSnapshot, action models.Action, amount float64, reason string, th models.EffectiveThresholds, override bool) models.Decision {
	return models.Decision{
		State: state,
		Signal: &models.TradeSignal{
			Symbol:   s.Symbol,
			Action:   action,
			Amount:   amount,
			Price:    s.Price,
			Reason:   reason,
			Override: override,
		},
		Reason:     reason,
		Thresholds: th,
	}
}

func noSignal(reason string, th models.EffectiveThresholds) models.Decision {
	return models.Decision{State: models.StateNoSignal, Reason: reason, Thresholds: th}
}

func symbolOf(in Input) string {
	if in.Snapshot == nil {
		return ""
	}
	return in.Snapshot.Symbol
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// lowerBound makes every draw return the low end of its range.
type lowerBound struct{}

func (lowerBound) Float64() float64 { return 0 }
func (lowerBound) IntN(int) int     { return 0 }
