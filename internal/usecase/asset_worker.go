package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	domsvc "SignalForge/internal/domain/service"
	"SignalForge/internal/services/decision"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

type Gate interface {
	Check(s *models.MarketSnapshot) (bool, string)
}

type Predictor interface {
	Predict(ctx context.Context, s *models.MarketSnapshot, sentiment models.SentimentSummary) models.Prediction
}

type Decider interface {
	Decide(ctx context.Context, in decision.Input) models.Decision
	Release(ctx context.Context, symbol string)
}

type PatternRecorder interface {
	Append(ctx context.Context, rec models.PatternRecord) error
}

// SignalSink receives every executed signal.
type SignalSink interface {
	Dispatch(ctx context.Context, s *models.TradeSignal) error
}

// CycleResult describes one pass of the pipeline for a symbol.
type CycleResult struct {
	Symbol     string
	Snapshot   *models.MarketSnapshot
	Allowed    bool
	GateReason string
	Prediction models.Prediction
	Decision   models.Decision
	Execution  *models.Execution
	Record     *models.PatternRecord
}

// AssetWorker runs the gate, predictor and decision engine for every tracked
// symbol. Each symbol loops on its own goroutine with a randomised delay.
type AssetWorker struct {
	symbols   []string
	market    domsvc.MarketData
	sentiment domsvc.Sentiment
	gate      Gate
	predictor Predictor
	decider   Decider
	wallet    domsvc.Wallet
	patterns  PatternRecorder
	sink      SignalSink

	minDelay time.Duration
	maxDelay time.Duration
	src      rng.Source
	now      func() time.Time
	metrics  domrepo.Metrics
	logger   *applogger.Logger
}

type WorkerOption func(*AssetWorker)

func WithDelay(min, max time.Duration) WorkerOption {
	return func(w *AssetWorker) { w.minDelay, w.maxDelay = min, max }
}

func WithWorkerRand(src rng.Source) WorkerOption { return func(w *AssetWorker) { w.src = src } }

func WithWorkerClock(now func() time.Time) WorkerOption { return func(w *AssetWorker) { w.now = now } }

func WithSignalSink(s SignalSink) WorkerOption { return func(w *AssetWorker) { w.sink = s } }

func WithWorkerMetrics(m domrepo.Metrics) WorkerOption {
	return func(w *AssetWorker) { w.metrics = m }
}

func WithWorkerLogger(l *applogger.Logger) WorkerOption {
	return func(w *AssetWorker) { w.logger = l }
}

func NewAssetWorker(
	symbols []string,
	market domsvc.MarketData,
	sentiment domsvc.Sentiment,
	gate Gate,
	predictor Predictor,
	decider Decider,
	wallet domsvc.Wallet,
	patterns PatternRecorder,
	opts ...WorkerOption,
) *AssetWorker {
	w := &AssetWorker{
		symbols:   symbols,
		market:    market,
		sentiment: sentiment,
		gate:      gate,
		predictor: predictor,
		decider:   decider,
		wallet:    wallet,
		patterns:  patterns,
		minDelay:  2500 * time.Millisecond,
		maxDelay:  5500 * time.Millisecond,
		src:       rng.Default(),
		now:       time.Now,
		metrics:   domrepo.NopMetrics{},
		logger:    applogger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts one loop per symbol and blocks until ctx is cancelled.
func (w *AssetWorker) Run(ctx context.Context) error {
	w.logger.Info("starting asset workers",
		applogger.Strings("symbols", w.symbols),
		applogger.Duration("min_delay", w.minDelay),
		applogger.Duration("max_delay", w.maxDelay))
	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range w.symbols {
		g.Go(func() error {
			w.loop(ctx, symbol)
			return nil
		})
	}
	return g.Wait()
}

func (w *AssetWorker) loop(ctx context.Context, symbol string) {
	w.logger.Info("asset worker started", applogger.Symbol(symbol))
	for {
		if _, err := w.safeCycle(ctx, symbol); err != nil && ctx.Err() == nil {
			w.logger.Warn("cycle failed", applogger.Symbol(symbol), applogger.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("asset worker stopped", applogger.Symbol(symbol))
			return
		case <-time.After(w.delay()):
		}
	}
}

func (w *AssetWorker) delay() time.Duration {
	lo, hi := float64(w.minDelay), float64(w.maxDelay)
	return time.Duration(rng.Uniform(w.src, lo, hi))
}

func (w *AssetWorker) safeCycle(ctx context.Context, symbol string) (res *CycleResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.metrics.RecordError("worker_panic")
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return w.Cycle(ctx, symbol)
}

// Cycle runs the pipeline once for symbol. A gate rejection is not an error
// and leaves no pattern record.
func (w *AssetWorker) Cycle(ctx context.Context, symbol string) (*CycleResult, error) {
	start := time.Now()
	defer func() { w.metrics.RecordLatency("cycle", time.Since(start).Seconds()) }()

	snap, err := w.market.Snapshot(ctx, symbol)
	if err != nil {
		w.metrics.RecordError("market")
		return nil, fmt.Errorf("snapshot %s: %w", symbol, err)
	}
	res := &CycleResult{Symbol: symbol, Snapshot: snap}

	res.Allowed, res.GateReason = w.gate.Check(snap)
	if !res.Allowed {
		w.logger.Debug("gate rejected", applogger.Symbol(symbol), applogger.String("reason", res.GateReason))
		res.Decision = models.Decision{State: models.StateNoSignal, Reason: "gate: " + res.GateReason}
		return res, nil
	}

	global := w.summary(ctx, symbol, true)
	sentiment := w.summary(ctx, symbol, false).Add(global)

	res.Prediction = w.predictor.Predict(ctx, snap, sentiment)
	snap = snap.WithConfidence(res.Prediction.Probability)
	res.Snapshot = snap

	cash, holding, err := w.balances(ctx, symbol)
	if err != nil {
		w.metrics.RecordError("wallet")
		return nil, err
	}

	res.Decision = w.decider.Decide(ctx, decision.Input{
		Snapshot:        snap,
		Sentiment:       sentiment,
		GlobalSentiment: global,
		Prediction:      res.Prediction,
		Cash:            cash,
		Holding:         holding,
	})

	outcome, gain := models.OutcomeNeutral, 0.0
	if sig := res.Decision.Signal; sig != nil {
		exec, err := w.wallet.Execute(ctx, sig, snap)
		if err != nil {
			w.metrics.RecordError("execute")
			w.decider.Release(ctx, symbol)
			w.logger.Warn("signal not executed",
				applogger.Symbol(symbol),
				applogger.String("signal_id", sig.ID),
				applogger.Error(err))
		} else {
			res.Execution = exec
			outcome, gain = exec.Outcome, exec.Gain
			w.logger.Info("signal executed",
				applogger.Symbol(symbol),
				applogger.String("action", string(sig.Action)),
				applogger.Float64("amount", sig.Amount),
				applogger.Float64("price", sig.Price),
				applogger.String("reason", sig.Reason))
			if w.sink != nil {
				if err := w.sink.Dispatch(ctx, sig); err != nil {
					w.logger.Warn("signal publish deferred", applogger.Symbol(symbol), applogger.Error(err))
				}
			}
		}
	}

	rec := models.PatternRecord{
		ID:             uuid.NewString(),
		Timestamp:      w.now().UTC(),
		Symbol:         symbol,
		Price:          snap.Price,
		RSI:            snap.RSI,
		Volume:         snap.Volume,
		Change24h:      snap.Change24h,
		Sentiment:      sentiment,
		SentimentScore: sentiment.Score(),
		Confidence:     snap.Confidence,
		TradeAction:    res.Decision.Action(),
		Outcome:        outcome,
		Gain:           gain,
	}
	if res.Execution == nil {
		rec.TradeAction = models.ActionNone
	}
	if err := w.patterns.Append(ctx, rec); err != nil {
		w.metrics.RecordError("patterns")
		return res, fmt.Errorf("record pattern %s: %w", symbol, err)
	}
	res.Record = &rec
	return res, nil
}

// summary reads per-symbol or global sentiment. Failures count as no
// headlines.
func (w *AssetWorker) summary(ctx context.Context, symbol string, global bool) models.SentimentSummary {
	var (
		s   models.SentimentSummary
		err error
	)
	if global {
		s, err = w.sentiment.Global(ctx)
	} else {
		s, err = w.sentiment.Sentiment(ctx, symbol)
	}
	if err != nil {
		w.metrics.RecordError("sentiment")
		w.logger.Warn("sentiment unavailable",
			applogger.Symbol(symbol),
			applogger.Bool("global", global),
			applogger.Error(err))
		return models.SentimentSummary{}
	}
	return s
}

func (w *AssetWorker) balances(ctx context.Context, symbol string) (float64, float64, error) {
	cash, err := w.wallet.Cash(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("wallet cash: %w", err)
	}
	holding, err := w.wallet.Balance(ctx, symbol)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return 0, 0, fmt.Errorf("wallet balance %s: %w", symbol, err)
	}
	return cash, holding, nil
}
