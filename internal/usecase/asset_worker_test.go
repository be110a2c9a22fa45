package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/decision"
	"SignalForge/pkg/rng"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMarket struct {
	err error
}

func (m fakeMarket) Snapshot(_ context.Context, symbol string) (*models.MarketSnapshot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.MarketSnapshot{Symbol: symbol, Price: 100, Volume: 2e6, Change24h: 1.5, RSI: 25, Timestamp: time.Now()}, nil
}

type fakeSentiment struct {
	symbol, global models.SentimentSummary
	err            error
}

func (f fakeSentiment) Sentiment(context.Context, string) (models.SentimentSummary, error) {
	return f.symbol, f.err
}

func (f fakeSentiment) Global(context.Context) (models.SentimentSummary, error) {
	return f.global, f.err
}

type fakeGate struct {
	allowed bool
	reason  string
}

func (g fakeGate) Check(*models.MarketSnapshot) (bool, string) { return g.allowed, g.reason }

type fakePredictor struct{ pred models.Prediction }

func (p fakePredictor) Predict(context.Context, *models.MarketSnapshot, models.SentimentSummary) models.Prediction {
	return p.pred
}

type recordingPredictor struct {
	fakePredictor
	seen []models.SentimentSummary
}

func (p *recordingPredictor) Predict(ctx context.Context, s *models.MarketSnapshot, sentiment models.SentimentSummary) models.Prediction {
	p.seen = append(p.seen, sentiment)
	return p.fakePredictor.Predict(ctx, s, sentiment)
}

type fakeDecider struct {
	mu       sync.Mutex
	d        models.Decision
	inputs   []decision.Input
	released []string
	panic    bool
}

func (f *fakeDecider) Release(_ context.Context, symbol string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, symbol)
}

func (f *fakeDecider) Decide(_ context.Context, in decision.Input) models.Decision {
	if f.panic {
		panic("boom")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return f.d
}

type fakeWallet struct {
	cash, holding float64
	exec          *models.Execution
	err           error
}

func (w *fakeWallet) Cash(context.Context) (float64, error)            { return w.cash, nil }
func (w *fakeWallet) Balance(context.Context, string) (float64, error) { return w.holding, nil }
func (w *fakeWallet) Execute(_ context.Context, s *models.TradeSignal, _ *models.MarketSnapshot) (*models.Execution, error) {
	if w.err != nil {
		return nil, w.err
	}
	if w.exec != nil {
		return w.exec, nil
	}
	return &models.Execution{SignalID: s.ID, Filled: s.Amount, Outcome: models.OutcomePending}, nil
}

type memPatterns struct {
	mu   sync.Mutex
	recs []models.PatternRecord
}

func (m *memPatterns) Append(_ context.Context, r models.PatternRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, r)
	return nil
}

func (m *memPatterns) Snapshot() []models.PatternRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PatternRecord(nil), m.recs...)
}

type recordingSink struct {
	mu   sync.Mutex
	sent []*models.TradeSignal
}

func (s *recordingSink) Dispatch(_ context.Context, sig *models.TradeSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sig)
	return nil
}

func buyDecision() models.Decision {
	return models.Decision{
		State:  models.StateBuy,
		Reason: "rsi low",
		Signal: &models.TradeSignal{ID: "sig-1", Symbol: "bitcoin", Action: models.ActionBuy, Amount: 15, Price: 100},
	}
}

type workerFixture struct {
	market    fakeMarket
	sentiment fakeSentiment
	gate      fakeGate
	decider   *fakeDecider
	wallet    *fakeWallet
	patterns  *memPatterns
	sink      *recordingSink
}

func newFixture() *workerFixture {
	return &workerFixture{
		sentiment: fakeSentiment{
			symbol: models.SentimentSummary{Positive: 3, Negative: 1},
			global: models.SentimentSummary{Positive: 10, Negative: 2, Neutral: 4},
		},
		gate:     fakeGate{allowed: true},
		decider:  &fakeDecider{d: models.Decision{State: models.StateNoSignal, Reason: "no rule matched"}},
		wallet:   &fakeWallet{cash: 100, holding: 0.5},
		patterns: &memPatterns{},
		sink:     &recordingSink{},
	}
}

func (f *workerFixture) worker(opts ...WorkerOption) *AssetWorker {
	opts = append([]WorkerOption{WithSignalSink(f.sink)}, opts...)
	return NewAssetWorker([]string{"bitcoin", "ethereum"}, f.market, f.sentiment, f.gate,
		fakePredictor{pred: models.Prediction{Probability: 0.7, Rising: true, Available: true}},
		f.decider, f.wallet, f.patterns, opts...)
}

func TestCycleGateRejectionLeavesNoRecord(t *testing.T) {
	f := newFixture()
	f.gate = fakeGate{allowed: false, reason: "low_volume"}

	res, err := f.worker().Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, models.StateNoSignal, res.Decision.State)
	assert.Equal(t, "gate: low_volume", res.Decision.Reason)
	assert.Empty(t, f.patterns.recs)
	assert.Empty(t, f.decider.inputs)
}

func TestCycleExecutesAndRecords(t *testing.T) {
	f := newFixture()
	f.decider.d = buyDecision()
	at := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)

	res, err := f.worker(WithWorkerClock(func() time.Time { return at })).Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.NotNil(t, res.Execution)

	require.Len(t, f.decider.inputs, 1)
	in := f.decider.inputs[0]
	assert.Equal(t, 100.0, in.Cash)
	assert.Equal(t, 0.5, in.Holding)
	assert.Equal(t, 10, in.GlobalSentiment.Positive)
	assert.Equal(t, 13, in.Sentiment.Positive)
	assert.Equal(t, 0.7, in.Snapshot.Confidence)

	require.Len(t, f.patterns.recs, 1)
	rec := f.patterns.recs[0]
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, models.ActionBuy, rec.TradeAction)
	assert.Equal(t, models.OutcomePending, rec.Outcome)
	assert.Equal(t, 10.0, rec.SentimentScore)
	assert.Equal(t, 0.7, rec.Confidence)
	assert.Equal(t, 25.0, rec.RSI)
	assert.Equal(t, at, rec.Timestamp)

	require.Len(t, f.sink.sent, 1)
	assert.Equal(t, "sig-1", f.sink.sent[0].ID)
	assert.Empty(t, f.decider.released)
}

func TestCycleSellRecordsOutcome(t *testing.T) {
	f := newFixture()
	d := buyDecision()
	d.State = models.StateSell
	d.Signal.Action = models.ActionSell
	f.decider.d = d
	f.wallet.exec = &models.Execution{SignalID: "sig-1", Filled: 0.1, Outcome: models.OutcomeProfit, Gain: 1.25}

	_, err := f.worker().Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, f.patterns.recs, 1)
	assert.Equal(t, models.ActionSell, f.patterns.recs[0].TradeAction)
	assert.Equal(t, models.OutcomeProfit, f.patterns.recs[0].Outcome)
	assert.Equal(t, 1.25, f.patterns.recs[0].Gain)
}

func TestCycleNoSignalRecordsNone(t *testing.T) {
	f := newFixture()

	res, err := f.worker().Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	assert.Nil(t, res.Execution)
	require.Len(t, f.patterns.recs, 1)
	assert.Equal(t, models.ActionNone, f.patterns.recs[0].TradeAction)
	assert.Equal(t, models.OutcomeNeutral, f.patterns.recs[0].Outcome)
	assert.Empty(t, f.sink.sent)
}

func TestCycleFailedExecutionRecordsNone(t *testing.T) {
	f := newFixture()
	f.decider.d = buyDecision()
	f.wallet.err = errors.New("insufficient funds")

	_, err := f.worker().Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, f.patterns.recs, 1)
	assert.Equal(t, models.ActionNone, f.patterns.recs[0].TradeAction)
	assert.Empty(t, f.sink.sent)
	assert.Equal(t, []string{"bitcoin"}, f.decider.released)
}

func TestCycleMarketUnavailable(t *testing.T) {
	f := newFixture()
	f.market = fakeMarket{err: models.ErrDataUnavailable}

	_, err := f.worker().Cycle(context.Background(), "bitcoin")
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
	assert.Empty(t, f.patterns.recs)
}

func TestCycleCombinesSymbolAndGlobalSentiment(t *testing.T) {
	f := newFixture()
	pred := &recordingPredictor{fakePredictor: fakePredictor{pred: models.Prediction{Probability: 0.4, Available: true}}}
	w := NewAssetWorker([]string{"bitcoin"}, f.market, f.sentiment, f.gate, pred, f.decider, f.wallet, f.patterns)

	res, err := w.Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)

	combined := models.SentimentSummary{Positive: 13, Negative: 3, Neutral: 4}
	require.Len(t, pred.seen, 1)
	assert.Equal(t, combined, pred.seen[0])

	require.Len(t, f.decider.inputs, 1)
	assert.Equal(t, combined, f.decider.inputs[0].Sentiment)
	assert.Equal(t, models.SentimentSummary{Positive: 10, Negative: 2, Neutral: 4}, f.decider.inputs[0].GlobalSentiment)

	require.NotNil(t, res.Record)
	assert.Equal(t, combined, res.Record.Sentiment)
	assert.Equal(t, 10.0, res.Record.SentimentScore)
	assert.Equal(t, 0.4, res.Record.Confidence)
	assert.Equal(t, 0.4, res.Snapshot.Confidence)
}

func TestCycleSentimentFailureCountsAsNoHeadlines(t *testing.T) {
	f := newFixture()
	f.sentiment.err = errors.New("reddit down")

	_, err := f.worker().Cycle(context.Background(), "bitcoin")
	require.NoError(t, err)
	require.Len(t, f.decider.inputs, 1)
	assert.Zero(t, f.decider.inputs[0].Sentiment.Total())
	assert.Zero(t, f.decider.inputs[0].GlobalSentiment.Total())
}

func TestSafeCycleRecoversPanic(t *testing.T) {
	f := newFixture()
	f.decider.panic = true

	_, err := f.worker().safeCycle(context.Background(), "bitcoin")
	assert.ErrorContains(t, err, "panic")
}

func TestRunLoopsEverySymbolUntilCancelled(t *testing.T) {
	f := newFixture()
	w := f.worker(WithDelay(time.Millisecond, 2*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool {
		seen := map[string]bool{}
		for _, r := range f.patterns.Snapshot() {
			seen[r.Symbol] = true
		}
		return seen["bitcoin"] && seen["ethereum"]
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestDelayIsUniformWithinBounds(t *testing.T) {
	src := &rng.Sequence{Floats: []float64{0, 0.5, 0.999}}
	w := newFixture().worker(WithDelay(time.Second, 3*time.Second), WithWorkerRand(src))

	assert.Equal(t, time.Second, w.delay())
	assert.Equal(t, 2*time.Second, w.delay())
	d := w.delay()
	assert.Greater(t, d, 2900*time.Millisecond)
	assert.Less(t, d, 3*time.Second)
}
