package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/repository"
)

type fixedModel struct {
	p   float64
	err error
}

func (f fixedModel) Probability(context.Context, []float64) (float64, error) { return f.p, f.err }

type panicModel struct{}

func (panicModel) Probability(context.Context, []float64) (float64, error) { panic("bad weights") }

func snap() *models.MarketSnapshot {
	return &models.MarketSnapshot{Symbol: "bitcoin", Price: 100, Volume: 1e6, Change24h: 2, RSI: 40, Timestamp: time.Now()}
}

func TestPredictThreshold(t *testing.T) {
	ctx := context.Background()
	neutral := models.SentimentSummary{Positive: 1, Negative: 1}

	p := New(0.65, fixedModel{p: 0.65}, nil, nil)
	pred := p.Predict(ctx, snap(), neutral)
	assert.True(t, pred.Available)
	assert.True(t, pred.Rising)
	assert.Equal(t, 0.65, pred.Probability)

	p.SetModel(fixedModel{p: 0.64})
	pred = p.Predict(ctx, snap(), neutral)
	assert.False(t, pred.Rising)
}

func TestPredictSentimentBias(t *testing.T) {
	ctx := context.Background()
	p := New(0.65, fixedModel{p: 0.62}, nil, nil)

	pred := p.Predict(ctx, snap(), models.SentimentSummary{Positive: 5})
	assert.InDelta(t, 0.67, pred.Probability, 1e-9)
	assert.True(t, pred.Rising)

	pred = p.Predict(ctx, snap(), models.SentimentSummary{Negative: 4})
	assert.InDelta(t, 0.57, pred.Probability, 1e-9)

	// Exactly 3 is not beyond the limit.
	pred = p.Predict(ctx, snap(), models.SentimentSummary{Positive: 3})
	assert.InDelta(t, 0.62, pred.Probability, 1e-9)

	p.SetModel(fixedModel{p: 0.98})
	pred = p.Predict(ctx, snap(), models.SentimentSummary{Positive: 10})
	assert.Equal(t, 1.0, pred.Probability)

	p.SetModel(fixedModel{p: 0.01})
	pred = p.Predict(ctx, snap(), models.SentimentSummary{Negative: 10})
	assert.Equal(t, 0.0, pred.Probability)
}

func TestPredictModelUnavailable(t *testing.T) {
	ctx := context.Background()
	want := models.Prediction{}

	assert.Equal(t, want, New(0.65, nil, nil, nil).Predict(ctx, snap(), models.SentimentSummary{}))
	assert.Equal(t, want, New(0.65, fixedModel{err: errors.New("down")}, nil, nil).Predict(ctx, snap(), models.SentimentSummary{}))
	assert.Equal(t, want, New(0.65, panicModel{}, nil, nil).Predict(ctx, snap(), models.SentimentSummary{}))
}

func separableRecords(n int) []models.PatternRecord {
	recs := make([]models.PatternRecord, 0, n)
	for i := 0; i < n; i++ {
		r := models.PatternRecord{Symbol: "bitcoin", Volume: 1000, RSI: 20, Price: 100}
		if i%2 == 1 {
			r.RSI, r.Price = 80, 110
		}
		recs = append(recs, r)
	}
	return recs
}

func TestLabelUsesNextRecordOfSameSymbol(t *testing.T) {
	recs := []models.PatternRecord{
		{Symbol: "a", Price: 10, RSI: 1},
		{Symbol: "b", Price: 50, RSI: 2},
		{Symbol: "a", Price: 12, RSI: 3},
		{Symbol: "b", Price: 40, RSI: 4},
		{Symbol: "a", Price: 11, RSI: 5},
	}
	x, y := Label(recs)
	require.Len(t, x, 3)
	assert.Equal(t, []float64{1, 0, 0}, y)
	assert.Equal(t, 1.0, x[0][0])
	assert.Equal(t, 2.0, x[1][0])
	assert.Equal(t, 3.0, x[2][0])
}

type staticPatterns []models.PatternRecord

func (s staticPatterns) Snapshot() []models.PatternRecord { return s }

func newTrainer(t *testing.T, recs []models.PatternRecord) (*Trainer, *Predictor, *repository.FileStore) {
	t.Helper()
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	p := New(0.65, nil, nil, nil)
	cfg := TrainerConfig{MinRows: 20, MinAccuracy: 0.6, Epochs: 500, LearningRate: 0.1}
	return NewTrainer(cfg, staticPatterns(recs), docs, p, nil), p, docs
}

func TestTrainerKeepsAccurateModel(t *testing.T) {
	ctx := context.Background()
	tr, p, docs := newTrainer(t, separableRecords(41))

	res, err := tr.Train(ctx)
	require.NoError(t, err)
	assert.True(t, res.Kept)
	assert.Equal(t, 40, res.Rows)
	assert.Equal(t, 1.0, res.Accuracy)
	require.NotNil(t, p.Model())

	low := p.Predict(ctx, &models.MarketSnapshot{Symbol: "bitcoin", Price: 100, Volume: 1000, RSI: 20}, models.SentimentSummary{})
	high := p.Predict(ctx, &models.MarketSnapshot{Symbol: "bitcoin", Price: 100, Volume: 1000, RSI: 80}, models.SentimentSummary{})
	assert.Greater(t, low.Probability, high.Probability)

	loaded, err := LoadLogistic(ctx, docs)
	require.NoError(t, err)
	assert.Equal(t, 40, loaded.Rows)
}

func TestTrainerRejections(t *testing.T) {
	ctx := context.Background()

	tr, p, _ := newTrainer(t, separableRecords(15))
	_, err := tr.Train(ctx)
	assert.ErrorIs(t, err, ErrNotEnoughData)
	assert.Nil(t, p.Model())

	// Identical features with alternating labels cannot beat a coin flip.
	flat := separableRecords(41)
	for i := range flat {
		flat[i].RSI = 50
	}
	tr, p, _ = newTrainer(t, flat)
	res, err := tr.Train(ctx)
	assert.ErrorIs(t, err, ErrLowAccuracy)
	assert.False(t, res.Kept)
	assert.Nil(t, p.Model())

	rising := make([]models.PatternRecord, 30)
	for i := range rising {
		rising[i] = models.PatternRecord{Symbol: "a", Price: float64(i + 1), RSI: float64(i)}
	}
	tr, _, _ = newTrainer(t, rising)
	_, err = tr.Train(ctx)
	assert.ErrorIs(t, err, ErrSingleClass)
}

type accuracyGauges struct {
	domrepo.NopMetrics
	replay, model []float64
}

func (m *accuracyGauges) RecordAccuracy(a float64)      { m.replay = append(m.replay, a) }
func (m *accuracyGauges) RecordModelAccuracy(a float64) { m.model = append(m.model, a) }

func TestRetrainRecordsModelAccuracyOnly(t *testing.T) {
	ctx := context.Background()
	m := &accuracyGauges{}

	tr, _, _ := newTrainer(t, separableRecords(41))
	tr.SetMetrics(m)
	require.NoError(t, tr.Retrain(ctx))
	assert.Equal(t, []float64{1.0}, m.model)
	assert.Empty(t, m.replay)

	tr, _, _ = newTrainer(t, separableRecords(15))
	tr.SetMetrics(m)
	assert.NoError(t, tr.Retrain(ctx), "too little data is not a failure")
	assert.Len(t, m.model, 1)
}

func TestLoadLogisticMissing(t *testing.T) {
	docs, err := repository.NewFileStore(t.TempDir())
	require.NoError(t, err)
	_, err = LoadLogistic(context.Background(), docs)
	assert.ErrorIs(t, err, models.ErrModelUnavailable)
}

func TestRemoteModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/predict", r.URL.Path)
		var req predictReq
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 42.0, req.Features["rsi"])
		_ = json.NewEncoder(w).Encode(predictResp{Probability: 0.7})
	}))
	defer srv.Close()

	m := NewRemoteModel(srv.URL, time.Second)
	p, err := m.Probability(context.Background(), []float64{42, 1000, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.7, p)
}

func TestRemoteModelFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	pred := New(0.65, NewRemoteModel(srv.URL, time.Second), nil, nil).
		Predict(context.Background(), snap(), models.SentimentSummary{})
	assert.False(t, pred.Available)
	assert.Equal(t, 2, calls)
}

func TestRemoteModelDoesNotRetryBadRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewRemoteModel(srv.URL, time.Second).Probability(context.Background(), []float64{42, 1000, 1})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
