package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/calibration"
	"SignalForge/internal/services/decision"
	"SignalForge/internal/usecase"
	"SignalForge/pkg/cache"
	xhttp "SignalForge/pkg/http"
)

type fakeStrategy struct {
	cfg     models.StrategyConfig
	patches []models.StrategyPatch
}

func (f *fakeStrategy) Read() models.StrategyConfig { return f.cfg }

func (f *fakeStrategy) Profile() models.PersonalityProfile {
	return models.PersonalityProfile{RiskProfile: "bold"}
}

func (f *fakeStrategy) Update(_ context.Context, p models.StrategyPatch) error {
	f.patches = append(f.patches, p)
	f.cfg = p.Apply(f.cfg)
	return nil
}

func (f *fakeStrategy) History(context.Context) ([]models.StrategyUpdate, error) {
	return nil, nil
}

type fakeCalibration struct {
	replays   []models.ReplayResult
	replayErr error
	applied   bool
}

func (f *fakeCalibration) ReplayLog(context.Context) ([]models.ReplayResult, error) {
	return f.replays, nil
}

func (f *fakeCalibration) MutationLog(context.Context) ([]models.MutationRecord, error) {
	return nil, nil
}

func (f *fakeCalibration) CloneLog(context.Context) ([]models.CloneRun, error) { return nil, nil }

func (f *fakeCalibration) RunReplay(context.Context) (models.ReplayResult, error) {
	return models.ReplayResult{}, f.replayErr
}

func (f *fakeCalibration) RunMutation(context.Context) (models.MutationRecord, error) {
	return models.MutationRecord{}, calibration.ErrNoReplay
}

func (f *fakeCalibration) Simulate(context.Context) (models.CloneRun, error) {
	return models.CloneRun{}, nil
}

func (f *fakeCalibration) ApplyBest(context.Context) (models.CloneRun, error) {
	f.applied = true
	return models.CloneRun{}, nil
}

type openGate struct{}

func (openGate) Check(*models.MarketSnapshot) (bool, string) { return true, "" }

type flatPredictor struct{}

func (flatPredictor) Predict(context.Context, *models.MarketSnapshot, models.SentimentSummary) models.Prediction {
	return models.Prediction{Probability: 0.7, Rising: true, Available: true}
}

type echoReplayer struct{}

func (echoReplayer) Replay(cfg models.StrategyConfig, in decision.Input) models.Decision {
	return models.Decision{State: models.StateNoSignal, Reason: "replayed " + in.Snapshot.Symbol}
}

type patternSlice []models.PatternRecord

func (p patternSlice) Snapshot() []models.PatternRecord { return p }

type fixture struct {
	e        *echo.Echo
	strategy *fakeStrategy
	cal      *fakeCalibration
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		e:        echo.New(),
		strategy: &fakeStrategy{cfg: models.DefaultStrategy()},
		cal:      &fakeCalibration{},
	}
	mem := patternSlice{
		{Symbol: "bitcoin", Timestamp: time.Unix(100, 0).UTC()},
		{Symbol: "ethereum", Timestamp: time.Unix(200, 0).UTC()},
	}
	h := NewHandler(nil, f.strategy, f.cal,
		usecase.NewEvaluateUseCase(openGate{}, flatPredictor{}, f.strategy, echoReplayer{}),
		usecase.NewPatternsUseCase(mem, nil),
		usecase.NewOverviewUseCase(f.strategy, f.cal, mem, nil, nil),
		opts...,
	)
	h.RegisterRoutes(f.e)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestGetStrategy(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/strategy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.StrategyResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &got))
	assert.Equal(t, models.DefaultStrategy().BuyRSIThreshold, got.Strategy.BuyRSIThreshold)
	assert.Equal(t, "bold", got.Personality.RiskProfile)
}

func TestPatchStrategy(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPatch, "/api/strategy", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.strategy.patches)

	rec = f.do(http.MethodPatch, "/api/strategy", `{"buy_rsi_threshold": 28}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.strategy.patches, 1)
	assert.Equal(t, 28.0, *f.strategy.patches[0].BuyRSIThreshold)

	rec = f.do(http.MethodPatch, "/api/strategy", `{"sentiment_bias": 4}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalibrationErrorsMapToConflict(t *testing.T) {
	f := newFixture(t)
	f.cal.replayErr = calibration.ErrNoHistory

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/calibration/replay", "").Code)
	assert.Equal(t, http.StatusConflict, f.do(http.MethodPost, "/api/calibration/mutate", "").Code)
}

func TestRunClonesApply(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/calibration/clones", "").Code)
	assert.False(t, f.cal.applied)

	require.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/calibration/clones?apply=true", "").Code)
	assert.True(t, f.cal.applied)
}

func TestReplayLogLimit(t *testing.T) {
	f := newFixture(t)
	f.cal.replays = []models.ReplayResult{{Matched: 1}, {Matched: 2}, {Matched: 3}}

	rec := f.do(http.MethodGet, "/api/calibration/replay?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var list struct {
		Rows  []models.ReplayResult `json:"rows"`
		Total int64                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &list))
	assert.EqualValues(t, 3, list.Total)
	require.Len(t, list.Rows, 2)
	assert.Equal(t, 2, list.Rows[0].Matched)
	assert.Equal(t, 3, list.Rows[1].Matched)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/calibration/replay?limit=501", "").Code)
}

func TestPatterns(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/api/patterns?symbol=ethereum", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var res usecase.GetPatternsResult
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	require.Equal(t, 1, res.Count)
	assert.Equal(t, "ethereum", res.Records[0].Symbol)

	bad := f.do(http.MethodGet, "/api/patterns?from=yesterday", "")
	require.Equal(t, http.StatusBadRequest, bad.Code)
	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(decode(t, bad).Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_INVALID_TIME", errs[0].Code)
	assert.Equal(t, "from", errs[0].Field)
	assert.Equal(t, "yesterday", errs[0].Params["value"])

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/patterns?source=disk", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/patterns?source=archive", "").Code)
}

func TestEvaluate(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/api/evaluate", `{"symbol":"bitcoin","price":50000,"volume":2000000,"rsi":25}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.EvaluateResponse
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &res))
	assert.True(t, res.Allowed)
	assert.Equal(t, "replayed bitcoin", res.Decision.Reason)
	assert.InDelta(t, 0.7, res.Prediction.Probability, 1e-9)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/evaluate", `{"symbol":"bitcoin","price":0}`).Code)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var ov models.Overview
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &ov))
	assert.Equal(t, 2, ov.Patterns)
	assert.Nil(t, ov.Wallet)
}

func TestWalletRouteOptional(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/wallet", "").Code)

	f = newFixture(t, WithWallet(holdings{USD: 900}))
	rec := f.do(http.MethodGet, "/api/wallet", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "900")
}

type countingArchive struct{ queries int }

func (a *countingArchive) Init(context.Context) error                         { return nil }
func (a *countingArchive) Store(context.Context, *models.PatternRecord) error { return nil }
func (a *countingArchive) StoreBatch(context.Context, []*models.PatternRecord) error {
	return nil
}
func (a *countingArchive) Health(context.Context) error { return nil }
func (a *countingArchive) Close() error                 { return nil }

func (a *countingArchive) Query(_ context.Context, symbol string, _, _ time.Time, _ int) ([]models.PatternRecord, error) {
	a.queries++
	return []models.PatternRecord{{Symbol: symbol}}, nil
}

func TestArchivePatternsAreCached(t *testing.T) {
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	archive := &countingArchive{}

	e := echo.New()
	strategy := &fakeStrategy{cfg: models.DefaultStrategy()}
	NewHandler(nil, strategy, &fakeCalibration{},
		usecase.NewEvaluateUseCase(openGate{}, flatPredictor{}, strategy, echoReplayer{}),
		usecase.NewPatternsUseCase(patternSlice{}, archive),
		usecase.NewOverviewUseCase(strategy, &fakeCalibration{}, patternSlice{}, nil, archive),
		WithResponseCache(mc, time.Minute),
	).RegisterRoutes(e)
	f := &fixture{e: e}

	first := f.do(http.MethodGet, "/api/patterns?source=archive&symbol=bitcoin", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := f.do(http.MethodGet, "/api/patterns?source=archive&symbol=bitcoin", "")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, 1, archive.queries)

	mem := f.do(http.MethodGet, "/api/patterns", "")
	require.Equal(t, http.StatusOK, mem.Code)
	assert.Empty(t, mem.Header().Get("X-Cache"))
}

type holdings models.WalletHoldings

func (h holdings) Holdings() models.WalletHoldings { return models.WalletHoldings(h) }
