package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/rng"
)

type rejections struct {
	domrepo.NopMetrics
	reasons []string
}

func (r *rejections) RecordGateRejection(reason string) { r.reasons = append(r.reasons, reason) }

var noon = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(t time.Time) func() time.Time { return func() time.Time { return t } }

func snapshot(volume, change, rsi float64) *models.MarketSnapshot {
	return &models.MarketSnapshot{
		Symbol:    "bitcoin",
		Price:     50000,
		Volume:    volume,
		Change24h: change,
		RSI:       rsi,
		Timestamp: noon,
	}
}

func TestGateAcceptsHealthySnapshot(t *testing.T) {
	g := New(100000, WithClock(at(noon)), WithRand(&rng.Sequence{Floats: []float64{0}}))
	ok, reason := g.Check(snapshot(2_000_000, 5, 45))
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestGateRejectsLowVolume(t *testing.T) {
	m := &rejections{}
	g := New(100000, WithClock(at(noon)), WithMetrics(m))
	ok, reason := g.Check(snapshot(99_999, 5, 45))
	assert.False(t, ok)
	assert.Equal(t, ReasonLowVolume, reason)
	assert.Equal(t, []string{ReasonLowVolume}, m.reasons)
}

func TestGateVolatileMarket(t *testing.T) {
	g := New(0, WithClock(at(noon)), WithRand(&rng.Sequence{Floats: []float64{0.99}}))

	ok, reason := g.Check(snapshot(1e6, -20, 25))
	assert.False(t, ok)
	assert.Equal(t, ReasonVolatile, reason)

	ok, _ = g.Check(snapshot(1e6, 18, 75))
	assert.False(t, ok)

	// Big moves inside the neutral RSI band pass.
	ok, _ = g.Check(snapshot(1e6, 18, 50))
	assert.True(t, ok)
}

func TestGateStagnantMarketUsesFreshDraws(t *testing.T) {
	src := &rng.Sequence{Floats: []float64{0.2, 0.7}}
	g := New(0, WithClock(at(noon)), WithRand(src))
	s := snapshot(1e6, 0.3, 50)

	ok, reason := g.Check(s)
	assert.False(t, ok)
	assert.Equal(t, ReasonStagnant, reason)

	ok, _ = g.Check(s)
	assert.True(t, ok)
}

func TestGateQuietHours(t *testing.T) {
	threeAM := time.Date(2024, 5, 1, 3, 30, 0, 0, time.UTC)

	g := New(0, WithClock(at(threeAM)), WithRand(&rng.Sequence{Floats: []float64{0.39}}))
	ok, reason := g.Check(snapshot(1e6, 5, 50))
	assert.False(t, ok)
	assert.Equal(t, ReasonQuietHours, reason)

	g = New(0, WithClock(at(threeAM)), WithRand(&rng.Sequence{Floats: []float64{0.4}}))
	assert.True(t, g.Allowed(snapshot(1e6, 5, 50)))

	// Hour boundaries are inclusive on both ends and evaluated in UTC.
	local := time.FixedZone("UTC+5", 5*3600)
	fourLocal := time.Date(2024, 5, 1, 9, 59, 0, 0, local) // 04:59 UTC
	g = New(0, WithClock(at(fourLocal)), WithRand(&rng.Sequence{Floats: []float64{0}}))
	assert.False(t, g.Allowed(snapshot(1e6, 5, 50)))

	five := time.Date(2024, 5, 1, 5, 0, 0, 0, time.UTC)
	g = New(0, WithClock(at(five)), WithRand(&rng.Sequence{Floats: []float64{0}}))
	assert.True(t, g.Allowed(snapshot(1e6, 5, 50)))
}

func TestGateRejectsInvalidSnapshot(t *testing.T) {
	g := New(0, WithClock(at(noon)))
	assert.False(t, g.Allowed(nil))
	assert.False(t, g.Allowed(snapshot(1e6, 5, 140)))
}

type panicky struct{}

func (panicky) Float64() float64 { panic("boom") }
func (panicky) IntN(int) int     { panic("boom") }

func TestGateRecoversFromPanic(t *testing.T) {
	m := &rejections{}
	g := New(0, WithClock(at(noon)), WithRand(panicky{}), WithMetrics(m))
	ok, reason := g.Check(snapshot(1e6, 0.1, 50))
	assert.False(t, ok)
	assert.Equal(t, ReasonPanic, reason)
	assert.Equal(t, []string{ReasonPanic}, m.reasons)
}
