package decision

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

// Override is a heuristic that can pre-empt the standard rule. Overrides
// only pick a side; the engine sizes the trade.
type Override interface {
	Name() string
	Evaluate(in Input, th models.EffectiveThresholds) (action models.Action, reason string, ok bool)
}

// DefaultOverrides returns the built-in overrides in evaluation order.
func DefaultOverrides() []Override {
	return []Override{
		VolumeDivergence{VolumeMultiple: 5, MaxRSI: 35},
		EuphoricSentiment{MinStrength: 0.8, MinHeadlines: 5},
		MomentumChase{MinChange: 8, MinRSI: 50, MaxRSI: 65},
	}
}

// VolumeDivergence buys heavy volume flowing into a falling, oversold asset.
type VolumeDivergence struct {
	VolumeMultiple float64 // volume in millions
	MaxRSI         float64
}

func (VolumeDivergence) Name() string { return "volume_divergence" }

func (o VolumeDivergence) Evaluate(in Input, _ models.EffectiveThresholds) (models.Action, string, bool) {
	s := in.Snapshot
	if s.Volume/1e6 >= o.VolumeMultiple && s.RSI < o.MaxRSI && s.Change24h < 0 {
		return models.ActionBuy, fmt.Sprintf("volume %.1fM diverging from falling price at RSI %.1f", s.Volume/1e6, s.RSI), true
	}
	return models.ActionNone, "", false
}

// EuphoricSentiment takes profit when headlines are overwhelmingly positive
// and RSI is already past the sell threshold.
type EuphoricSentiment struct {
	MinStrength  float64
	MinHeadlines int
}

func (EuphoricSentiment) Name() string { return "euphoric_sentiment" }

func (o EuphoricSentiment) Evaluate(in Input, th models.EffectiveThresholds) (models.Action, string, bool) {
	if in.Sentiment.Total() < o.MinHeadlines {
		return models.ActionNone, "", false
	}
	if strength := in.Sentiment.SignalStrength(); strength >= o.MinStrength && in.Snapshot.RSI >= th.Sell {
		return models.ActionSell, fmt.Sprintf("euphoric sentiment %.2f at RSI %.1f", strength, in.Snapshot.RSI), true
	}
	return models.ActionNone, "", false
}

// MomentumChase buys a strong daily move that has not yet reached
// overbought territory, if the predictor agrees.
type MomentumChase struct {
	MinChange float64
	MinRSI    float64
	MaxRSI    float64
}

func (MomentumChase) Name() string { return "momentum_chase" }

func (o MomentumChase) Evaluate(in Input, _ models.EffectiveThresholds) (models.Action, string, bool) {
	s := in.Snapshot
	if s.Change24h >= o.MinChange && s.RSI >= o.MinRSI && s.RSI <= o.MaxRSI && in.Prediction.Rising {
		return models.ActionBuy, fmt.Sprintf("chasing %+.1f%% momentum at RSI %.1f", s.Change24h, s.RSI), true
	}
	return models.ActionNone, "", false
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
