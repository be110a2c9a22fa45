package models

import (
	"math"
	"time"
)

const (
	MinRSIThreshold = 10.0
	MaxRSIThreshold = 90.0

	DefaultBuyRSI  = 30.0
	DefaultSellRSI = 70.0
)

type RSIRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// StrategyConfig is the shared, calibrated decision state.
type StrategyConfig struct {
	BuyRSIThreshold  float64   `json:"buy_rsi_threshold"`
	SellRSIThreshold float64   `json:"sell_rsi_threshold"`
	SentimentBias    int       `json:"sentiment_bias"`
	ProfitRSIRange   *RSIRange `json:"profit_rsi_range,omitempty"`
}

func DefaultStrategy() StrategyConfig {
	return StrategyConfig{
		BuyRSIThreshold:  DefaultBuyRSI,
		SellRSIThreshold: DefaultSellRSI,
	}
}

// ClampRSI bounds an RSI threshold to [10, 90]. NaN collapses to the lower
// bound so a corrupt value can never escape the range.
func ClampRSI(v float64) float64 {
	if math.IsNaN(v) || v < MinRSIThreshold {
		return MinRSIThreshold
	}
	if v > MaxRSIThreshold {
		return MaxRSIThreshold
	}
	return v
}

// Normalize clamps thresholds and collapses sentiment_bias onto {0,1}.
func (c StrategyConfig) Normalize() StrategyConfig {
	c.BuyRSIThreshold = ClampRSI(c.BuyRSIThreshold)
	c.SellRSIThreshold = ClampRSI(c.SellRSIThreshold)
	if c.SentimentBias != 0 {
		c.SentimentBias = 1
	}
	if c.ProfitRSIRange != nil {
		r := RSIRange{Min: ClampRSI(c.ProfitRSIRange.Min), Max: ClampRSI(c.ProfitRSIRange.Max)}
		if r.Min > r.Max {
			r.Min, r.Max = r.Max, r.Min
		}
		c.ProfitRSIRange = &r
	}
	return c
}

// StrategyPatch is a partial update; nil fields are left untouched.
type StrategyPatch struct {
	BuyRSIThreshold  *float64  `json:"buy_rsi_threshold,omitempty"`
	SellRSIThreshold *float64  `json:"sell_rsi_threshold,omitempty"`
	SentimentBias    *int      `json:"sentiment_bias,omitempty"`
	ProfitRSIRange   *RSIRange `json:"profit_rsi_range,omitempty"`
}

func (p StrategyPatch) Empty() bool {
	return p.BuyRSIThreshold == nil && p.SellRSIThreshold == nil &&
		p.SentimentBias == nil && p.ProfitRSIRange == nil
}

// Apply merges the set fields into c and normalises the result.
func (p StrategyPatch) Apply(c StrategyConfig) StrategyConfig {
	if p.BuyRSIThreshold != nil {
		c.BuyRSIThreshold = *p.BuyRSIThreshold
	}
	if p.SellRSIThreshold != nil {
		c.SellRSIThreshold = *p.SellRSIThreshold
	}
	if p.SentimentBias != nil {
		c.SentimentBias = *p.SentimentBias
	}
	if p.ProfitRSIRange != nil {
		r := *p.ProfitRSIRange
		c.ProfitRSIRange = &r
	}
	return c.Normalize()
}

// Fields lists the patched keys with the values actually stored, i.e. after
// clamping against the merged config.
func (p StrategyPatch) Fields(applied StrategyConfig) map[string]any {
	out := make(map[string]any, 4)
	if p.BuyRSIThreshold != nil {
		out["buy_rsi_threshold"] = applied.BuyRSIThreshold
	}
	if p.SellRSIThreshold != nil {
		out["sell_rsi_threshold"] = applied.SellRSIThreshold
	}
	if p.SentimentBias != nil {
		out["sentiment_bias"] = applied.SentimentBias
	}
	if p.ProfitRSIRange != nil && applied.ProfitRSIRange != nil {
		out["profit_rsi_range"] = *applied.ProfitRSIRange
	}
	return out
}

// Thresholds is a convenience patch for the common buy/sell pair.
func Thresholds(buy, sell float64) StrategyPatch {
	return StrategyPatch{BuyRSIThreshold: &buy, SellRSIThreshold: &sell}
}

type StrategyUpdate struct {
	Timestamp     time.Time      `json:"timestamp"`
	UpdatedFields map[string]any `json:"updated_fields"`
}

const (
	RiskAggressive = "aggressive"
	RiskCautious   = "cautious"
	RiskBalanced   = "balanced"
)

// PersonalityProfile is read-only input; the core never mutates it.
type PersonalityProfile struct {
	ConfidenceTone string `json:"confidence_tone" mapstructure:"confidence_tone"`
	RiskProfile    string `json:"risk_profile" mapstructure:"risk_profile"`
	ResponseStyle  string `json:"response_style" mapstructure:"response_style"`
}

// PersistedConfig is the on-disk/in-store document.
type PersistedConfig struct {
	Strategy    StrategyConfig     `json:"strategy"`
	Personality PersonalityProfile `json:"personality"`
}
