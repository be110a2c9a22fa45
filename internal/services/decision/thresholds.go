package decision

import (
	"fmt"
	"math"

	"SignalForge/internal/domain/models"
)

const (
	moodTrigger = 0.4
	moodShift   = 2.0

	personalityShift     = 2.0
	boldPersonalityShift = 3.0
)

// Thresholds derives the per-decision RSI thresholds. The result is
// clamped to [10,90] and never written back to the strategy store.
func Thresholds(cfg models.StrategyConfig, profile models.PersonalityProfile, global models.SentimentSummary) models.EffectiveThresholds {
	buy, sell := cfg.BuyRSIThreshold, cfg.SellRSIThreshold

	if cfg.SentimentBias == 1 {
		switch mood := global.MoodRatio(); {
		case mood > moodTrigger:
			buy += moodShift
			sell += moodShift
		case mood < -moodTrigger:
			buy -= moodShift
			sell -= moodShift
		}
	}

	d := personalityShift
	if profile.ConfidenceTone == "bold" {
		d = boldPersonalityShift
	}
	switch profile.RiskProfile {
	case models.RiskAggressive:
		buy -= d
		sell += d
	case models.RiskCautious:
		buy += d
		sell -= d
	}

	return models.EffectiveThresholds{Buy: models.ClampRSI(buy), Sell: models.ClampRSI(sell)}
}

// ConfidenceLabel renders a probability the way the personality speaks.
// It only affects logs and reasons, never a decision.
func ConfidenceLabel(tone string, p float64) string {
	pct := math.Round(p * 100)
	switch tone {
	case "bold":
		return fmt.Sprintf("%.0f%% sure", pct)
	case "humble", "cautious":
		return fmt.Sprintf("roughly %.0f%%", pct)
	default:
		return fmt.Sprintf("%.0f%%", pct)
	}
}
