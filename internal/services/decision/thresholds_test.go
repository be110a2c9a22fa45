package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"SignalForge/internal/domain/models"
)

func TestThresholds(t *testing.T) {
	bullish := models.SentimentSummary{Positive: 8, Negative: 1, Neutral: 1}
	bearish := models.SentimentSummary{Positive: 1, Negative: 8, Neutral: 1}
	mild := models.SentimentSummary{Positive: 4, Negative: 1, Neutral: 5}
	biased := models.StrategyConfig{BuyRSIThreshold: 30, SellRSIThreshold: 70, SentimentBias: 1}
	plain := models.DefaultStrategy()

	cases := []struct {
		name    string
		cfg     models.StrategyConfig
		profile models.PersonalityProfile
		global  models.SentimentSummary
		want    models.EffectiveThresholds
	}{
		{"plain", plain, models.PersonalityProfile{}, bullish, models.EffectiveThresholds{Buy: 30, Sell: 70}},
		{"bullish mood", biased, models.PersonalityProfile{}, bullish, models.EffectiveThresholds{Buy: 32, Sell: 72}},
		{"bearish mood", biased, models.PersonalityProfile{}, bearish, models.EffectiveThresholds{Buy: 28, Sell: 68}},
		{"mild mood", biased, models.PersonalityProfile{}, mild, models.EffectiveThresholds{Buy: 30, Sell: 70}},
		{"aggressive", plain, models.PersonalityProfile{RiskProfile: models.RiskAggressive}, mild, models.EffectiveThresholds{Buy: 28, Sell: 72}},
		{"bold aggressive", plain, models.PersonalityProfile{RiskProfile: models.RiskAggressive, ConfidenceTone: "bold"}, mild, models.EffectiveThresholds{Buy: 27, Sell: 73}},
		{"cautious", plain, models.PersonalityProfile{RiskProfile: models.RiskCautious}, mild, models.EffectiveThresholds{Buy: 32, Sell: 68}},
		{"mood and personality", biased, models.PersonalityProfile{RiskProfile: models.RiskCautious}, bearish, models.EffectiveThresholds{Buy: 30, Sell: 66}},
		{"clamped", models.StrategyConfig{BuyRSIThreshold: 10, SellRSIThreshold: 90, SentimentBias: 1}, models.PersonalityProfile{RiskProfile: models.RiskAggressive, ConfidenceTone: "bold"}, bearish, models.EffectiveThresholds{Buy: 10, Sell: 90}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Thresholds(tc.cfg, tc.profile, tc.global))
		})
	}
}

func TestThresholdsDoNotMutateConfig(t *testing.T) {
	cfg := models.StrategyConfig{BuyRSIThreshold: 30, SellRSIThreshold: 70, SentimentBias: 1}
	_ = Thresholds(cfg, models.PersonalityProfile{RiskProfile: models.RiskAggressive}, models.SentimentSummary{Positive: 10})
	assert.Equal(t, 30.0, cfg.BuyRSIThreshold)
	assert.Equal(t, 70.0, cfg.SellRSIThreshold)
}

func TestConfidenceLabel(t *testing.T) {
	assert.Equal(t, "82% sure", ConfidenceLabel("bold", 0.816))
	assert.Equal(t, "roughly 82%", ConfidenceLabel("humble", 0.816))
	assert.Equal(t, "82%", ConfidenceLabel("", 0.816))
	assert.Equal(t, "0%", ConfidenceLabel("neutral", 0))
}
