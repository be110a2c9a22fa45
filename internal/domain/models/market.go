package models

import (
	"fmt"
	"math"
	"time"
)

// MarketSnapshot is one polling-cycle view of an asset. Immutable after
// creation.
type MarketSnapshot struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Volume    float64   `json:"volume"`
	Change24h float64   `json:"change_24h"` // percent, signed
	RSI       float64   `json:"rsi"`
	Timestamp time.Time `json:"timestamp"`

	// Confidence is the predictor's adjusted probability, set once a cycle
	// has run the model.
	Confidence float64 `json:"confidence,omitempty"`
}

// WithConfidence returns a copy annotated with the predicted probability.
func (s *MarketSnapshot) WithConfidence(p float64) *MarketSnapshot {
	c := *s
	c.Confidence = p
	return &c
}

// Validate reports ErrDataUnavailable for any missing or out-of-range field.
func (s *MarketSnapshot) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil snapshot", ErrDataUnavailable)
	}
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrDataUnavailable)
	}
	if !finite(s.Price) || s.Price <= 0 {
		return fmt.Errorf("%w: price %v", ErrDataUnavailable, s.Price)
	}
	if !finite(s.Volume) || s.Volume < 0 {
		return fmt.Errorf("%w: volume %v", ErrDataUnavailable, s.Volume)
	}
	if !finite(s.Change24h) {
		return fmt.Errorf("%w: change_24h %v", ErrDataUnavailable, s.Change24h)
	}
	if !finite(s.RSI) || s.RSI < 0 || s.RSI > 100 {
		return fmt.Errorf("%w: rsi %v", ErrDataUnavailable, s.RSI)
	}
	return nil
}

// SentimentSummary counts headline polarity over a recent window.
type SentimentSummary struct {
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Neutral  int     `json:"neutral"`
	Bias     float64 `json:"bias,omitempty"`
}

func (s SentimentSummary) Total() int {
	return s.Positive + s.Negative + s.Neutral
}

// Score is positive minus negative plus bias.
func (s SentimentSummary) Score() float64 {
	return float64(s.Positive-s.Negative) + s.Bias
}

// SignalStrength normalises Score by the headline count.
func (s SentimentSummary) SignalStrength() float64 {
	return s.Score() / math.Max(float64(s.Total()), 1)
}

// MoodRatio is the unbiased positive/negative balance in [-1, 1].
func (s SentimentSummary) MoodRatio() float64 {
	return float64(s.Positive-s.Negative) / math.Max(float64(s.Total()), 1)
}

// Add sums two summaries component-wise.
func (s SentimentSummary) Add(o SentimentSummary) SentimentSummary {
	return SentimentSummary{
		Positive: s.Positive + o.Positive,
		Negative: s.Negative + o.Negative,
		Neutral:  s.Neutral + o.Neutral,
		Bias:     s.Bias + o.Bias,
	}
}

func (s SentimentSummary) Validate() error {
	if s.Positive < 0 || s.Negative < 0 || s.Neutral < 0 {
		return fmt.Errorf("%w: negative sentiment count", ErrDataUnavailable)
	}
	if !finite(s.Bias) {
		return fmt.Errorf("%w: sentiment bias %v", ErrDataUnavailable, s.Bias)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
