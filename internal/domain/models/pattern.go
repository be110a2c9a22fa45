package models

import "time"

const (
	OutcomeProfit  = "profit"
	OutcomeLoss    = "loss"
	OutcomeNeutral = "neutral"
	OutcomePending = "pending"
)

// PatternRecord is one completed decision cycle. Records are only appended
// and trimmed, never modified.
type PatternRecord struct {
	ID             string           `json:"id"`
	Timestamp      time.Time        `json:"timestamp"`
	Symbol         string           `json:"symbol"`
	Price          float64          `json:"price"`
	RSI            float64          `json:"rsi"`
	Volume         float64          `json:"volume"`
	Change24h      float64          `json:"change_24h"`
	Sentiment      SentimentSummary `json:"sentiment"`
	SentimentScore float64          `json:"sentiment_score"`
	Confidence     float64          `json:"confidence"`
	TradeAction    Action           `json:"trade_action"`
	Outcome        string           `json:"outcome"`
	Gain           float64          `json:"gain"`
}

// Snapshot rebuilds the market view the record was taken from.
func (r PatternRecord) Snapshot() MarketSnapshot {
	return MarketSnapshot{
		Symbol:     r.Symbol,
		Price:      r.Price,
		Volume:     r.Volume,
		Change24h:  r.Change24h,
		RSI:        r.RSI,
		Timestamp:  r.Timestamp,
		Confidence: r.Confidence,
	}
}
