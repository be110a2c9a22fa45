package models

import "time"

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionNone Action = "none"
)

// DecisionState is where a single evaluation ended.
type DecisionState string

const (
	StateNoSignal DecisionState = "NO_SIGNAL"
	StateEligible DecisionState = "ELIGIBLE"
	StateBuy      DecisionState = "BUY"
	StateSell     DecisionState = "SELL"
	StateOverride DecisionState = "OVERRIDE"
)

// TradeSignal is handed to the wallet. Buy amounts are quote currency,
// sell amounts are asset units.
type TradeSignal struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Action    Action    `json:"action"`
	Amount    float64   `json:"amount"`
	Price     float64   `json:"price"`
	Reason    string    `json:"reason"`
	Override  bool      `json:"override,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EffectiveThresholds are the per-decision thresholds after mood and
// personality adjustments. They are never persisted.
type EffectiveThresholds struct {
	Buy  float64 `json:"buy"`
	Sell float64 `json:"sell"`
}

type Decision struct {
	State      DecisionState       `json:"state"`
	Signal     *TradeSignal        `json:"signal,omitempty"`
	Reason     string              `json:"reason"`
	Thresholds EffectiveThresholds `json:"thresholds"`
}

// Action returns the traded side, or ActionNone.
func (d Decision) Action() Action {
	if d.Signal == nil {
		return ActionNone
	}
	return d.Signal.Action
}

// Prediction is the confidence predictor's output for one snapshot.
type Prediction struct {
	Probability float64 `json:"probability"`
	Rising      bool    `json:"rising"`
	Available   bool    `json:"available"`
}

// Execution is the wallet's report for an executed signal.
type Execution struct {
	SignalID string  `json:"signal_id"`
	Filled   float64 `json:"filled"`
	Outcome  string  `json:"outcome"`
	Gain     float64 `json:"gain"`
}
