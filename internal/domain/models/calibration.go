package models

import "time"

// Mismatch is a replayed record whose recomputed action differs from the
// recorded one.
type Mismatch struct {
	Timestamp time.Time `json:"timestamp"`
	Symbol    string    `json:"symbol"`
	RSI       float64   `json:"rsi"`
	Recorded  Action    `json:"recorded"`
	Predicted Action    `json:"predicted"`
}

type ReplayResult struct {
	Timestamp  time.Time      `json:"timestamp"`
	Accuracy   float64        `json:"accuracy"` // 0..1
	Matched    int            `json:"matched"`
	Total      int            `json:"total"`
	Mismatches []Mismatch     `json:"mismatches"`
	Nudged     bool           `json:"nudged"`
	Strategy   StrategyConfig `json:"strategy"`
}

type MutationRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Accuracy  float64        `json:"accuracy"`
	Previous  StrategyConfig `json:"prev_strategy"`
	Next      StrategyConfig `json:"new_strategy"`
	Mutated   bool           `json:"mutated"`
}

type CloneCandidate struct {
	ID    string  `json:"id"`
	Buy   float64 `json:"buy_rsi_threshold"`
	Sell  float64 `json:"sell_rsi_threshold"`
	Score float64 `json:"score"`
}

type CloneRun struct {
	Timestamp  time.Time        `json:"timestamp"`
	Base       StrategyConfig   `json:"base"`
	Candidates []CloneCandidate `json:"candidates"`
	Best       CloneCandidate   `json:"best"`
	Applied    bool             `json:"applied"`
}
