package models

import "time"

// WalletHoldings is a read-only view of the paper wallet.
type WalletHoldings struct {
	USD      float64            `json:"usd_balance"`
	Units    map[string]float64 `json:"units"`
	AvgEntry map[string]float64 `json:"avg_entry"`
}

// Overview summarises the running service. Parts that could not be read
// are reported in Errors.
type Overview struct {
	Timestamp    time.Time          `json:"timestamp"`
	Strategy     StrategyConfig     `json:"strategy"`
	Personality  PersonalityProfile `json:"personality"`
	Patterns     int                `json:"patterns"`
	Wallet       *WalletHoldings    `json:"wallet,omitempty"`
	LastReplay   *ReplayResult      `json:"last_replay,omitempty"`
	LastMutation *MutationRecord    `json:"last_mutation,omitempty"`
	LastClone    *CloneRun          `json:"last_clone,omitempty"`
	Archive      string             `json:"archive,omitempty"`
	Errors       map[string]string  `json:"errors,omitempty"`
}
