package service

import (
	"context"

	"SignalForge/internal/domain/models"
)

// MarketData supplies snapshots. A nil snapshot with a nil error never
// happens; total failure is an error wrapping models.ErrDataUnavailable.
type MarketData interface {
	Snapshot(ctx context.Context, symbol string) (*models.MarketSnapshot, error)
}

type Sentiment interface {
	Sentiment(ctx context.Context, symbol string) (models.SentimentSummary, error)
	Global(ctx context.Context) (models.SentimentSummary, error)
}

// Wallet holds balances. The core only calls Execute after producing a
// signal and never changes balances itself.
type Wallet interface {
	Cash(ctx context.Context) (float64, error)
	Balance(ctx context.Context, symbol string) (float64, error)
	Execute(ctx context.Context, signal *models.TradeSignal, snapshot *models.MarketSnapshot) (*models.Execution, error)
}

// PersonalitySource returns the current personality profile.
type PersonalitySource interface {
	Profile() models.PersonalityProfile
}
