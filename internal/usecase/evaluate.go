package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/internal/services/decision"
)

type Replayer interface {
	Replay(cfg models.StrategyConfig, in decision.Input) models.Decision
}

type StrategyReader interface {
	Read() models.StrategyConfig
}

// EvaluateUseCase runs one dry cycle for a posted snapshot. It never claims
// a cooldown and never touches the wallet.
type EvaluateUseCase struct {
	gate      Gate
	predictor Predictor
	strategy  StrategyReader
	engine    Replayer
	now       func() time.Time
}

func NewEvaluateUseCase(gate Gate, predictor Predictor, strategy StrategyReader, engine Replayer) *EvaluateUseCase {
	return &EvaluateUseCase{gate: gate, predictor: predictor, strategy: strategy, engine: engine, now: time.Now}
}

func (uc *EvaluateUseCase) Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.EvaluateResponse, error) {
	snap := &models.MarketSnapshot{
		Symbol:    req.Symbol,
		Price:     req.Price,
		Volume:    req.Volume,
		Change24h: req.Change24h,
		RSI:       req.RSI,
		Timestamp: uc.now().UTC(),
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	resp := &models.EvaluateResponse{Allowed: true}
	if !req.SkipGate {
		resp.Allowed, resp.GateReason = uc.gate.Check(snap)
		if !resp.Allowed {
			resp.Decision = models.Decision{State: models.StateNoSignal, Reason: "gate: " + resp.GateReason}
			return resp, nil
		}
	}

	sentiment := req.Sentiment.Add(req.Global)
	resp.Prediction = uc.predictor.Predict(ctx, snap, sentiment)
	resp.Decision = uc.engine.Replay(uc.strategy.Read(), decision.Input{
		Snapshot:        snap.WithConfidence(resp.Prediction.Probability),
		Sentiment:       sentiment,
		GlobalSentiment: req.Global,
		Prediction:      resp.Prediction,
		Cash:            req.Cash,
		Holding:         req.Holding,
	})
	return resp, nil
}
