package calibration

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/decision"
	applogger "SignalForge/pkg/logger"
)

// RunReplay re-decides every remembered cycle with the current thresholds
// and compares the actions. Low accuracy widens the thresholds by one
// point each (buy down, sell up).
func (c *Calibrator) RunReplay(ctx context.Context) (models.ReplayResult, error) {
	recs := c.patterns.Snapshot()
	if len(recs) == 0 {
		return models.ReplayResult{}, ErrNoHistory
	}

	cfg := c.strategy.Read()
	res := models.ReplayResult{
		Timestamp:  c.now().UTC(),
		Total:      len(recs),
		Mismatches: []models.Mismatch{},
	}
	for _, rec := range recs {
		predicted := c.engine.Replay(cfg, c.replayInput(rec)).Action()
		recorded := rec.TradeAction
		if recorded == "" {
			recorded = models.ActionNone
		}
		if predicted == recorded {
			res.Matched++
			continue
		}
		if len(res.Mismatches) < c.cfg.MismatchSample {
			res.Mismatches = append(res.Mismatches, models.Mismatch{
				Timestamp: rec.Timestamp,
				Symbol:    rec.Symbol,
				RSI:       rec.RSI,
				Recorded:  recorded,
				Predicted: predicted,
			})
		}
	}
	res.Accuracy = float64(res.Matched) / float64(res.Total)
	c.metrics.RecordAccuracy(res.Accuracy)

	if res.Accuracy < c.cfg.AccuracyThreshold {
		patch := models.Thresholds(cfg.BuyRSIThreshold-1, cfg.SellRSIThreshold+1)
		if err := c.strategy.Update(ctx, patch); err != nil {
			c.metrics.RecordCalibration("replay", false)
			return res, fmt.Errorf("nudge thresholds: %w", err)
		}
		res.Nudged = true
	}
	res.Strategy = c.strategy.Read()

	if err := c.docs.AppendCapped(ctx, domrepo.ListReplay, res, c.cfg.ReplayCap); err != nil {
		c.metrics.RecordCalibration("replay", false)
		return res, fmt.Errorf("log replay: %w", err)
	}
	c.metrics.RecordCalibration("replay", true)
	c.logger.Info("replay finished",
		applogger.Float64("accuracy", res.Accuracy),
		applogger.Int("matched", res.Matched),
		applogger.Int("total", res.Total),
		applogger.Bool("nudged", res.Nudged),
	)
	return res, nil
}

// replayInput reconstructs a decision input from a record. The record's own
// sentiment stands in for the global mood, and the portfolio is assumed to
// hold both cash and a position so every rule is reachable.
func (c *Calibrator) replayInput(rec models.PatternRecord) decision.Input {
	snap := rec.Snapshot()
	holding := 0.0
	if snap.Price > 0 {
		holding = c.cfg.ReplayCash / snap.Price
	}
	return decision.Input{
		Snapshot:        &snap,
		Sentiment:       rec.Sentiment,
		GlobalSentiment: rec.Sentiment,
		Prediction: models.Prediction{
			Probability: rec.Confidence,
			Rising:      rec.Confidence >= c.cfg.ConfidenceThreshold,
			Available:   rec.Confidence > 0,
		},
		Cash:    c.cfg.ReplayCash,
		Holding: holding,
	}
}
