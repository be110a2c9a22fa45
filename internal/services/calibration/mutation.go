package calibration

import (
	"context"
	"fmt"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

// RunMutation randomly perturbs the thresholds when the latest replay
// accuracy is below the stable level. Stable runs are not logged.
func (c *Calibrator) RunMutation(ctx context.Context) (models.MutationRecord, error) {
	replays, err := c.ReplayLog(ctx)
	if err != nil {
		return models.MutationRecord{}, fmt.Errorf("load replay log: %w", err)
	}
	if len(replays) == 0 {
		return models.MutationRecord{}, ErrNoReplay
	}
	latest := replays[len(replays)-1]

	prev := c.strategy.Read()
	rec := models.MutationRecord{
		Timestamp: c.now().UTC(),
		Accuracy:  latest.Accuracy,
		Previous:  prev,
		Next:      prev,
	}
	if latest.Accuracy >= c.cfg.StableAccuracy {
		c.logger.Debug("accuracy stable, no mutation", applogger.Float64("accuracy", latest.Accuracy))
		return rec, nil
	}

	step := c.cfg.MutationStep
	buy := prev.BuyRSIThreshold + float64(rng.IntRange(c.src, -step, step))
	sell := prev.SellRSIThreshold + float64(rng.IntRange(c.src, -step, step))
	bias := c.src.IntN(2)

	patch := models.Thresholds(buy, sell)
	patch.SentimentBias = &bias
	if err := c.strategy.Update(ctx, patch); err != nil {
		c.metrics.RecordCalibration("mutation", false)
		return rec, fmt.Errorf("apply mutation: %w", err)
	}
	rec.Next = c.strategy.Read()
	rec.Mutated = true

	if err := c.docs.AppendCapped(ctx, domrepo.ListMutations, rec, c.cfg.MutationCap); err != nil {
		c.metrics.RecordCalibration("mutation", false)
		return rec, fmt.Errorf("log mutation: %w", err)
	}
	c.metrics.RecordCalibration("mutation", true)
	c.logger.Info("strategy mutated",
		applogger.Float64("accuracy", latest.Accuracy),
		applogger.Float64("buy_rsi", rec.Next.BuyRSIThreshold),
		applogger.Float64("sell_rsi", rec.Next.SellRSIThreshold),
		applogger.Int("sentiment_bias", rec.Next.SentimentBias),
	)
	return rec, nil
}
