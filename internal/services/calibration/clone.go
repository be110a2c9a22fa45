package calibration

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
	"SignalForge/pkg/rng"
)

// Simulate scores jittered copies of the current thresholds on synthetic
// RSI draws and logs the run without changing the strategy.
func (c *Calibrator) Simulate(ctx context.Context) (models.CloneRun, error) {
	return c.runClones(ctx, false)
}

// ApplyBest runs a simulation and adopts the best candidate's thresholds.
func (c *Calibrator) ApplyBest(ctx context.Context) (models.CloneRun, error) {
	return c.runClones(ctx, true)
}

func (c *Calibrator) runClones(ctx context.Context, apply bool) (models.CloneRun, error) {
	base := c.strategy.Read()
	run := models.CloneRun{
		Timestamp:  c.now().UTC(),
		Base:       base,
		Candidates: make([]models.CloneCandidate, 0, c.cfg.CloneCount),
	}

	for i := 0; i < c.cfg.CloneCount; i++ {
		cand := models.CloneCandidate{
			ID:   uuid.NewString(),
			Buy:  models.ClampRSI(base.BuyRSIThreshold + float64(rng.IntRange(c.src, -c.cfg.CloneJitter, c.cfg.CloneJitter))),
			Sell: models.ClampRSI(base.SellRSIThreshold + float64(rng.IntRange(c.src, -c.cfg.CloneJitter, c.cfg.CloneJitter))),
		}
		cand.Score = c.score(cand.Buy, cand.Sell)
		run.Candidates = append(run.Candidates, cand)
		if i == 0 || cand.Score > run.Best.Score {
			run.Best = cand
		}
	}

	if apply && len(run.Candidates) > 0 {
		if err := c.strategy.Update(ctx, models.Thresholds(run.Best.Buy, run.Best.Sell)); err != nil {
			c.metrics.RecordCalibration("clone", false)
			return run, fmt.Errorf("apply best clone: %w", err)
		}
		run.Applied = true
	}

	if err := c.docs.AppendCapped(ctx, domrepo.ListClones, run, c.cfg.CloneCap); err != nil {
		c.metrics.RecordCalibration("clone", false)
		return run, fmt.Errorf("log clone run: %w", err)
	}
	c.metrics.RecordCalibration("clone", true)
	c.logger.Info("clone simulation finished",
		applogger.Int("candidates", len(run.Candidates)),
		applogger.Float64("best_buy", run.Best.Buy),
		applogger.Float64("best_sell", run.Best.Sell),
		applogger.Float64("best_score", run.Best.Score),
		applogger.Bool("applied", run.Applied),
	)
	return run, nil
}

// score sums the synthetic reward over CloneTrials uniform RSI draws.
// Buying at low RSI and selling at high RSI are rewarded by their distance
// from 50, less the fee, plus centred noise.
func (c *Calibrator) score(buy, sell float64) float64 {
	var total float64
	for t := 0; t < c.cfg.CloneTrials; t++ {
		rsi := rng.Uniform(c.src, 0, 100)
		switch {
		case rsi <= buy:
			total += (50-rsi)/50 - c.cfg.CloneFee + c.noise()
		case rsi >= sell:
			total += (rsi-50)/50 - c.cfg.CloneFee + c.noise()
		}
	}
	return total
}

func (c *Calibrator) noise() float64 {
	return c.cfg.CloneNoise * (c.src.Float64() - 0.5)
}
