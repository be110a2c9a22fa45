package calibration

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	applogger "SignalForge/pkg/logger"
)

type LoopConfig struct {
	ReplayInterval   time.Duration
	MutationInterval time.Duration
	CloneInterval    time.Duration
	TrainInterval    time.Duration
	ApplyBestClone   bool
}

// Trainer retrains the prediction model. Optional.
type Trainer interface {
	Train(ctx context.Context) error
}

type TrainerFunc func(ctx context.Context) error

func (f TrainerFunc) Train(ctx context.Context) error { return f(ctx) }

// Loop runs each calibration task on its own ticker. Task failures are
// logged and counted; they never stop the loop.
type Loop struct {
	cfg     LoopConfig
	cal     *Calibrator
	trainer Trainer
	logger  *applogger.Logger
}

func NewLoop(cfg LoopConfig, cal *Calibrator, trainer Trainer) *Loop {
	return &Loop{cfg: cfg, cal: cal, trainer: trainer, logger: cal.logger}
}

func (l *Loop) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	l.every(g, ctx, "replay", l.cfg.ReplayInterval, func(ctx context.Context) error {
		_, err := l.cal.RunReplay(ctx)
		return err
	})
	l.every(g, ctx, "mutation", l.cfg.MutationInterval, func(ctx context.Context) error {
		_, err := l.cal.RunMutation(ctx)
		return err
	})
	l.every(g, ctx, "clone", l.cfg.CloneInterval, func(ctx context.Context) error {
		var err error
		if l.cfg.ApplyBestClone {
			_, err = l.cal.ApplyBest(ctx)
		} else {
			_, err = l.cal.Simulate(ctx)
		}
		return err
	})
	if l.trainer != nil {
		l.every(g, ctx, "train", l.cfg.TrainInterval, l.trainer.Train)
	}

	return g.Wait()
}

func (l *Loop) every(g *errgroup.Group, ctx context.Context, task string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				l.runTask(ctx, task, fn)
			}
		}
	})
}

func (l *Loop) runTask(ctx context.Context, task string, fn func(context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("calibration task panicked", applogger.String("task", task), applogger.Any("panic", r))
			l.cal.metrics.RecordCalibration(task, false)
		}
	}()

	start := time.Now()
	err := fn(ctx)
	l.cal.metrics.RecordLatency("calibration_"+task, time.Since(start).Seconds())
	switch {
	case err == nil:
	case errors.Is(err, ErrNoHistory), errors.Is(err, ErrNoReplay), errors.Is(err, context.Canceled):
		l.logger.Debug("calibration task skipped", applogger.String("task", task), applogger.Error(err))
	default:
		l.logger.Warn("calibration task failed", applogger.String("task", task), applogger.Error(err))
		l.cal.metrics.RecordError("calibration_" + task)
	}
}
