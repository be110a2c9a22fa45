// Package predictor estimates the probability that an asset's price rises
// and trains the native model from pattern memory.
package predictor

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/features"
	applogger "SignalForge/pkg/logger"
)

const (
	sentimentBias      = 0.05
	sentimentBiasLimit = 3.0
)

type modelBox struct{ m Model }

// Predictor wraps the active model. The model can be swapped at runtime by
// the trainer; a nil model makes every prediction unavailable.
type Predictor struct {
	model     atomic.Pointer[modelBox]
	threshold float64
	logger    *applogger.Logger
	metrics   domrepo.Metrics
}

func New(threshold float64, m Model, logger *applogger.Logger, metrics domrepo.Metrics) *Predictor {
	if logger == nil {
		logger = applogger.Nop()
	}
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	p := &Predictor{threshold: threshold, logger: logger, metrics: metrics}
	p.SetModel(m)
	return p
}

func (p *Predictor) SetModel(m Model) {
	p.model.Store(&modelBox{m: m})
}

func (p *Predictor) Model() Model {
	return p.model.Load().m
}

// Predict never fails: any model problem yields an unavailable prediction.
func (p *Predictor) Predict(ctx context.Context, s *models.MarketSnapshot, sentiment models.SentimentSummary) (pred models.Prediction) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("prediction panicked", applogger.Any("panic", fmt.Sprint(r)))
			p.metrics.RecordError("predictor")
			pred = models.Prediction{}
		}
	}()

	m := p.Model()
	if m == nil {
		return models.Prediction{}
	}
	if err := s.Validate(); err != nil {
		return models.Prediction{}
	}

	base, err := m.Probability(ctx, features.Vector(s, sentiment))
	if err != nil || math.IsNaN(base) {
		p.logger.Warn("model unavailable",
			applogger.Symbol(s.Symbol),
			applogger.Error(fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)))
		p.metrics.RecordError("predictor")
		return models.Prediction{}
	}

	prob := applyBias(base, sentiment.Score())
	p.metrics.RecordConfidence(s.Symbol, prob)
	return models.Prediction{
		Probability: prob,
		Rising:      prob >= p.threshold,
		Available:   true,
	}
}

func applyBias(prob, score float64) float64 {
	switch {
	case score > sentimentBiasLimit:
		prob += sentimentBias
	case score < -sentimentBiasLimit:
		prob -= sentimentBias
	}
	return math.Max(0, math.Min(1, prob))
}
