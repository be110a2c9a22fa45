package predictor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/features"
)

// Model maps a raw feature vector (features.Names order) to the probability
// that price rises.
type Model interface {
	Probability(ctx context.Context, x []float64) (float64, error)
}

// LogisticModel is a logistic regression over standard-scaled features.
type LogisticModel struct {
	Weights   []float64               `json:"weights"`
	Intercept float64                 `json:"intercept"`
	Scaler    features.StandardScaler `json:"scaler"`
	Features  []string                `json:"features"`
	Accuracy  float64                 `json:"accuracy"`
	Rows      int                     `json:"rows"`
	TrainedAt time.Time               `json:"trained_at"`
}

var _ Model = (*LogisticModel)(nil)

func (m *LogisticModel) Probability(_ context.Context, x []float64) (float64, error) {
	scaled, err := m.Scaler.Transform(x)
	if err != nil {
		return 0, err
	}
	if len(scaled) != len(m.Weights) {
		return 0, features.ErrShapeMismatch
	}
	return sigmoid(dot(m.Weights, scaled) + m.Intercept), nil
}

func (m *LogisticModel) validate() error {
	if len(m.Weights) != len(features.Names) {
		return fmt.Errorf("model has %d weights, want %d", len(m.Weights), len(features.Names))
	}
	for _, w := range append([]float64{m.Intercept}, m.Weights...) {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return errors.New("model has non-finite weights")
		}
	}
	return nil
}

// LoadLogistic reads the persisted model. It returns models.ErrModelUnavailable
// when none is stored or the stored one is unusable.
func LoadLogistic(ctx context.Context, docs domrepo.DocumentStore) (*LogisticModel, error) {
	var m LogisticModel
	if err := docs.LoadDocument(ctx, domrepo.DocModel, &m); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrModelUnavailable
		}
		return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelUnavailable, err)
	}
	return &m, nil
}

func SaveLogistic(ctx context.Context, docs domrepo.DocumentStore, m *LogisticModel) error {
	if err := docs.SaveDocument(ctx, domrepo.DocModel, m); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
