package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/internal/services/features"
	applogger "SignalForge/pkg/logger"
)

var (
	ErrNotEnoughData = errors.New("not enough labelled records")
	ErrSingleClass   = errors.New("training data has a single class")
	ErrLowAccuracy   = errors.New("trained model below accuracy floor")
)

// PatternSource is the read side of pattern memory.
type PatternSource interface {
	Snapshot() []models.PatternRecord
}

type TrainerConfig struct {
	MinRows      int
	MinAccuracy  float64
	Epochs       int
	LearningRate float64
}

type TrainResult struct {
	Rows     int     `json:"rows"`
	Accuracy float64 `json:"accuracy"`
	Kept     bool    `json:"kept"`
}

// Trainer refits the logistic model from pattern memory and swaps it into
// the predictor when it is good enough.
type Trainer struct {
	cfg       TrainerConfig
	patterns  PatternSource
	docs      domrepo.DocumentStore
	predictor *Predictor
	now       func() time.Time
	metrics   domrepo.Metrics
	logger    *applogger.Logger
}

func NewTrainer(cfg TrainerConfig, patterns PatternSource, docs domrepo.DocumentStore, p *Predictor, logger *applogger.Logger) *Trainer {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &Trainer{cfg: cfg, patterns: patterns, docs: docs, predictor: p, now: time.Now, metrics: domrepo.NopMetrics{}, logger: logger}
}

func (t *Trainer) SetMetrics(m domrepo.Metrics) {
	if m != nil {
		t.metrics = m
	}
}

// Label pairs each record with the next record of the same symbol. The
// label is 1 when that next price is higher. The newest record per symbol
// has no label and is skipped.
func Label(recs []models.PatternRecord) (x [][]float64, y []float64) {
	next := make(map[string]float64)
	type row struct {
		x []float64
		y float64
	}
	rows := make([]row, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		r := recs[i]
		if np, ok := next[r.Symbol]; ok {
			label := 0.0
			if np > r.Price {
				label = 1
			}
			rows = append(rows, row{x: features.FromRecord(r), y: label})
		}
		next[r.Symbol] = r.Price
	}
	for i := len(rows) - 1; i >= 0; i-- {
		x = append(x, rows[i].x)
		y = append(y, rows[i].y)
	}
	return x, y
}

// Fit trains a logistic regression with batch gradient descent from zero
// weights, so identical input always gives an identical model.
func Fit(x [][]float64, y []float64, epochs int, lr float64) (*LogisticModel, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, ErrNotEnoughData
	}
	scaler, err := features.FitScaler(x)
	if err != nil {
		return nil, err
	}
	xs, err := scaler.TransformAll(x)
	if err != nil {
		return nil, err
	}

	width := len(xs[0])
	w := make([]float64, width)
	var b float64
	n := float64(len(xs))
	grad := make([]float64, width)

	for e := 0; e < epochs; e++ {
		clear(grad)
		var gb float64
		for i, row := range xs {
			d := sigmoid(dot(w, row)+b) - y[i]
			for j, v := range row {
				grad[j] += d * v
			}
			gb += d
		}
		for j := range w {
			w[j] -= lr * grad[j] / n
		}
		b -= lr * gb / n
	}

	m := &LogisticModel{
		Weights:   w,
		Intercept: b,
		Scaler:    scaler,
		Features:  append([]string(nil), features.Names...),
		Rows:      len(xs),
	}
	m.Accuracy = accuracy(m, xs, y)
	return m, nil
}

func accuracy(m *LogisticModel, scaled [][]float64, y []float64) float64 {
	hits := 0
	for i, row := range scaled {
		p := sigmoid(dot(m.Weights, row) + m.Intercept)
		if (p >= 0.5) == (y[i] == 1) {
			hits++
		}
	}
	return float64(hits) / float64(len(scaled))
}

// Train refits from the current pattern memory. The new model replaces the
// active one only when its training accuracy reaches MinAccuracy.
func (t *Trainer) Train(ctx context.Context) (TrainResult, error) {
	x, y := Label(t.patterns.Snapshot())
	res := TrainResult{Rows: len(x)}
	if len(x) < t.cfg.MinRows {
		return res, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughData, len(x), t.cfg.MinRows)
	}
	if singleClass(y) {
		return res, ErrSingleClass
	}

	m, err := Fit(x, y, t.cfg.Epochs, t.cfg.LearningRate)
	if err != nil {
		return res, fmt.Errorf("fit model: %w", err)
	}
	m.TrainedAt = t.now().UTC()
	res.Accuracy = m.Accuracy

	if m.Accuracy < t.cfg.MinAccuracy {
		t.logger.Info("retrained model discarded",
			applogger.Float64("accuracy", m.Accuracy),
			applogger.Int("rows", m.Rows))
		return res, fmt.Errorf("%w: %.2f < %.2f", ErrLowAccuracy, m.Accuracy, t.cfg.MinAccuracy)
	}

	if err := SaveLogistic(ctx, t.docs, m); err != nil {
		return res, err
	}
	t.predictor.SetModel(m)
	res.Kept = true
	t.logger.Info("model retrained",
		applogger.Float64("accuracy", m.Accuracy),
		applogger.Int("rows", m.Rows))
	return res, nil
}

// Retrain runs Train as a scheduled task. Too little data, a single class
// or a weak fit leave the current model in place and are not failures.
func (t *Trainer) Retrain(ctx context.Context) error {
	res, err := t.Train(ctx)
	switch {
	case err == nil:
		t.metrics.RecordModelAccuracy(res.Accuracy)
		return nil
	case errors.Is(err, ErrNotEnoughData), errors.Is(err, ErrSingleClass), errors.Is(err, ErrLowAccuracy):
		t.logger.Debug("training skipped", applogger.Int("rows", res.Rows), applogger.Error(err))
		return nil
	default:
		return err
	}
}

func singleClass(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return false
		}
	}
	return true
}
