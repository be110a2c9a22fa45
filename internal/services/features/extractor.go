// Package features turns snapshots and pattern records into model inputs.
package features

import (
	"errors"
	"math"

	"github.com/markcheno/go-talib"

	"SignalForge/internal/domain/models"
)

// NeutralRSI is reported while there are not enough closes for a full period.
const NeutralRSI = 50.0

// Names lists the feature columns in vector order.
var Names = []string{"rsi", "volume", "sentiment_score"}

var ErrShapeMismatch = errors.New("features: vector length mismatch")

// Vector builds the model input for a live snapshot.
func Vector(s *models.MarketSnapshot, sentiment models.SentimentSummary) []float64 {
	return []float64{s.RSI, s.Volume, sentiment.Score()}
}

// FromRecord builds the model input for a stored pattern record.
func FromRecord(r models.PatternRecord) []float64 {
	return []float64{r.RSI, r.Volume, r.SentimentScore}
}

// RSI computes the relative strength index of the last close. With fewer
// than period+1 closes it returns NeutralRSI; a window with no losses is 100.
func RSI(closes []float64, period int) float64 {
	if period < 2 || len(closes) < period+1 {
		return NeutralRSI
	}

	losses := false
	for i := len(closes) - period; i < len(closes); i++ {
		if closes[i] < closes[i-1] {
			losses = true
			break
		}
	}
	if !losses {
		return 100
	}

	series := talib.Rsi(closes, period)
	v := series[len(series)-1]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NeutralRSI
	}
	return math.Max(0, math.Min(100, v))
}

// StandardScaler centres each column on its mean and scales it to unit
// variance. Constant columns are only centred.
type StandardScaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

func FitScaler(rows [][]float64) (StandardScaler, error) {
	if len(rows) == 0 {
		return StandardScaler{}, errors.New("features: no rows to fit")
	}
	width := len(rows[0])
	mean := make([]float64, width)
	std := make([]float64, width)

	for _, row := range rows {
		if len(row) != width {
			return StandardScaler{}, ErrShapeMismatch
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(rows))
	for j := range mean {
		mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			d := v - mean[j]
			std[j] += d * d
		}
	}
	for j := range std {
		std[j] = math.Sqrt(std[j] / n)
		if std[j] == 0 {
			std[j] = 1
		}
	}
	return StandardScaler{Mean: mean, Std: std}, nil
}

func (s StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) || len(row) != len(s.Std) {
		return nil, ErrShapeMismatch
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

func (s StandardScaler) TransformAll(rows [][]float64) ([][]float64, error) {
	out := make([][]float64, 0, len(rows))
	for _, row := range rows {
		t, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
