package metrics

import (
	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	decisions      *prometheus.CounterVec
	gateRejections *prometheus.CounterVec
	confidence     *prometheus.GaugeVec
	confidenceDist prometheus.Histogram
	accuracy       prometheus.Gauge
	modelAccuracy  prometheus.Gauge
	thresholds     *prometheus.GaugeVec
	calibrations   *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
	messagesSent   *prometheus.CounterVec
}

var _ domrepo.Metrics = (*Recorder)(nil)

// New registers the recorder on the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers every collector on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		decisions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_decisions_total",
				Help: "Decisions produced by the engine",
			},
			[]string{"symbol", "state"},
		),
		gateRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_gate_rejections_total",
				Help: "Snapshots rejected by the market gate",
			},
			[]string{"reason"},
		),
		confidence: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signals_last_confidence",
				Help: "Last rising probability per symbol",
			},
			[]string{"symbol"},
		),
		confidenceDist: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signals_confidence",
				Help:    "Distribution of rising probabilities",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
		),
		accuracy: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signals_replay_accuracy",
				Help: "Accuracy of the last replay pass",
			},
		),
		modelAccuracy: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "signals_model_accuracy",
				Help: "Training accuracy of the active prediction model",
			},
		),
		thresholds: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "signals_rsi_threshold",
				Help: "Current RSI thresholds",
			},
			[]string{"side"},
		),
		calibrations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_calibration_runs_total",
				Help: "Calibration task runs by outcome",
			},
			[]string{"task", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signals_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		messagesSent: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signals_messages_sent_total",
				Help: "Signals delivered to a backend",
			},
			[]string{"backend", "symbol"},
		),
	}
}

func (r *Recorder) RecordDecision(symbol string, state models.DecisionState) {
	r.decisions.WithLabelValues(symbol, string(state)).Inc()
}

func (r *Recorder) RecordGateRejection(reason string) {
	r.gateRejections.WithLabelValues(reason).Inc()
}

// RecordConfidence records the probability both per symbol and as a distribution.
func (r *Recorder) RecordConfidence(symbol string, probability float64) {
	r.confidence.WithLabelValues(symbol).Set(probability)
	r.confidenceDist.Observe(probability)
}

func (r *Recorder) RecordAccuracy(accuracy float64) {
	r.accuracy.Set(accuracy)
}

func (r *Recorder) RecordModelAccuracy(accuracy float64) {
	r.modelAccuracy.Set(accuracy)
}

func (r *Recorder) RecordThresholds(buy, sell float64) {
	r.thresholds.WithLabelValues("buy").Set(buy)
	r.thresholds.WithLabelValues("sell").Set(sell)
}

func (r *Recorder) RecordCalibration(task string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.calibrations.WithLabelValues(task, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordMessageSent records a signal sent to a backend.
func (r *Recorder) RecordMessageSent(backend, symbol string) {
	r.messagesSent.WithLabelValues(backend, symbol).Inc()
}
