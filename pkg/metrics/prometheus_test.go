package metrics

import (
	"testing"

	"SignalForge/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordDecision("bitcoin", models.StateBuy)
	r.RecordDecision("bitcoin", models.StateBuy)
	r.RecordGateRejection("low_volume")
	r.RecordThresholds(28, 72)
	r.RecordCalibration("replay", false)
	r.RecordConfidence("bitcoin", 0.7)
	r.RecordAccuracy(0.85)
	r.RecordModelAccuracy(0.64)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.decisions.WithLabelValues("bitcoin", "BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.gateRejections.WithLabelValues("low_volume")))
	assert.Equal(t, 28.0, testutil.ToFloat64(r.thresholds.WithLabelValues("buy")))
	assert.Equal(t, 72.0, testutil.ToFloat64(r.thresholds.WithLabelValues("sell")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.calibrations.WithLabelValues("replay", "failed")))
	assert.Equal(t, 0.7, testutil.ToFloat64(r.confidence.WithLabelValues("bitcoin")))
	assert.Equal(t, 0.85, testutil.ToFloat64(r.accuracy))
	assert.Equal(t, 0.64, testutil.ToFloat64(r.modelAccuracy))
}

func TestRecordersOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegistry(prometheus.NewRegistry())
		NewWithRegistry(prometheus.NewRegistry())
	})
}
