package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
	xutil "SignalForge/pkg/util"
)

// SnapshotSink stores pushed snapshots.
type SnapshotSink interface {
	Put(s models.MarketSnapshot) error
}

// KafkaSnapshotHandler feeds market snapshots from a Kafka topic into the
// snapshot cache the asset workers read from.
type KafkaSnapshotHandler struct {
	topic   string
	sink    SnapshotSink
	metrics domrepo.Metrics
}

func NewKafkaSnapshotHandler(topic string, sink SnapshotSink, metrics domrepo.Metrics) *KafkaSnapshotHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &KafkaSnapshotHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

// incoming message schema: MarketSnapshot JSON; "t" in seconds or
// milliseconds is accepted when timestamp is absent.
func (h *KafkaSnapshotHandler) Handle(_ context.Context, b []byte) error {
	var m struct {
		models.MarketSnapshot
		T int64 `json:"t"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return fmt.Errorf("decode snapshot: %w", err)
	}
	s := m.MarketSnapshot
	if s.Timestamp.IsZero() && m.T > 0 {
		s.Timestamp = xutil.UnixAuto(m.T)
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now().UTC()
	}
	h.metrics.RecordLatency("snapshot_ingest_lag", time.Since(s.Timestamp).Seconds())

	if err := h.sink.Put(s); err != nil {
		h.metrics.RecordError("consumer_snapshot")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
