package repository

import (
	"context"
	"time"

	"SignalForge/internal/domain/models"
)

// DocumentStore persists JSON documents and capped append-only lists.
// Every list write leaves the list fully rewritten with at most limit
// entries, oldest trimmed first.
type DocumentStore interface {
	// LoadDocument decodes the document at key into dest. Absent keys return
	// models.ErrNotFound.
	LoadDocument(ctx context.Context, key string, dest any) error
	SaveDocument(ctx context.Context, key string, value any) error
	AppendCapped(ctx context.Context, list string, entry any, limit int) error
	// LoadList decodes the whole list, oldest first, into dest (a pointer to
	// a slice). Absent lists decode as empty.
	LoadList(ctx context.Context, list string, dest any) error
	Close() error
}

// PatternArchive keeps the full pattern history behind the capped memory.
type PatternArchive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, rec *models.PatternRecord) error
	StoreBatch(ctx context.Context, recs []*models.PatternRecord) error
	Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.PatternRecord, error)
	Health(ctx context.Context) error
	Close() error
}

type SignalPublisher interface {
	Publish(ctx context.Context, s *models.TradeSignal) error
	PublishBatch(ctx context.Context, signals []*models.TradeSignal) error
	Close() error
}

// Cooldown tracks recently traded symbols.
type Cooldown interface {
	Active(ctx context.Context, symbol string) (bool, error)
	// Claim marks the symbol as traded for window. It returns false when
	// another caller already holds the slot.
	Claim(ctx context.Context, symbol string, window time.Duration) (bool, error)
	// Release frees a claimed slot whose trade never happened.
	Release(ctx context.Context, symbol string) error
}

type Metrics interface {
	RecordDecision(symbol string, state models.DecisionState)
	RecordGateRejection(reason string)
	RecordConfidence(symbol string, probability float64)
	RecordAccuracy(accuracy float64)
	RecordModelAccuracy(accuracy float64)
	RecordThresholds(buy, sell float64)
	RecordCalibration(task string, ok bool)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordMessageSent(backend, symbol string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordDecision(string, models.DecisionState) {}
func (NopMetrics) RecordGateRejection(string)                  {}
func (NopMetrics) RecordConfidence(string, float64)            {}
func (NopMetrics) RecordAccuracy(float64)                      {}
func (NopMetrics) RecordModelAccuracy(float64)                 {}
func (NopMetrics) RecordThresholds(float64, float64)           {}
func (NopMetrics) RecordCalibration(string, bool)              {}
func (NopMetrics) RecordError(string)                          {}
func (NopMetrics) RecordLatency(string, float64)               {}
func (NopMetrics) RecordMessageSent(string, string)            {}
