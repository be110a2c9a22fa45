package repository

import (
	"context"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	pkgkafka "SignalForge/pkg/kafka"
)

// KafkaSignalPublisher emits every trade signal keyed by symbol so
// downstream consumers see one symbol's signals in order.
type KafkaSignalPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func NewKafkaSignalPublisher(producer *pkgkafka.Producer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) Publish(ctx context.Context, s *models.TradeSignal) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.Symbol), s)
}

func (p *KafkaSignalPublisher) PublishBatch(ctx context.Context, signals []*models.TradeSignal) error {
	if len(signals) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(signals))
	for _, s := range signals {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(s.Symbol), Value: s})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaSignalPublisher) Close() error { return nil }
