package repository

import (
	"context"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// LogSignalPublisher writes signals to the service log. It stands in for
// Kafka when no broker is configured.
type LogSignalPublisher struct {
	l *applogger.Logger
}

var _ domrepo.SignalPublisher = (*LogSignalPublisher)(nil)

func NewLogSignalPublisher(l *applogger.Logger) *LogSignalPublisher {
	if l == nil {
		l = applogger.Nop()
	}
	return &LogSignalPublisher{l: l}
}

func (p *LogSignalPublisher) Publish(_ context.Context, s *models.TradeSignal) error {
	p.l.Info("trade signal",
		applogger.String("id", s.ID),
		applogger.Symbol(s.Symbol),
		applogger.String("action", string(s.Action)),
		applogger.Float64("amount", s.Amount),
		applogger.Float64("price", s.Price),
		applogger.Bool("override", s.Override),
		applogger.String("reason", s.Reason),
	)
	return nil
}

func (p *LogSignalPublisher) PublishBatch(ctx context.Context, signals []*models.TradeSignal) error {
	for _, s := range signals {
		if err := p.Publish(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *LogSignalPublisher) Close() error { return nil }
