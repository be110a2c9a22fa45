package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	applogger "SignalForge/pkg/logger"
)

// SignalDispatcher sits between the asset workers and the signal publisher.
// It validates outgoing signals and buffers them while the publisher is
// unavailable.
type SignalDispatcher struct {
	pub     domrepo.SignalPublisher
	backend string
	metrics domrepo.Metrics
	logger  *applogger.Logger
	bufCh   chan *models.TradeSignal
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	minBackoff time.Duration
	maxBackoff time.Duration
}

type DispatchOption func(*SignalDispatcher)

// WithBufferSize sets how many signals are held while the publisher fails.
func WithBufferSize(n int) DispatchOption {
	return func(d *SignalDispatcher) {
		if n > 0 {
			d.bufCh = make(chan *models.TradeSignal, n)
		}
	}
}

// WithBackoff sets the retry delay range for buffered signals.
func WithBackoff(min, max time.Duration) DispatchOption {
	return func(d *SignalDispatcher) {
		if min > 0 && max >= min {
			d.minBackoff, d.maxBackoff = min, max
		}
	}
}

// WithBackendName labels delivered signals in metrics.
func WithBackendName(name string) DispatchOption {
	return func(d *SignalDispatcher) {
		if name != "" {
			d.backend = name
		}
	}
}

func WithDispatchLogger(l *applogger.Logger) DispatchOption {
	return func(d *SignalDispatcher) { d.logger = l }
}

func NewSignalDispatcher(pub domrepo.SignalPublisher, metrics domrepo.Metrics, opts ...DispatchOption) *SignalDispatcher {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	d := &SignalDispatcher{
		pub:        pub,
		backend:    "default",
		metrics:    metrics,
		logger:     applogger.Nop(),
		bufCh:      make(chan *models.TradeSignal, 256),
		stopCh:     make(chan struct{}),
		minBackoff: 50 * time.Millisecond,
		maxBackoff: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run flushes buffered signals until ctx is cancelled or Stop is called.
func (d *SignalDispatcher) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return errors.New("dispatcher already running")
	}
	d.started = true
	d.mu.Unlock()

	backoff := d.minBackoff
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.stopCh:
			return nil
		case s := <-d.bufCh:
			if err := d.pub.Publish(ctx, s); err != nil {
				d.metrics.RecordError("dispatch_flush")
				if backoff < d.maxBackoff {
					backoff = min(backoff*2, d.maxBackoff)
				}
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil
				}
				select {
				case d.bufCh <- s:
				default:
					d.metrics.RecordError("dispatch_buffer_drop")
					d.logger.Warn("signal dropped after publish failures",
						applogger.Symbol(s.Symbol),
						applogger.String("signal_id", s.ID),
						applogger.Error(err))
				}
				continue
			}
			d.metrics.RecordMessageSent(d.backend, s.Symbol)
			backoff = d.minBackoff
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (d *SignalDispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	select {
	case <-d.stopCh:
	default:
		close(d.stopCh)
	}
}

// Pending is the number of buffered signals.
func (d *SignalDispatcher) Pending() int { return len(d.bufCh) }

// Dispatch validates and publishes one signal. A publish failure buffers the
// signal for retry and is still returned to the caller.
func (d *SignalDispatcher) Dispatch(ctx context.Context, s *models.TradeSignal) error {
	start := time.Now()
	if err := validateSignal(s); err != nil {
		d.metrics.RecordError("dispatch_validate")
		return err
	}

	if err := d.pub.Publish(ctx, s); err != nil {
		d.metrics.RecordError("dispatch_publish")
		select {
		case d.bufCh <- s:
		default:
			d.metrics.RecordError("dispatch_buffer_full")
		}
		return fmt.Errorf("dispatch signal: %w", err)
	}
	d.metrics.RecordMessageSent(d.backend, s.Symbol)
	d.metrics.RecordLatency("dispatch", time.Since(start).Seconds())
	return nil
}

func validateSignal(s *models.TradeSignal) error {
	if s == nil {
		return errors.New("signal nil")
	}
	if s.ID == "" || s.Symbol == "" {
		return errors.New("signal id or symbol empty")
	}
	if s.Action != models.ActionBuy && s.Action != models.ActionSell {
		return fmt.Errorf("signal action %q", s.Action)
	}
	if s.Amount <= 0 || s.Price <= 0 {
		return errors.New("signal amount and price must be positive")
	}
	return nil
}
