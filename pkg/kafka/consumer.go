package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	applogger "SignalForge/pkg/logger"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer fans messages from one reader per topic into a worker pool.
// Messages of one partition are handled one at a time so per-symbol order
// survives the fan-out.
type Consumer struct {
	cfg      *ConsumerConfig
	handlers map[string]MessageHandler
	hook     ConsumerHook
	logger   *applogger.Logger

	partLocks sync.Map // "topic/partition" -> *sync.Mutex
}

type message struct {
	reader *kafka.Reader
	km     kafka.Message
}

func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "signal-engine",
		WorkerCount: 1,
		BufferSize:  64,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  2 * time.Second,
		MinBytes:    1,
		MaxBytes:    10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	initConsumerMetrics()
	return &Consumer{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
		hook:     NoopHook{},
		logger:   applogger.Nop(),
	}, nil
}

func (c *Consumer) SetLogger(l *applogger.Logger) {
	if l != nil {
		c.logger = l
	}
}

func (c *Consumer) SetHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) RegisterHandler(h MessageHandler) {
	if _, ok := c.handlers[h.Topic()]; ok {
		c.logger.Warn("kafka consumer: handler already registered", applogger.String("topic", h.Topic()))
		return
	}
	c.handlers[h.Topic()] = h
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return errors.New("kafka consumer: no handlers registered")
	}

	var dlq *kafka.Writer
	if c.cfg.DLQTopic != "" {
		dlq = &kafka.Writer{Addr: kafka.TCP(c.cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
		defer dlq.Close()
	}

	msgs := make(chan message, c.cfg.BufferSize)
	var readers, workers sync.WaitGroup

	for topic := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: c.cfg.MinBytes,
			MaxBytes: c.cfg.MaxBytes,
		})
		readers.Add(1)
		go func() {
			defer readers.Done()
			defer reader.Close()
			c.read(ctx, reader, msgs)
		}()
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for m := range msgs {
				c.process(ctx, m, dlq)
			}
		}()
	}

	c.logger.Info("kafka consumer started",
		applogger.Int("topics", len(c.handlers)),
		applogger.Int("workers", c.cfg.WorkerCount),
	)

	readers.Wait()
	close(msgs)
	workers.Wait()

	c.logger.Info("kafka consumer stopped")
	return nil
}

func (c *Consumer) read(ctx context.Context, reader *kafka.Reader, out chan<- message) {
	topic := reader.Config().Topic
	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("kafka consumer: fetch failed", applogger.String("topic", topic), applogger.Error(err))
			select {
			case <-time.After(time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case out <- message{reader: reader, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(out)))
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	l, _ := c.partLocks.LoadOrStore(fmt.Sprintf("%s/%d", topic, partition), &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (c *Consumer) process(ctx context.Context, m message, dlq *kafka.Writer) {
	topic := m.km.Topic
	handler := c.handlers[topic]
	start := time.Now()

	pl := c.partitionLock(topic, m.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	var err error
	for attempt := 1; ; attempt++ {
		err = c.handleOnce(ctx, handler, m.km)
		if err == nil || attempt > c.cfg.RetryMax || ctx.Err() != nil {
			break
		}
		select {
		case <-time.After(backoff(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-ctx.Done():
		}
	}

	if err != nil {
		c.hook.OnDeadLetter(ctx, topic, m.km, err)
		c.logger.Error("kafka consumer: message failed", applogger.String("topic", topic), applogger.Error(err))
		if dlq != nil {
			dlqErr := dlq.WriteMessages(context.WithoutCancel(ctx), kafka.Message{
				Topic:   c.cfg.DLQTopic,
				Key:     m.km.Key,
				Value:   m.km.Value,
				Headers: []kafka.Header{{Key: "source_topic", Value: []byte(topic)}},
			})
			if dlqErr != nil {
				c.logger.Error("kafka consumer: dlq write failed", applogger.Error(dlqErr))
			}
		}
	}

	// Commit after success or dead-lettering so poison messages don't loop.
	if ctx.Err() == nil {
		if cerr := m.reader.CommitMessages(ctx, m.km); cerr != nil {
			c.logger.Warn("kafka consumer: commit failed", applogger.String("topic", topic), applogger.Error(cerr))
		}
	}
	consumerHandleLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleOnce(ctx context.Context, h MessageHandler, km kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	hctx, err := c.hook.BeforeHandle(ctx, km.Topic, km)
	if err != nil {
		return err
	}
	err = h.Handle(hctx, km.Value)
	c.hook.AfterHandle(hctx, km.Topic, km, err)
	return err
}

// backoff is exponential from min, capped at max, with up to 50% jitter.
func backoff(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	d := min << uint(attempt-1)
	if d > max || d <= 0 {
		d = max
	}
	if half := int64(d) / 2; half > 0 {
		d -= time.Duration(rand.Int64N(half))
	}
	return d
}

var (
	consumerMetricsOnce   sync.Once
	consumerQueueDepth    *prometheus.GaugeVec
	consumerHandleLatency *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerMetricsOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "signals_kafka_consumer_queue_depth",
			Help: "Messages waiting for a consumer worker",
		}, []string{"topic"})
		consumerHandleLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name: "signals_kafka_consumer_handle_seconds",
			Help: "Handling time per message",
		}, []string{"topic"})
	})
}
