package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []*models.TradeSignal
}

func (p *flakyPublisher) Publish(_ context.Context, s *models.TradeSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker down")
	}
	p.published = append(p.published, s)
	return nil
}

func (p *flakyPublisher) PublishBatch(ctx context.Context, ss []*models.TradeSignal) error {
	for _, s := range ss {
		if err := p.Publish(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (p *flakyPublisher) Close() error { return nil }

func (p *flakyPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.published)
}

func testSignal() *models.TradeSignal {
	return &models.TradeSignal{ID: "s1", Symbol: "bitcoin", Action: models.ActionBuy, Amount: 10, Price: 100}
}

func TestDispatchPublishes(t *testing.T) {
	pub := &flakyPublisher{}
	d := NewSignalDispatcher(pub, nil)

	require.NoError(t, d.Dispatch(context.Background(), testSignal()))
	assert.Equal(t, 1, pub.count())
	assert.Zero(t, d.Pending())
}

type sentCounter struct {
	domrepo.NopMetrics
	sent map[string]int
}

func (m *sentCounter) RecordMessageSent(backend, symbol string) {
	m.sent[backend+"/"+symbol]++
}

func TestDispatchCountsDelivered(t *testing.T) {
	m := &sentCounter{sent: map[string]int{}}
	d := NewSignalDispatcher(&flakyPublisher{}, m, WithBackendName("kafka"))

	require.NoError(t, d.Dispatch(context.Background(), testSignal()))
	assert.Equal(t, map[string]int{"kafka/bitcoin": 1}, m.sent)
}

func TestDispatchRejectsInvalid(t *testing.T) {
	d := NewSignalDispatcher(&flakyPublisher{}, nil)

	assert.Error(t, d.Dispatch(context.Background(), nil))
	bad := testSignal()
	bad.Action = models.ActionNone
	assert.Error(t, d.Dispatch(context.Background(), bad))
	bad = testSignal()
	bad.Amount = 0
	assert.Error(t, d.Dispatch(context.Background(), bad))
}

func TestDispatchBuffersAndRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2}
	d := NewSignalDispatcher(pub, nil, WithBackoff(time.Millisecond, 5*time.Millisecond))

	err := d.Dispatch(context.Background(), testSignal())
	require.Error(t, err)
	assert.Equal(t, 1, d.Pending())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	assert.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)
	d.Stop()
	d.Stop()
}

func TestDispatchBufferFull(t *testing.T) {
	pub := &flakyPublisher{failures: 10}
	d := NewSignalDispatcher(pub, nil, WithBufferSize(1))

	assert.Error(t, d.Dispatch(context.Background(), testSignal()))
	assert.Error(t, d.Dispatch(context.Background(), testSignal()))
	assert.Equal(t, 1, d.Pending())
}
