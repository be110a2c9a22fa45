package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestParsePayload(t *testing.T) {
	p, err := ParsePayload[point]([]byte(`{"symbol":"bitcoin","price":42.5}`))
	require.NoError(t, err)
	assert.Equal(t, "bitcoin", p.Symbol)
	assert.Equal(t, 42.5, p.Price)

	_, err = ParsePayload[point](nil)
	assert.Error(t, err)

	_, err = ParsePayload[point]([]byte(`{"symbol":`))
	assert.Error(t, err)
}

func TestRetryPlan(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := Message{ID: "m1"}

	next, at, retry := retryPlan(msg, 2, 10*time.Second, now)
	require.True(t, retry)
	assert.Equal(t, 1, next.Attempts)
	assert.Equal(t, now.Add(10*time.Second), at)

	next, _, retry = retryPlan(next, 2, 10*time.Second, now)
	require.True(t, retry)
	assert.Equal(t, 2, next.Attempts)

	_, _, retry = retryPlan(next, 2, 10*time.Second, now)
	assert.False(t, retry)
}

func TestRetryPlanZeroLimitDeadLettersImmediately(t *testing.T) {
	_, _, retry := retryPlan(Message{}, 0, time.Second, time.Now())
	assert.False(t, retry)
}

func TestKeys(t *testing.T) {
	q := NewRedisQueue(nil, nil, nil, WithKeyPrefix("x"))
	assert.Equal(t, "x:messages", q.queueKey())
	assert.Equal(t, "x:retry", q.retryKey())
	assert.Equal(t, "x:dlq", q.deadLetterKey())
	assert.Equal(t, 1, q.config.Workers)
}
