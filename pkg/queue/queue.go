package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Enqueuer accepts work for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers       int           // number of workers
	RetryLimit    int           // number of maximum retries
	RetryDelay    time.Duration // time delay between retries
	RetryInterval time.Duration // how often due retries are moved back
	PopTimeout    time.Duration
}

// Message represents a message in the queue
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempts  int             `json:"attempts"`
	Timestamp time.Time       `json:"timestamp"`
}

// ParsePayload decodes a job payload into T.
func ParsePayload[T any](payload []byte) (*T, error) {
	var result T
	if len(payload) == 0 {
		return nil, fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}

// retryPlan decides what happens to a failed message: retry at the
// returned time, or dead-letter when the limit is exhausted.
func retryPlan(msg Message, limit int, delay time.Duration, now time.Time) (next Message, at time.Time, retry bool) {
	if msg.Attempts >= limit {
		return msg, time.Time{}, false
	}
	msg.Attempts++
	return msg, now.Add(delay), true
}
