package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffStaysWithinBounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 10; attempt++ {
		d := backoff(min, max, attempt)
		assert.LessOrEqual(t, d, max)
		assert.Greater(t, d, time.Duration(0))
	}
}

func TestBackoffGrows(t *testing.T) {
	// With 50% jitter the first attempt never exceeds min and the fourth
	// never drops below half of 8*min.
	min, max := 10*time.Millisecond, time.Second
	assert.LessOrEqual(t, backoff(min, max, 1), min)
	assert.GreaterOrEqual(t, backoff(min, max, 4), 40*time.Millisecond)
}

func TestParseCompression(t *testing.T) {
	_, ok := parseCompression("none")
	assert.False(t, ok)
	_, ok = parseCompression("zstd")
	assert.True(t, ok)
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue(map[string]int{"a": 1})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	b, _ = encodeValue("raw")
	assert.Equal(t, "raw", string(b))
}
