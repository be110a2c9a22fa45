package clickhouse

import (
	"testing"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	cfg := &ClientConfig{
		Host:        "ch.local",
		Port:        9440,
		Database:    "signals",
		User:        "svc",
		Password:    "pw",
		UseHTTP:     true,
		AsyncInsert: true,
		MaxExecTime: 30 * time.Second,
		DialTimeout: time.Second,
	}
	opts := options(cfg)

	assert.Equal(t, []string{"ch.local:9440"}, opts.Addr)
	assert.Equal(t, ch.HTTP, opts.Protocol)
	assert.Equal(t, "signals", opts.Auth.Database)
	assert.Equal(t, "svc", opts.Auth.Username)
	assert.Equal(t, 30, opts.Settings["max_execution_time"])
	assert.Equal(t, 1, opts.Settings["async_insert"])
}

func TestNewClientRequiresHost(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
