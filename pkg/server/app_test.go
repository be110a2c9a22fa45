package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	mu    *sync.Mutex
	order *[]string
	name  string
}

func (c closeRecorder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.order = append(*c.order, c.name)
	return nil
}

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAppStopsOnContextCancel(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	app := New(nil).
		Add("a", ComponentFunc(blockUntilDone)).
		Add("b", ComponentFunc(blockUntilDone)).
		OnClose("first", closeRecorder{&mu, &order, "first"}).
		OnClose("second", closeRecorder{&mu, &order, "second"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestAppComponentFailureStopsOthers(t *testing.T) {
	boom := errors.New("boom")
	app := New(nil).
		Add("waiter", ComponentFunc(blockUntilDone)).
		Add("broken", ComponentFunc(func(context.Context) error { return boom }))

	err := app.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken")
}

func TestAppSkipsNilComponents(t *testing.T) {
	app := New(nil).Add("nil", nil).OnClose("nil", nil)
	assert.Empty(t, app.components)
	assert.Empty(t, app.closers)
}
