package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	applogger "SignalForge/pkg/logger"
)

// Component is a long-running part of the service. Run blocks until ctx is
// done or the component fails.
type Component interface {
	Run(ctx context.Context) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(ctx context.Context) error

func (f ComponentFunc) Run(ctx context.Context) error { return f(ctx) }

type namedComponent struct {
	name string
	c    Component
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	logger       *applogger.Logger
	components   []namedComponent
	closers      []namedCloser
	closeTimeout time.Duration
}

func New(logger *applogger.Logger) *App {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &App{logger: logger, closeTimeout: 10 * time.Second}
}

// Add registers a component. Components start in registration order.
func (a *App) Add(name string, c Component) *App {
	if c != nil {
		a.components = append(a.components, namedComponent{name: name, c: c})
	}
	return a
}

// OnClose registers a client to close after every component has stopped.
// Closers run in reverse registration order.
func (a *App) OnClose(name string, c io.Closer) *App {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
	return a
}

// Run starts every component and blocks until SIGINT/SIGTERM, ctx
// cancellation, or the first component failure.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	for _, nc := range a.components {
		g.Go(func() error {
			a.logger.Info("component started", applogger.String("component", nc.name))
			err := nc.c.Run(gctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Error("component failed", applogger.String("component", nc.name), applogger.Error(err))
				return fmt.Errorf("%s: %w", nc.name, err)
			}
			a.logger.Info("component stopped", applogger.String("component", nc.name))
			return nil
		})
	}

	<-gctx.Done()
	if ctx.Err() != nil {
		a.logger.Info("shutdown signal received")
	}
	err := g.Wait()
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := len(a.closers) - 1; i >= 0; i-- {
			nc := a.closers[i]
			if err := nc.c.Close(); err != nil {
				a.logger.Warn("close failed", applogger.String("client", nc.name), applogger.Error(err))
			}
		}
	}()
	select {
	case <-done:
		a.logger.Info("shutdown complete")
	case <-time.After(a.closeTimeout):
		a.logger.Warn("shutdown timed out", applogger.Duration("timeout", a.closeTimeout))
	}
}
