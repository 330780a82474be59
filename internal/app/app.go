// Package app owns the process lifecycle: serving HTTP, running background
// tasks and shutting everything down in order.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jobsy/identity-service/internal/config"
	"github.com/jobsy/identity-service/internal/observability"
)

// BackgroundTask runs until ctx is cancelled.
type BackgroundTask func(ctx context.Context)

type App struct {
	Config          *config.Config
	Logger          *slog.Logger
	Server          *http.Server
	Observability   *observability.Runtime
	Tasks           []BackgroundTask
	ShutdownTimeout time.Duration
	closers         []func() error
}

func New(cfg *config.Config, logger *slog.Logger, server *http.Server, runtime *observability.Runtime, tasks ...BackgroundTask) *App {
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &App{
		Config:          cfg,
		Logger:          logger,
		Server:          server,
		Observability:   runtime,
		Tasks:           tasks,
		ShutdownTimeout: timeout,
	}
}

// OnClose registers a resource released after the server has drained.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Run serves until ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.Info("http server listening", "addr", ln.Addr().String())
		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})
	for _, task := range a.Tasks {
		g.Go(func() error {
			task(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		a.Logger.Info("shutting down http server", "timeout", a.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()
	var errs []error
	if runErr != nil {
		errs = append(errs, runErr)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.Observability.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("observability shutdown: %w", err))
	}
	return errors.Join(errs...)
}

// Periodic runs fn every interval. Failures are logged and the loop continues.
func Periodic(name string, interval time.Duration, logger *slog.Logger, fn func(ctx context.Context) error) BackgroundTask {
	return func(ctx context.Context) {
		if interval <= 0 {
			return
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					logger.Warn("background task failed", "task", name, "error", err.Error())
				}
			}
		}
	}
}
