// Package app runs the pushrouter components and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Runner is a long-lived component that serves until ctx is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// App runs the HTTP server and the scheduler together.
type App struct {
	logger    *slog.Logger
	server    Runner
	scheduler *Scheduler
}

// New creates an App.
func New(logger *slog.Logger, server Runner, scheduler *Scheduler) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:    logger.With("component", "app_orchestrator"),
		server:    server,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until ctx is cancelled or one of
// them fails, in which case the others are stopped too.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting orchestrator...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.server.Run(gCtx); err != nil {
			a.logger.Error("HTTP server stopped with error", "error", err)
			return err
		}
		if gCtx.Err() == nil {
			return fmt.Errorf("http server stopped unexpectedly")
		}
		return nil
	})

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Orchestrator stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Orchestrator stopped gracefully.")
	return nil
}
