// Package ingest exposes the push engine, the normal sync path and the
// device session over HTTP.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/nrednav/cuid2"
	"golang.org/x/time/rate"

	"github.com/edgard/pushrouter/internal/config"
	"github.com/edgard/pushrouter/internal/logger"
)

// Server is the HTTP ingest surface.
type Server struct {
	echo   *echo.Echo
	cfg    config.ServerConfig
	logger *slog.Logger
}

// NewServer builds the echo instance with middleware and routes.
func NewServer(cfg config.ServerConfig, deps HandlerDeps) *Server {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "ingest")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return cuid2.Generate()
		},
	}))
	e.Use(logger.Middleware(log))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RateLimit > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(cfg.RateLimit))))
	}

	metricsCfg := echoprometheus.HandlerConfig{}
	if deps.Registry != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Namespace:  "pushrouter",
			Registerer: deps.Registry,
		}))
		metricsCfg.Gatherer = deps.Registry
	}

	deps.Logger = log
	for _, r := range routes(deps) {
		e.Add(r.Method, r.Path, r.Handler)
	}
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(metricsCfg))

	return &Server{echo: e, cfg: cfg, logger: log}
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
		if err := s.echo.Start(s.cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Shutting down HTTP server...")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}
