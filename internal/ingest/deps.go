package ingest

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edgard/pushrouter/internal/database"
	"github.com/edgard/pushrouter/internal/push"
)

// EventHandler runs a raw push event through the decision engine.
type EventHandler interface {
	Handle(ctx context.Context, raw push.RawEvent) (push.Result, error)
}

// SessionBinder binds and clears the device session.
type SessionBinder interface {
	Bind(ctx context.Context, userEntityID string, authenticated bool) error
	Clear(ctx context.Context) error
}

// HandlerDeps provides dependencies for HTTP handlers.
type HandlerDeps struct {
	Logger   *slog.Logger
	Engine   EventHandler
	Store    database.Store
	Session  SessionBinder
	Registry *prometheus.Registry
}
