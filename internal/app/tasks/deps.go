// Package tasks implements the scheduled maintenance tasks of pushrouter.
package tasks

import (
	"log/slog"
	"time"

	"github.com/edgard/pushrouter/internal/config"
	"github.com/edgard/pushrouter/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
	// Now defaults to time.Now.
	Now func() time.Time
}
