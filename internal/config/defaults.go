package config

import "time"

// Default values for configuration
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = true

	DefaultDBPath = "pushrouter.db"

	DefaultServerAddr            = ":8080"
	DefaultServerBodyLimit       = "1M"
	DefaultServerRateLimit       = 50.0
	DefaultServerShutdownTimeout = 10 * time.Second

	DefaultPushEnabled           = true
	DefaultPushDeliveryRetention = 7 * 24 * time.Hour

	DefaultMessageTitle   = "New message"
	DefaultMessageTicker  = "You have a new message"
	DefaultFollowerTitle  = "New follower"
	DefaultFollowerTicker = "Someone started following you"

	DefaultNavLogin          = "login"
	DefaultNavMain           = "main"
	DefaultNavMainWithThread = "main"
)

// DefaultNotifyBackends enables only the log presenter.
var DefaultNotifyBackends = []string{"log"}

// DefaultTasks is the scheduler task table used when none is configured.
var DefaultTasks = map[string]any{
	"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 30 3 * * *"},
	"delivery_prune":  map[string]any{"enabled": true, "schedule": "0 0 * * * *"},
}
