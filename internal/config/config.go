// Package config provides configuration loading, defaults and validation
// for pushrouter. Values come from built-in defaults, an optional YAML file
// and PUSHROUTER_* environment variables, in increasing precedence.
package config

import "time"

// Config holds every setting of the service.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Push      PushConfig      `mapstructure:"push"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig controls the slog handler.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig points at the SQLite file backing the store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// ServerConfig configures the HTTP ingest surface.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"             validate:"required"`
	BodyLimit       string        `mapstructure:"body_limit"       validate:"required"`
	RateLimit       float64       `mapstructure:"rate_limit"       validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=1s,max=5m"`
}

// PushConfig configures the push decision engine.
type PushConfig struct {
	// Enabled gates all push handling; disabled events are dropped on arrival.
	Enabled           bool             `mapstructure:"enabled"`
	DeliveryRetention time.Duration    `mapstructure:"delivery_retention" validate:"min=1h"`
	Texts             TextsConfig      `mapstructure:"texts"`
	Navigation        NavigationConfig `mapstructure:"navigation"`
}

// TextsConfig holds the user-facing notification strings.
type TextsConfig struct {
	MessageTitle   string `mapstructure:"message_title"   validate:"required"`
	MessageTicker  string `mapstructure:"message_ticker"  validate:"required"`
	FollowerTitle  string `mapstructure:"follower_title"  validate:"required"`
	FollowerTicker string `mapstructure:"follower_ticker" validate:"required"`
}

// NavigationConfig maps routing destinations to host screen identifiers.
type NavigationConfig struct {
	Login          string `mapstructure:"login"            validate:"required"`
	Main           string `mapstructure:"main"             validate:"required"`
	MainWithThread string `mapstructure:"main_with_thread" validate:"required"`
}

// NotifyConfig selects and configures notification presenters.
type NotifyConfig struct {
	Backends []string       `mapstructure:"backends" validate:"required,min=1,dive,oneof=log telegram fcm"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	FCM      FCMConfig      `mapstructure:"fcm"`
}

// TelegramConfig configures the Telegram presenter.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// FCMConfig configures the Firebase Cloud Messaging presenter.
type FCMConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"`
	DeviceToken     string `mapstructure:"device_token"`
}

// SchedulerConfig lists scheduled maintenance tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task and sets its cron schedule (seconds field included).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// HasBackend reports whether the named presenter backend is enabled.
func (c NotifyConfig) HasBackend(name string) bool {
	for _, b := range c.Backends {
		if b == name {
			return true
		}
	}
	return false
}
