package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PUSHROUTER_SERVER_ADDR.
const EnvPrefix = "PUSHROUTER"

// LoadConfig builds the configuration from defaults, the YAML file at path
// (optional; a missing file is not an error) and environment variables, then
// validates it.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("%w: failed to read config file %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

// setDefaults registers every key so that environment overrides resolve
// even when no config file is present.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.body_limit", DefaultServerBodyLimit)
	v.SetDefault("server.rate_limit", DefaultServerRateLimit)
	v.SetDefault("server.shutdown_timeout", DefaultServerShutdownTimeout)

	v.SetDefault("push.enabled", DefaultPushEnabled)
	v.SetDefault("push.delivery_retention", DefaultPushDeliveryRetention)
	v.SetDefault("push.texts.message_title", DefaultMessageTitle)
	v.SetDefault("push.texts.message_ticker", DefaultMessageTicker)
	v.SetDefault("push.texts.follower_title", DefaultFollowerTitle)
	v.SetDefault("push.texts.follower_ticker", DefaultFollowerTicker)
	v.SetDefault("push.navigation.login", DefaultNavLogin)
	v.SetDefault("push.navigation.main", DefaultNavMain)
	v.SetDefault("push.navigation.main_with_thread", DefaultNavMainWithThread)

	v.SetDefault("notify.backends", DefaultNotifyBackends)
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)
	v.SetDefault("notify.fcm.credentials_file", "")
	v.SetDefault("notify.fcm.device_token", "")

	v.SetDefault("scheduler.tasks", DefaultTasks)
}
