package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Validate checks field rules and the presenter-specific requirements that
// struct tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Notify.HasBackend("telegram") {
		if c.Notify.Telegram.Token == "" {
			return errors.New("notify.telegram.token is required when the telegram backend is enabled")
		}
		if c.Notify.Telegram.ChatID == 0 {
			return errors.New("notify.telegram.chat_id is required when the telegram backend is enabled")
		}
	}
	if c.Notify.HasBackend("fcm") {
		if c.Notify.FCM.CredentialsFile == "" {
			return errors.New("notify.fcm.credentials_file is required when the fcm backend is enabled")
		}
		if c.Notify.FCM.DeviceToken == "" {
			return errors.New("notify.fcm.device_token is required when the fcm backend is enabled")
		}
	}

	for name, task := range c.Scheduler.Tasks {
		if task.Enabled && task.Schedule == "" {
			return fmt.Errorf("scheduler.tasks.%s: schedule is required for an enabled task", name)
		}
	}

	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
