package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/edgard/pushrouter/internal/config"
	"github.com/edgard/pushrouter/internal/push"
)

// New builds the presenter for the configured backends. A single backend is
// returned as is; several are wrapped in Multi.
func New(ctx context.Context, cfg config.NotifyConfig, logger *slog.Logger) (push.Presenter, error) {
	presenters := make(Multi, 0, len(cfg.Backends))

	for _, name := range cfg.Backends {
		switch name {
		case "log":
			presenters = append(presenters, NewLogPresenter(logger))
		case "telegram":
			b, err := NewTelegramBot(cfg.Telegram.Token)
			if err != nil {
				return nil, err
			}
			presenters = append(presenters, NewTelegramPresenter(b, cfg.Telegram.ChatID, logger))
		case "fcm":
			client, err := NewFCMClient(ctx, cfg.FCM.CredentialsFile)
			if err != nil {
				return nil, err
			}
			presenters = append(presenters, NewFCMPresenter(client, cfg.FCM.DeviceToken, logger))
		default:
			return nil, fmt.Errorf("unknown notify backend %q", name)
		}
	}

	if len(presenters) == 1 {
		return presenters[0], nil
	}
	return presenters, nil
}
