package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/edgard/pushrouter/internal/push"
)

// FCMSender is the part of the FCM messaging client the presenter uses.
type FCMSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMPresenter delivers notifications to a single device through FCM.
type FCMPresenter struct {
	sender FCMSender
	token  string
	logger *slog.Logger
}

// NewFCMClient connects to Firebase using a service account file.
func NewFCMClient(ctx context.Context, credentialsFile string) (*messaging.Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create fcm client: %w", err)
	}
	return client, nil
}

// NewFCMPresenter creates a presenter sending to the device token.
func NewFCMPresenter(sender FCMSender, token string, logger *slog.Logger) *FCMPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMPresenter{
		sender: sender,
		token:  token,
		logger: logger.With("component", "notify_fcm"),
	}
}

// Present implements push.Presenter.
func (p *FCMPresenter) Present(ctx context.Context, d push.RoutingDecision) error {
	id, err := p.sender.Send(ctx, fcmMessage(d, p.token))
	if err != nil {
		return fmt.Errorf("failed to send fcm notification: %w", err)
	}
	p.logger.DebugContext(ctx, "Notification sent", "fcm_message_id", id, "notification_id", d.Notification.ID)
	return nil
}

// fcmMessage builds the Android notification. The tag is the notification
// id, so a newer notification of the same kind replaces the shown one.
func fcmMessage(d push.RoutingDecision, token string) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Data:  decisionData(d),
		Notification: &messaging.Notification{
			Title: d.Notification.Title,
			Body:  d.Notification.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Tag:         strconv.Itoa(d.Notification.ID),
				Ticker:      d.Notification.Ticker,
				ClickAction: d.Target,
			},
		},
	}
}
