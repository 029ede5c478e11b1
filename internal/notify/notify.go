// Package notify presents routing decisions to the user through one or more
// backends: the structured log, a Telegram chat, or an FCM device.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"github.com/edgard/pushrouter/internal/logger"
	"github.com/edgard/pushrouter/internal/push"
)

// Multi fans a decision out to every presenter. All presenters are tried;
// their errors are joined.
type Multi []push.Presenter

// Present implements push.Presenter.
func (m Multi) Present(ctx context.Context, decision push.RoutingDecision) error {
	var errs []error
	for _, p := range m {
		if err := p.Present(ctx, decision); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// maxLoggedBody bounds the notification body written to the log.
const maxLoggedBody = 256

// LogPresenter writes decisions to the structured log.
type LogPresenter struct {
	logger *slog.Logger
}

// NewLogPresenter creates a LogPresenter.
func NewLogPresenter(logger *slog.Logger) *LogPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPresenter{logger: logger.With("component", "notify_log")}
}

// Present implements push.Presenter.
func (p *LogPresenter) Present(ctx context.Context, d push.RoutingDecision) error {
	attrs := []any{
		"kind", d.Kind.String(),
		"notification_id", d.Notification.ID,
		"title", d.Notification.Title,
		"body", logger.TruncateString(d.Notification.Body, maxLoggedBody),
		"destination", d.Destination,
		"target", d.Target,
	}
	if d.Params != nil {
		attrs = append(attrs, "thread_id", d.Params.ThreadID, "msg_timestamp", d.Params.Timestamp)
	}
	p.logger.InfoContext(ctx, "Notification", attrs...)
	return nil
}

// decisionData flattens a decision into string key/values for backends that
// carry navigation data alongside the alert.
func decisionData(d push.RoutingDecision) map[string]string {
	data := map[string]string{
		"kind":        d.Kind.String(),
		"destination": string(d.Destination),
		"target":      d.Target,
	}
	if d.Params != nil {
		data["thread_id"] = strconv.FormatInt(d.Params.ThreadID, 10)
		data["thread_entity_id"] = d.Params.ThreadEntityID
		data["from_push"] = strconv.FormatBool(d.Params.FromPush)
		data["msg_timestamp"] = strconv.FormatInt(d.Params.Timestamp, 10)
	}
	return data
}
