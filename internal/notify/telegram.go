package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/pushrouter/internal/logger"
	"github.com/edgard/pushrouter/internal/push"
)

// telegramMaxText is the Bot API limit on message text, in characters.
const telegramMaxText = 4096

// TelegramSender is the part of the Telegram client the presenter uses.
type TelegramSender interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
}

// TelegramPresenter forwards notifications to a Telegram chat.
type TelegramPresenter struct {
	sender TelegramSender
	chatID int64
	logger *slog.Logger
}

// NewTelegramBot creates a Telegram client that only sends.
func NewTelegramBot(token string) (*tgbot.Bot, error) {
	b, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram client: %w", err)
	}
	return b, nil
}

// NewTelegramPresenter creates a presenter sending to chatID.
func NewTelegramPresenter(sender TelegramSender, chatID int64, logger *slog.Logger) *TelegramPresenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramPresenter{
		sender: sender,
		chatID: chatID,
		logger: logger.With("component", "notify_telegram"),
	}
}

// Present implements push.Presenter.
func (p *TelegramPresenter) Present(ctx context.Context, d push.RoutingDecision) error {
	_, err := p.sender.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID: p.chatID,
		Text:   telegramText(d),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	p.logger.DebugContext(ctx, "Notification sent", "chat_id", p.chatID, "notification_id", d.Notification.ID)
	return nil
}

func telegramText(d push.RoutingDecision) string {
	var sb strings.Builder
	if d.Notification.Title != "" {
		sb.WriteString(d.Notification.Title)
		sb.WriteString("\n")
	}
	sb.WriteString(d.Notification.Body)
	sb.WriteString("\n\n-> ")
	sb.WriteString(d.Target)
	if d.Params != nil {
		fmt.Fprintf(&sb, " (thread %s)", d.Params.ThreadEntityID)
	}
	return logger.TruncateString(sb.String(), telegramMaxText)
}
