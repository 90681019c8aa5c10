package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ucrelay/pkg/config"
	"ucrelay/pkg/transport"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

const transportName = "telegram"
const messagePreviewLimit = 240

// Adapter bridges one Telegram chat into the relay's transport seam.
// Only messages from the configured chat (and, when set, the configured
// counterpart username) are forwarded to the reply handler.
type Adapter struct {
	cfg config.TelegramConfig
	bot *telego.Bot
	log *slog.Logger
}

// NewAdapter validates Telegram configuration and constructs an adapter
// with a live bot client, so Send works before and during Run.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("channels.telegram.token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("channels.telegram.chat_id is required")
	}

	if log == nil {
		log = slog.Default()
	}

	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	return &Adapter{
		cfg: cfg,
		bot: bot,
		log: log.With("component", "transport.telegram"),
	}, nil
}

// Name returns the transport identifier used in logs and diagnostics.
func (a *Adapter) Name() string {
	return transportName
}

// Send delivers text to the configured chat and returns the message ID
// assigned by Telegram, used downstream as the send sequence marker.
func (a *Adapter) Send(ctx context.Context, text string) (int64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, errors.New("message text is required")
	}

	a.log.Info("Sending message", "chat_id", a.cfg.ChatID, "content", previewText(trimmed))

	message, err := a.bot.SendMessage(ctx, tu.Message(tu.ID(a.cfg.ChatID), trimmed))
	if err != nil {
		return 0, fmt.Errorf("send telegram message: %w", err)
	}

	return int64(message.MessageID), nil
}

// Run starts Telegram long polling and forwards counterpart replies
// through the transport handler.
func (a *Adapter) Run(ctx context.Context, handler transport.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	updates, err := a.bot.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	a.log.Info("Telegram transport started", "chat_id", a.cfg.ChatID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if err := ctx.Err(); err != nil {
					return nil
				}
				return errors.New("telegram updates channel closed")
			}

			message := update.Message
			if message == nil {
				continue
			}
			if message.Chat.ID != a.cfg.ChatID {
				continue
			}

			content := strings.TrimSpace(message.Text)
			if content == "" {
				// Non-text updates carry nothing the extractor can use.
				continue
			}

			sender := senderUsername(message)
			if !a.senderAllowed(sender) {
				a.log.Debug("Ignoring message from non-counterpart sender", "sender", sender)
				continue
			}

			a.log.Info("Received reply", "message_id", message.MessageID, "sender", sender, "content", previewText(content))

			handler(ctx, int64(message.MessageID), time.Unix(message.Date, 0), content)
		}
	}
}

// senderAllowed checks whether a sender matches the configured counterpart.
//
// When no counterpart is configured, all senders in the chat are accepted.
func (a *Adapter) senderAllowed(sender string) bool {
	counterpart := strings.TrimSpace(a.cfg.Counterpart)
	if counterpart == "" {
		return true
	}

	return strings.EqualFold(strings.TrimPrefix(sender, "@"), strings.TrimPrefix(counterpart, "@"))
}

// senderUsername extracts the sender username from a message, if any.
func senderUsername(message *telego.Message) string {
	if message == nil || message.From == nil {
		return ""
	}

	return strings.TrimSpace(message.From.Username)
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	return trimmed[:messagePreviewLimit] + "..."
}
