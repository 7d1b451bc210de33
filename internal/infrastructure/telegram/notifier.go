package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ThreadHarvester/internal/ports"
)

// botAPI is the subset of tgbotapi.BotAPI used for sending.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends run digests to a Telegram chat via bot API.
type Notifier struct {
	api    botAPI
	chatID int64
}

var _ ports.Notifier = (*Notifier)(nil)

// Connect authenticates the bot token and returns a notifier for chatID.
func Connect(botToken string, chatID int64) (*Notifier, error) {
	if botToken == "" || chatID == 0 {
		return nil, fmt.Errorf("telegram notifier misconfigured")
	}

	api, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, &http.Client{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return NewNotifier(api, chatID), nil
}

// NewNotifier wraps an authenticated bot.
func NewNotifier(api botAPI, chatID int64) *Notifier {
	return &Notifier{api: api, chatID: chatID}
}

// PublishDigest posts a plain-text message to the chat.
func (n *Notifier) PublishDigest(ctx context.Context, digest string) error {
	if n.api == nil || n.chatID == 0 {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(n.chatID, digest)
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}
