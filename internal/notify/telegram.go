package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/remind-engine/internal/models"
)

// TelegramNotifier delivers reminder notifications to a single chat.
// Delivery failures are the caller's to log; they never affect the
// scheduling state machine.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram API: %w", err)
	}
	return &TelegramNotifier{api: api, chatID: chatID}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, r *models.Reminder, message string) error {
	text := message
	if r.Tags != "" {
		text += "\n🏷 " + r.Tags
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send notification for reminder %d: %w", r.ID, err)
	}
	return nil
}
