package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Min interval between two messages to the same chat (~30/min limit).
const telegramSendInterval = 2 * time.Second

// TelegramSender delivers notifications through a Telegram bot.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu       sync.Mutex
	lastSend time.Time
}

func NewTelegramSender(token string, chatID int64) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: create bot: %w", err)
	}
	bot.Debug = false

	slog.Info("Telegram sender initialized", "bot", bot.Self.UserName, "chat_id", chatID)
	return &TelegramSender{bot: bot, chatID: chatID}, nil
}

func (t *TelegramSender) Name() string { return "telegram" }

func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if wait := telegramSendInterval - time.Since(t.lastSend); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("%s\n%s", title, message))
	_, err := t.bot.Send(msg)
	t.lastSend = time.Now()
	if err != nil {
		return fmt.Errorf("telegram: send: %w", err)
	}
	return nil
}
