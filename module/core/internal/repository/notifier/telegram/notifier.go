// Package telegram sends fire events to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dramaspikes/gpsAlarmApp/module/core/domain"
	"github.com/dramaspikes/gpsAlarmApp/module/core/internal/repository/publisher"
)

var _ publisher.FirePublisher = (*Notifier)(nil)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Notifier struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewNotifier creates a notifier posting to chatID. The chat id is checked
// before the bot token so a bad config fails without a network call.
func NewNotifier(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Notifier, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}

	return newNotifier(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newNotifier(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Notifier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Notifier{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

func (n *Notifier) PublishFire(ctx context.Context, event *domain.FireEvent) error {
	return n.sendMarkdownV2(ctx, formatFire(event))
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (n *Notifier) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := range n.maxRetries {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if i == n.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram send: %w", ctx.Err())
		case <-time.After(n.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("telegram send failed after %d attempts: %w", n.maxRetries, lastErr)
}

func formatFire(event *domain.FireEvent) string {
	coords := fmt.Sprintf("%.5f, %.5f", event.Coordinate.Lat, event.Coordinate.Lon)
	return fmt.Sprintf("⏰ *Alarm reached*\n%s\n📍 %s\n🕒 %s",
		escapeMarkdownV2(event.AlarmName),
		escapeMarkdownV2(coords),
		escapeMarkdownV2(event.Timestamp.UTC().Format("2006-01-02 15:04:05")),
	)
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
