// Package telegram provides a client for sending bin notifications via the
// Telegram Bot API. It formats threshold alerts and polling pause/resume
// notices into MarkdownV2 messages and delivers them from a background worker
// with retry logic, so the engine never waits on the network.
//
// The client also accepts bot commands that operate the bin (see commands.go).
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/smartbin/internal/engine"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

const queueSize = 32

// Sender is the subset of *tgbotapi.BotAPI used for delivery.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            Sender
	api            *tgbotapi.BotAPI // nil in tests; needed only for updates
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	queue          chan string
}

var (
	_ engine.Publisher      = (*Client)(nil)
	_ engine.HealthListener = (*Client)(nil)
)

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	c, err := newClient(bot, chatID, maxRetries, retryDelayBase)
	if err != nil {
		return nil, err
	}
	c.api = bot
	return c, nil
}

func newClient(bot Sender, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		queue:          make(chan string, queueSize),
	}, nil
}

// Publish queues an alert message for every threshold event in fresh.
func (c *Client) Publish(snapshot models.BinState, fresh []models.Event) {
	for _, ev := range fresh {
		if ev.Kind == models.EventAlert {
			c.enqueue(formatAlert(snapshot, ev))
		}
	}
}

// PollingPaused queues a notice that the backend is unhealthy.
func (c *Client) PollingPaused(cause error) {
	c.enqueue(formatPaused(cause, time.Now()))
}

// PollingResumed queues a notice that polling has recovered.
func (c *Client) PollingResumed(failures int) {
	c.enqueue(formatResumed(failures))
}

// enqueue never blocks; a full queue drops the message.
func (c *Client) enqueue(text string) {
	select {
	case c.queue <- text:
	default:
		logger.Warn("Telegram queue full, dropping notification")
	}
}

// Run delivers queued messages until ctx is cancelled.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-c.queue:
			if err := c.send(ctx, c.chatID, text); err != nil {
				logger.Error("Failed to send Telegram notification: %v", err)
			}
		}
	}
}

// send sends a MarkdownV2 message with retry
func (c *Client) send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		t := time.NewTimer(c.retryDelayBase * time.Duration(i+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("send cancelled: %w", lastErr)
		case <-t.C:
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

func formatAlert(bin models.BinState, ev models.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🚨 *%s needs emptying*\n\n", escapeMarkdownV2(binLabel(bin)))
	fmt.Fprintf(&b, "%s\n", escapeMarkdownV2(ev.Message))
	if bin.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", escapeMarkdownV2(bin.Location))
	}
	fmt.Fprintf(&b, "Status: *%s*\n", escapeMarkdownV2(string(bin.Status)))
	fmt.Fprintf(&b, "📅 %s", escapeMarkdownV2(ev.Timestamp))
	return b.String()
}

func formatPaused(cause error, at time.Time) string {
	return fmt.Sprintf("⚠️ *Polling paused*\n\n📅 %s\n`%s`",
		escapeMarkdownV2(at.Format("2006-01-02 15:04:05")),
		escapeCode(cause.Error()))
}

func formatResumed(failures int) string {
	return fmt.Sprintf("✅ *Polling resumed* after %d failed health %s",
		failures, pluralize(failures, "check", "checks"))
}

func binLabel(bin models.BinState) string {
	if bin.Name != "" {
		return fmt.Sprintf("%s (%s)", bin.Name, bin.ID)
	}
	return bin.ID
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// escapeCode escapes text for a MarkdownV2 code span.
func escapeCode(text string) string {
	r := strings.NewReplacer("\\", "\\\\", "`", "\\`")
	return r.Replace(text)
}
