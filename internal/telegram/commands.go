package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/rewired-gh/smartbin/internal/aggregator"
	"github.com/rewired-gh/smartbin/internal/logger"
	"github.com/rewired-gh/smartbin/internal/models"
)

// Controller is the set of bin operations exposed as bot commands.
// *engine.Engine implements it.
type Controller interface {
	Snapshot() models.BinState
	EmptyBin(ctx context.Context) models.BinState
	Reset() models.BinState
	SetTargetCategory(c models.Category) (models.BinState, error)
	ClearEvents() models.BinState
	RemoveEvent(i int) (models.BinState, error)
}

const helpText = "Available commands:\n" +
	"/status\n" +
	"/empty\n" +
	"/reset\n" +
	"/target <recyclable|organic|general>\n" +
	"/clear\n" +
	"/remove <index>"

// ListenForCommands long-polls for bot commands from the configured chat and
// applies them to ctrl until ctx is cancelled. Messages from other chats are
// ignored.
func (c *Client) ListenForCommands(ctx context.Context, ctrl Controller) error {
	if c.api == nil {
		return errors.New("telegram: command listener needs a bot connection")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := c.api.GetUpdatesChan(u)
	logger.Info("Listening for Telegram commands in chat %d", c.chatID)

	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}
			if msg.Chat == nil || msg.Chat.ID != c.chatID {
				logger.Debug("Ignoring command /%s from chat outside the configured one", msg.Command())
				continue
			}

			reply := dispatch(ctx, ctrl, msg.Command(), msg.CommandArguments())
			if err := c.send(ctx, msg.Chat.ID, reply); err != nil {
				logger.Warn("Failed to reply to /%s: %v", msg.Command(), err)
			}
		}
	}
}

// dispatch runs one command and returns the MarkdownV2 reply.
func dispatch(ctx context.Context, ctrl Controller, command, args string) string {
	args = strings.TrimSpace(args)
	logger.Info("Telegram command /%s %s", command, args)

	switch command {
	case "status", "start":
		return formatStatus(ctrl.Snapshot())

	case "empty":
		bin := ctrl.EmptyBin(ctx)
		return escapeMarkdownV2(fmt.Sprintf("🗑 %s emptied.", binLabel(bin)))

	case "reset":
		return "♻️ Bin reset to defaults\\.\n\n" + formatStatus(ctrl.Reset())

	case "target":
		cat, err := models.ParseCategory(args)
		if err != nil {
			return escapeMarkdownV2("Usage: /target <recyclable|organic|general>")
		}
		bin, err := ctrl.SetTargetCategory(cat)
		if err != nil {
			return escapeMarkdownV2(err.Error())
		}
		return escapeMarkdownV2(fmt.Sprintf("🎯 Target category is now %s. %d events relabelled.", bin.TargetCategory, countDetections(bin.Events)))

	case "clear":
		ctrl.ClearEvents()
		return escapeMarkdownV2("Event log cleared.")

	case "remove":
		i, err := strconv.Atoi(args)
		if err != nil {
			return escapeMarkdownV2("Usage: /remove <index> (0 is the newest event)")
		}
		bin, err := ctrl.RemoveEvent(i)
		if err != nil {
			return escapeMarkdownV2(err.Error())
		}
		return escapeMarkdownV2(fmt.Sprintf("Event %d removed, %d left.", i, len(bin.Events)))

	default:
		return escapeMarkdownV2(helpText)
	}
}

func formatStatus(bin models.BinState) string {
	cont := aggregator.ContaminationOf(bin.Categories, bin.TargetCategory)

	var b strings.Builder
	fmt.Fprintf(&b, "🗑 *%s*\n", escapeMarkdownV2(binLabel(bin)))
	if bin.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", escapeMarkdownV2(bin.Location))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Fill: *%s* \\(%s\\)\n",
		escapeMarkdownV2(models.FormatPercent(bin.FillLevel)+"%"), escapeMarkdownV2(string(bin.Status)))
	fmt.Fprintf(&b, "Weight: %s\n", escapeMarkdownV2(fmt.Sprintf("%.1f kg", bin.Weight)))
	fmt.Fprintf(&b, "Target: %s\n", escapeMarkdownV2(string(bin.TargetCategory)))
	fmt.Fprintf(&b, "Items: %d recyclable, %d organic, %d general\n",
		bin.Categories.Recyclable, bin.Categories.Organic, bin.Categories.General)
	fmt.Fprintf(&b, "Contamination: %d%% \\(%d of %d\\)\n", cont.Percent, cont.Wrong, bin.Categories.Total())
	fmt.Fprintf(&b, "Last emptied: %s", escapeMarkdownV2(humanize.Time(bin.LastEmptiedAt)))
	return b.String()
}

func countDetections(events []models.Event) int {
	n := 0
	for _, ev := range events {
		if ev.IsDetection() {
			n++
		}
	}
	return n
}
