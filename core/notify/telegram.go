package notify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/m3rciful/hamoonbot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Sender is the part of the bot API the notifier needs.
type Sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier posts notifications to a fixed admin chat through the bot
// itself, mirroring how operators already monitor it.
type TelegramNotifier struct {
	bot         Sender
	adminChatID int64
}

// NewTelegramNotifier wires a notifier to the admin chat. A zero chat id
// yields a notifier that only logs.
func NewTelegramNotifier(bot Sender, adminChatID int64) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, adminChatID: adminChatID}
}

// NotifyAdmin formats and sends the notification in a goroutine so the caller
// never waits on Telegram delivery.
func (t *TelegramNotifier) NotifyAdmin(ctx context.Context, severity Severity, summary string, fields map[string]string) {
	logger.Warn(ctx, "notify", "admin.notify",
		slog.String("severity", string(severity)),
		slog.String("summary", summary),
	)
	if t.bot == nil || t.adminChatID == 0 {
		return
	}

	text := format(severity, summary, fields)
	go func() {
		_, err := t.bot.Send(tele.ChatID(t.adminChatID), text)
		if err != nil {
			logger.Error(ctx, "notify", "admin.notify",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

func format(severity Severity, summary string, fields map[string]string) string {
	icon := "⚠️"
	if severity == SeverityCritical {
		icon = "🚨"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n%s", icon, strings.ToUpper(string(severity)), summary)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n%s: %s", k, logger.SanitizeLimit(fields[k], 256))
	}
	return b.String()
}
