package telegram

import (
	"context"
	"time"

	"github.com/m3rciful/hamoonbot/core/dialog"
	"github.com/m3rciful/hamoonbot/core/logger"

	"log/slog"

	tele "gopkg.in/telebot.v4"
)

// Route declares a single bot handler bound to an endpoint. Endpoint values
// are passed directly to tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// handlerTimeout bounds a single update's processing, including the backend
// call a transition may trigger.
const handlerTimeout = 90 * time.Second

// Routes binds every supported update kind to the dialogue router. Commands
// and plain text all flow through the same classification path.
func Routes(router *dialog.Router) []Route {
	handler := dialogHandler(router)
	return []Route{
		{Endpoint: "/start", Handler: handler},
		{Endpoint: "/help", Handler: handler},
		{Endpoint: "/cancel", Handler: handler},
		{Endpoint: "/logout", Handler: handler},
		{Endpoint: tele.OnText, Handler: handler},
	}
}

func dialogHandler(router *dialog.Router) tele.HandlerFunc {
	return func(c tele.Context) error {
		user := c.Sender()
		if user == nil {
			return nil
		}

		ctx, cancel := context.WithTimeout(handlerContext(c), handlerTimeout)
		defer cancel()

		start := time.Now()
		replies := router.HandleMessage(ctx, user.ID, c.Text())

		var sendErr error
		for _, reply := range replies {
			if err := sendReply(c, reply); err != nil && sendErr == nil {
				sendErr = err
			}
		}

		attrs := []slog.Attr{
			slog.String("status", logger.Status(sendErr)),
			slog.Int("replies", len(replies)),
			slog.Duration("duration", logger.RoundMS(time.Since(start))),
		}
		if sendErr != nil {
			attrs = append(attrs, slog.String("err", sendErr.Error()))
			logger.Warn(ctx, "tg", "update.handled", attrs...)
			return sendErr
		}
		logger.Debug(ctx, "tg", "update.handled", attrs...)
		return nil
	}
}

func sendReply(c tele.Context, reply dialog.Reply) error {
	if markup := markupFor(reply.Menu); markup != nil {
		return c.Send(reply.Text, markup)
	}
	return c.Send(reply.Text)
}

// handlerContext derives a request context from the telebot context,
// carrying the rid set by the logging middleware.
func handlerContext(c tele.Context) context.Context {
	ctx := context.Background()
	if rid, ok := c.Get("rid").(string); ok && rid != "" {
		ctx = logger.WithRID(ctx, rid)
	}
	if user := c.Sender(); user != nil {
		ctx = logger.WithUserID(ctx, user.ID)
	}
	return ctx
}

// BotCommands lists the commands advertised in the Telegram client menu.
func BotCommands() []tele.Command {
	return []tele.Command{
		{Text: "start", Description: "شروع مجدد گفتگو"},
		{Text: "help", Description: "راهنما"},
		{Text: "cancel", Description: "انصراف از عملیات جاری"},
		{Text: "logout", Description: "خروج از حساب"},
	}
}
