// Command hamoonbot runs the customer-support Telegram bot: it wires the
// Redis session store, the dialogue engine, the commerce gateway client and
// the submission journal, then serves Telegram updates until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/m3rciful/hamoonbot/core/buildinfo"
	"github.com/m3rciful/hamoonbot/core/config"
	"github.com/m3rciful/hamoonbot/core/dialog"
	"github.com/m3rciful/hamoonbot/core/gateway"
	"github.com/m3rciful/hamoonbot/core/journal"
	"github.com/m3rciful/hamoonbot/core/logger"
	"github.com/m3rciful/hamoonbot/core/notify"
	"github.com/m3rciful/hamoonbot/core/session"
	"github.com/m3rciful/hamoonbot/core/telegram"

	"log/slog"

	"github.com/redis/go-redis/v9"
	tele "gopkg.in/telebot.v4"
)

const defaultConfigPath = "config.yaml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "hamoonbot:", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("CONFIG_PATH")
	if strings.TrimSpace(path) == "" {
		path = defaultConfigPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Profile: cfg.Logging.Profile,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "main", "starting",
		slog.String("version", buildinfo.Version),
		slog.String("commit", buildinfo.Commit),
		slog.Bool("maintenance", cfg.Maintenance),
	)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	err = rdb.Ping(pingCtx).Err()
	cancel()
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	store := session.NewRedisStore(rdb, cfg.Redis.KeyPrefix)

	var recorder dialog.SubmissionRecorder
	if strings.TrimSpace(cfg.Journal.Host) != "" {
		if err := journal.RunMigrations(cfg.Journal); err != nil {
			return fmt.Errorf("journal migrations: %w", err)
		}
		db, err := journal.Connect(cfg.Journal)
		if err != nil {
			return fmt.Errorf("journal connect: %w", err)
		}
		defer db.Close()
		j := journal.New(db)
		recorder = j
		if n, err := j.CountSince(ctx, time.Now().Add(-24*time.Hour)); err == nil {
			logger.Info(ctx, "main", "journal.ready", slog.Int("submissions_24h", n))
		}
	} else {
		logger.Warn(ctx, "main", "journal.disabled")
	}

	gate := gateway.NewHTTPClient(gateway.Options{
		AuthToken:      cfg.Gateway.AuthToken,
		IdentityURL:    cfg.Gateway.IdentityURL,
		OrderNumberURL: cfg.Gateway.OrderNumberURL,
		OrderSerialURL: cfg.Gateway.OrderSerialURL,
		OrdersURL:      cfg.Gateway.OrdersURL,
		ComplaintURL:   cfg.Gateway.ComplaintURL,
		RepairURL:      cfg.Gateway.RepairURL,
		RatingURL:      cfg.Gateway.RatingURL,
		Timeout:        time.Duration(cfg.Gateway.TimeoutSeconds) * time.Second,
		Retries:        cfg.Gateway.Retries,
	})

	engine := dialog.NewEngine(store, dialog.NewPolicy(cfg.Dialog))

	routerOpts := dialog.RouterOptions{
		Engine:      engine,
		Gateway:     gate,
		Journal:     recorder,
		Maintenance: cfg.Maintenance,
	}

	// The admin notifier needs the bot instance, so the router and its
	// routes are bound once the bot exists.
	return telegram.Run(ctx, telegram.RunOptions{
		Config:      cfg,
		Middlewares: telegram.DefaultMiddlewares(cfg),
		OnStart: func(ctx context.Context, bot *tele.Bot) error {
			if cfg.Telegram.AdminChatID != 0 {
				routerOpts.Notifier = notify.NewTelegramNotifier(bot, cfg.Telegram.AdminChatID)
			}
			router := dialog.NewRouter(routerOpts)
			for _, route := range telegram.Routes(router) {
				bot.Handle(route.Endpoint, route.Handler)
			}
			return nil
		},
	})
}
