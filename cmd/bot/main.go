// Package main contains the entrypoint for the group admin bot.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/jessevdk/go-flags"

	"github.com/edgard/hivebot/internal/bot"
	"github.com/edgard/hivebot/internal/bot/handlers"
	"github.com/edgard/hivebot/internal/bot/tasks"
	"github.com/edgard/hivebot/internal/config"
	"github.com/edgard/hivebot/internal/conversation"
	"github.com/edgard/hivebot/internal/database"
	"github.com/edgard/hivebot/internal/logger"
	"github.com/edgard/hivebot/internal/mutex"
	"github.com/edgard/hivebot/internal/session"
	"github.com/edgard/hivebot/internal/telegram"

	_ "modernc.org/sqlite"
)

var opts struct {
	Config string `long:"config" env:"BOT_CONFIG" default:"./config.yaml" description:"path to the configuration file"`
}

// Revision is set at build time.
var Revision = "dev"

func main() {
	if _, err := flags.Parse(&opts); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := run(ctx)
	stop()
	os.Exit(exitCode)
}

// run wires config, storage, the Telegram client and the scheduler, blocks
// until shutdown and returns the process exit code.
func run(ctx context.Context) int {
	cfg, err := config.LoadConfig(opts.Config)
	if err != nil {
		slog.Error("Failed to load configuration", "path", opts.Config, "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.Logger.Level, cfg.Logger.JSON)
	log.Info("Starting bot", "revision", Revision, "level", cfg.Logger.Level, "timezone", cfg.Scheduler.Location().String())

	db, err := database.NewDB(cfg.Database.Path, log)
	if err != nil {
		log.Error("Failed to connect to database", "path", cfg.Database.Path, "error", err)
		return 1
	}
	defer database.CloseDB(db, log)
	store := database.NewStore(db, log)

	var states conversation.StateStore = store
	if cfg.Session.Backend == "redis" {
		rs, err := session.NewRedisStore(ctx, session.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
			Prefix:   cfg.Session.RedisPrefix,
			TTL:      cfg.Session.TTL,
		})
		if err != nil {
			log.Error("Failed to connect to session store", "addr", cfg.Session.RedisAddr, "error", err)
			return 1
		}
		defer func() {
			if err := rs.Close(); err != nil {
				log.Error("Failed to close session store", "error", err)
			}
		}()
		states = rs
	}
	log.Info("Conversation state backend ready", "backend", cfg.Session.Backend)

	hDeps := handlers.HandlerDeps{
		Logger:  log,
		Config:  cfg,
		Store:   store,
		Machine: conversation.NewMachine(store, states, cfg.Messages.Texts(), log),
		Locks:   &mutex.KeyedMutex{},
	}

	botOpts := []tgbot.Option{
		tgbot.WithMiddlewares(logger.Middleware(log)),
		tgbot.WithDefaultHandler(handlers.NewConversationHandler(hDeps)),
	}
	tg, err := telegram.NewTelegramBot(cfg.Telegram.Token, log, botOpts...)
	if err != nil {
		log.Error("Failed to create Telegram bot", "error", err)
		return 1
	}

	cfg.Telegram.BotInfo, err = tg.GetMe(ctx)
	if err != nil {
		log.Error("Failed to get bot info", "error", err)
		return 1
	}
	log.Info("Retrieved bot info", "bot_id", cfg.Telegram.BotInfo.ID, "bot_username", cfg.Telegram.BotInfo.Username)

	if err := telegram.RegisterHandlers(tg, log, handlers.RegisterAllCommands(hDeps)); err != nil {
		log.Error("Failed to register Telegram handlers", "error", err)
		return 1
	}

	tDeps := tasks.TaskDeps{
		Logger: log,
		Store:  store,
		Sender: telegram.NewSender(tg, cfg.Push.ParseMode),
		Config: cfg,
	}
	sched, err := bot.NewScheduler(log, &cfg.Scheduler, tasks.RegisterAllTasks(tDeps))
	if err != nil {
		log.Error("Failed to create scheduler", "error", err)
		return 1
	}

	runErr := bot.NewBot(log, store, tg, sched).Run(ctx)
	log.Info("Bot run loop finished, shutting down")

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("Bot stopped due to error", "error", runErr)
		time.Sleep(time.Second)
		return 1
	}

	log.Info("Bot stopped gracefully")
	time.Sleep(time.Second)
	return 0
}
