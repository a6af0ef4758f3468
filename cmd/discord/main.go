// cmd/discord/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/app"
	"github.com/keshon/botcore/internal/config"
	"github.com/keshon/botcore/internal/discord"
	"github.com/keshon/botcore/internal/logging"
	"github.com/keshon/botcore/internal/welcome"
)

// restartExitCode asks the process supervisor to start the bot again.
const restartExitCode = 3

func main() {
	restart, err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if restart {
		os.Exit(restartExitCode)
	}
}

func run() (bool, error) {
	loaded, envErr := config.LoadDotEnv()
	cfg, err := config.New()
	if err != nil {
		return false, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return false, err
	}
	defer logger.Sync()

	switch {
	case envErr != nil:
		logger.Warn("Failed to load .env", zap.Error(envErr))
	case !loaded:
		logger.Info("No .env file found, using the environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("Starting Discord bot...")

	var (
		bot        *discord.Bot
		restarting atomic.Bool
	)
	a, err := app.New(ctx, cfg, logger, app.Options{
		Latency: func() time.Duration { return bot.Latency() },
		Restart: func() {
			restarting.Store(true)
			cancel()
		},
	})
	if err != nil {
		return false, err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("Failed to shut down cleanly", zap.Error(err))
		}
	}()

	bot, err = discord.New(discord.Options{
		Config:     cfg,
		Dispatcher: a.Dispatcher,
		Waiter:     a.Waiter,
		Welcome: func(send welcome.SendFunc) *welcome.Welcomer {
			return welcome.New(a.Tracker, a.Settings, send, logger)
		},
		Logger: logger,
	})
	if err != nil {
		return false, err
	}

	if err := bot.Run(ctx); err != nil {
		return false, fmt.Errorf("discord bot: %w", err)
	}
	logger.Info("Discord bot exited cleanly", zap.Bool("restart", restarting.Load()))
	return restarting.Load(), nil
}
