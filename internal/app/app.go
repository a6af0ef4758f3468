// Package app wires the dispatcher, the waiter and their housekeeping for
// the bot binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/keshon/botcore/internal/command"
	"github.com/keshon/botcore/internal/commands"
	"github.com/keshon/botcore/internal/config"
	"github.com/keshon/botcore/internal/cooldown"
	"github.com/keshon/botcore/internal/observe"
	"github.com/keshon/botcore/internal/settings"
	"github.com/keshon/botcore/internal/waiter"
	"github.com/keshon/botcore/pkg/jobmgr"
)

const (
	sweepJob = "cooldown-sweep"
	watchJob = "settings-watch"
)

// Options are the host specific parts of the wiring.
type Options struct {
	Latency       func() time.Duration
	Restart       func()
	MeterProvider metric.MeterProvider
}

// App owns the long-lived services shared by every host.
type App struct {
	Store      *settings.Store
	File       *settings.File
	Settings   settings.Lookup
	Tracker    *cooldown.Tracker
	Waiter     *waiter.Waiter
	Jobs       *jobmgr.Manager
	Dispatcher *command.Dispatcher
}

// New opens the settings store, builds the command tree and starts the
// housekeeping jobs. Jobs stop when ctx is done or Close is called.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}

	store, err := settings.Open(ctx, cfg.StoragePath)
	if err != nil {
		return nil, err
	}
	a := &App{Store: store}

	lookup := settings.Chain{store}
	if cfg.SettingsFile != "" {
		file, err := settings.LoadFile(cfg.SettingsFile, logger)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.File = file
		lookup = append(lookup, file)
	}

	a.Settings = lookup
	a.Tracker = cooldown.NewTracker(cooldown.WithLogger(logger))
	a.Waiter = waiter.New(cfg.WaiterWorkers, logger)
	a.Jobs = jobmgr.NewManager(ctx, logger)

	metrics, err := observe.NewMetrics(opts.MeterProvider)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	tree, err := command.NewTree(commands.All(commands.Deps{
		Store:   store,
		Jobs:    a.Jobs,
		Latency: opts.Latency,
		Restart: opts.Restart,
		Started: time.Now(),
	})...)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("build command tree: %w", err)
	}

	a.Dispatcher = command.NewDispatcher(tree, a.Tracker, command.Options{
		Prefix:   cfg.Prefix,
		Settings: lookup,
		Waiter:   a.Waiter,
		Observer: command.Observers{
			observe.NewLog(logger),
			observe.NewHistory(store, logger),
			metrics,
		},
		Logger: logger,
	})

	if err := a.Jobs.Start(sweepJob, func(ctx context.Context) error {
		return a.Tracker.RunSweeper(ctx, cfg.SweepInterval)
	}); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.File != nil {
		if err := a.Jobs.Start(watchJob, a.File.Watch); err != nil {
			_ = a.Close()
			return nil, err
		}
	}

	logger.Info("Commands ready",
		zap.Int("commands", len(tree.Commands())),
		zap.String("prefix", cfg.Prefix),
	)
	return a, nil
}

// Close stops the jobs, abandons pending waits and saves the store.
func (a *App) Close() error {
	if a.Jobs != nil {
		a.Jobs.StopAll()
	}
	var errs []error
	if a.Waiter != nil {
		errs = append(errs, a.Waiter.Close())
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close settings store: %w", err))
	}
	return errors.Join(errs...)
}
