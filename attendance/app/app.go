package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	attendance "axiapac.com/attendance/attendance/core"
	"axiapac.com/attendance/attendance/store"
	"axiapac.com/attendance/attendance/workbook"
	"axiapac.com/attendance/config"
	"axiapac.com/attendance/core"
	"axiapac.com/attendance/infrastructure/communication"
)

// App wires the stores, sinks and service for the server, the CLI and the
// Lambda.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	DB       *core.DatabaseManager
	Store    *store.Store
	Workbook *workbook.Workbook
	Slack    *communication.Slack
	Service  *attendance.Service

	// Events and Summaries point at the primary backend.
	Events    attendance.EventStore
	Summaries attendance.SummaryReader
}

func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	var events attendance.EventStore
	var sinks attendance.MultiSink

	if cfg.Database.Dialect != config.DialectWorkbook {
		dm, err := core.New(cfg.Database.Dialect, cfg.Database.DSN, cfg.Database.MaxConnections, core.ParseLogLevel(cfg.Database.LogLevel))
		if err != nil {
			return nil, err
		}
		a.DB = dm
		a.Store = store.New(dm)
		if err := a.Store.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
		events = a.Store
		a.Summaries = a.Store
		sinks = append(sinks, a.Store)
	}

	if cfg.Workbook.Path != "" {
		wb, err := workbook.Open(cfg.Workbook.Path)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Workbook = wb
		if events == nil {
			events = wb
			a.Summaries = wb
		} else {
			events = &attendance.MirroredEvents{EventStore: events, Mirrors: []attendance.EventAppender{wb}, Logger: logger}
		}
		sinks = append(sinks, wb)
	}

	if events == nil {
		a.Close()
		return nil, errors.New("no event store configured")
	}

	a.Events = events

	var notifier attendance.Notifier
	if cfg.Slack.BotToken != "" {
		a.Slack = communication.NewSlack(cfg.Slack.BotToken, communication.SlackOption{
			InfoChannelID:  cfg.Slack.InfoChannel,
			ErrorChannelID: cfg.Slack.ErrorChannel,
			Reaction:       cfg.Slack.Reaction,
			Logger:         logger,
		})
		notifier = a.Slack
	}

	var sink attendance.SummarySink = sinks
	if len(sinks) == 1 {
		sink = sinks[0]
	}

	a.Service = attendance.NewService(events, sink, attendance.NewDeduplicator(cfg.Ingest.DedupCapacity), attendance.ServiceOptions{
		Logger:           logger,
		Notifier:         notifier,
		RecomputeTimeout: cfg.Ingest.RecomputeTimeout,
	})

	logger.Info("attendance ready",
		"dialect", cfg.Database.Dialect,
		"workbook", cfg.Workbook.Path,
		"slack", a.Slack != nil)
	return a, nil
}

// Report posts message to the Slack info channel when Slack is configured.
func (a *App) Report(ctx context.Context, message string) {
	if a.Slack == nil {
		return
	}
	if err := a.Slack.Info(ctx, message); err != nil {
		a.Logger.Warn("failed to post report", "error", err)
	}
}

// Close waits for scheduled recomputes before releasing the stores.
func (a *App) Close() error {
	if a.Service != nil {
		a.Service.Wait()
	}
	var errs []error
	if a.Workbook != nil {
		if err := a.Workbook.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close workbook: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	return errors.Join(errs...)
}
