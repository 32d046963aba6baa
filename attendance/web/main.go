package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"axiapac.com/attendance/attendance/app"
	"axiapac.com/attendance/attendance/web/handlers"
	"axiapac.com/attendance/config"
	"axiapac.com/attendance/infrastructure/logging"
	"axiapac.com/attendance/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.Init(cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	var apiSecret []byte
	if cfg.API.SigningSecret != "" {
		apiSecret, err = security.DecodeSecret(cfg.API.SigningSecret)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("ATTENDANCE_SIGNING_SECRET not set, admin API disabled")
	}
	if cfg.Slack.SigningSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET not set, Slack events disabled")
	}

	router := handlers.NewRouter(handlers.Options{
		Service:            a.Service,
		Events:             a.Events,
		Summaries:          a.Summaries,
		APISecret:          apiSecret,
		SlackSigningSecret: cfg.Slack.SigningSecret,
		Location:           cfg.Location(),
		AckTimeout:         cfg.Ingest.AckTimeout,
		Logger:             logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
