package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/batchwatch/config"
	"github.com/target/batchwatch/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if err = bootstrap.SetLogLevel(cfg.LogLevel); err != nil {
		return err
	}

	logStartupInfo(ctx, logger, &cfg)

	services, err := bootstrap.NewServices(ctx, &bootstrap.ServiceDeps{
		Config: &cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := services.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics client failed", "error", cerr)
		}
	}()

	return bootstrap.RunWithShutdown(ctx, bootstrap.RunConfig{
		Watchdog: services.Watchdog,
		Config:   cfg.Watchdog,
		Logger:   logger,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting batchwatch",
		"mode", string(cfg.Watchdog.Mode),
		"schedule", cfg.Watchdog.Schedule,
		"source", cfg.Source.BaseURL,
		"interval_unit", string(cfg.Source.IntervalUnit),
		"metrics_enabled", cfg.Observability.Metrics.IsEnabled(),
		"slack_mirror", cfg.Observability.Notifications.Slack.Enabled,
		"pagerduty_mirror", cfg.Observability.Notifications.PagerDuty.Enabled,
	)
}
