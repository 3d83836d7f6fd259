package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/target/batchwatch/config"
	"github.com/target/batchwatch/internal/adapters/preferences"
	"github.com/target/batchwatch/internal/domain/model"
	"github.com/target/batchwatch/internal/observability/notify/pagerduty"
	"github.com/target/batchwatch/internal/observability/notify/sendgrid"
	"github.com/target/batchwatch/internal/observability/notify/slack"
	"github.com/target/batchwatch/internal/observability/statsd"
	"github.com/target/batchwatch/internal/service"
	"github.com/target/batchwatch/internal/service/failurenotifier"
)

// ServiceContainer holds the wired watchdog and its collaborators.
type ServiceContainer struct {
	Source   *preferences.Client
	Notifier *failurenotifier.Service
	Watchdog *service.WatchdogService
	Metrics  *statsd.Client
}

// Close releases resources held by the container.
func (c ServiceContainer) Close() error {
	return c.Metrics.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
}

// NewServices builds the preferences client, the email and mirror sinks and
// the watchdog service from a validated config.
func NewServices(ctx context.Context, deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service config is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	source, err := buildPreferencesClient(cfg.Source)
	if err != nil {
		return ServiceContainer{}, err
	}

	email, err := buildEmailSink(cfg.Mail)
	if err != nil {
		return ServiceContainer{}, err
	}

	metricsSink := buildMetrics(ctx, logger, cfg.Observability.Metrics)

	notifier := failurenotifier.NewService(failurenotifier.Options{
		Logger:  logger,
		Primary: failurenotifier.SinkRegistration{Name: "email", Sink: email},
		Mirrors: buildMirrors(logger, cfg.Observability.Notifications),
		Metrics: metricsSink,
	})

	watchdog, err := service.NewWatchdogService(service.WatchdogServiceOptions{
		Source:   source,
		Notifier: notifier,
		Logger:   logger,
		Metrics:  metricsSink,
		Subject:  cfg.Mail.Subject,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create watchdog service: %w", err)
	}

	return ServiceContainer{
		Source:   source,
		Notifier: notifier,
		Watchdog: watchdog,
		Metrics:  metricsSink,
	}, nil
}

func buildPreferencesClient(cfg config.SourceConfig) (*preferences.Client, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client, err := preferences.NewClient(preferences.Config{
		BaseURL:      cfg.BaseURL,
		Username:     cfg.Username,
		Password:     cfg.Password,
		RecordsPath:  cfg.RecordsPath,
		Timeout:      cfg.Timeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Decode: model.DecodeOptions{
			Location:     loc,
			IntervalUnit: cfg.IntervalUnit,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create preferences client: %w", err)
	}
	return client, nil
}

func buildEmailSink(cfg config.MailConfig) (*sendgrid.Client, error) {
	from, err := cfg.Sender()
	if err != nil {
		return nil, err
	}
	to, err := cfg.Recipients()
	if err != nil {
		return nil, err
	}
	cc, err := cfg.CopyRecipients()
	if err != nil {
		return nil, err
	}
	client, err := sendgrid.NewClient(sendgrid.Config{
		APIKey:  cfg.APIKey,
		Host:    cfg.Host,
		From:    from,
		To:      to,
		CC:      cc,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create sendgrid client: %w", err)
	}
	return client, nil
}

// buildMetrics returns a disabled client when metrics are off or the
// endpoint cannot be dialled; metrics never block startup.
func buildMetrics(ctx context.Context, logger *slog.Logger, cfg config.ObservabilityMetricsConfig) *statsd.Client {
	client, err := statsd.NewClient(ctx, statsd.Config{
		Enabled:    cfg.IsEnabled(),
		Address:    cfg.StatsdAddress,
		Prefix:     cfg.Prefix,
		Logger:     logger,
		GlobalTags: cfg.GlobalTags(),
	})
	if err != nil {
		logger.Error("failed to initialise statsd client", "error", err)
		return nil
	}
	return client
}

func buildMirrors(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) []failurenotifier.SinkRegistration {
	if !cfg.Enabled {
		return nil
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL: cfg.Slack.WebhookURL,
			Channel:    cfg.Slack.Channel,
			Username:   cfg.Slack.Username,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "slack", Sink: client})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			logger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{Name: "pagerduty", Sink: client})
		}
	}

	return sinks
}
