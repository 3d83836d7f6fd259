package config

import (
	"log/slog"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/batchwatch/internal/domain/model"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SOURCE_BASE_URL", "https://erp.example.com/rest/batchjobs/v1")
	t.Setenv("SENDGRID_API_KEY", "SG.test")
	t.Setenv("MAIL_FROM", "watcher@example.com")
	t.Setenv("MAIL_TO", "ops@example.com")
}

func parse(t *testing.T) AppConfig {
	t.Helper()
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()
	return cfg
}

func TestAppConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 100*time.Second, cfg.Source.Timeout)
	assert.Equal(t, int64(10<<20), cfg.Source.MaxBodyBytes)
	assert.Equal(t, "UTC", cfg.Source.Timezone)
	assert.Equal(t, model.IntervalUnitMinutes, cfg.Source.IntervalUnit)
	assert.Equal(t, "https://api.sendgrid.com", cfg.Mail.Host)
	assert.Equal(t, "Failed batch jobs report", cfg.Mail.Subject)
	assert.Equal(t, 10*time.Second, cfg.Mail.Timeout)
	assert.Equal(t, RunModeScheduler, cfg.Watchdog.Mode)
	assert.Equal(t, "0 */30 * * * *", cfg.Watchdog.Schedule)
	assert.False(t, cfg.Watchdog.RunOnStart)
	assert.False(t, cfg.Observability.Metrics.IsEnabled())
	assert.False(t, cfg.Observability.Notifications.Slack.Enabled)
}

func TestAppConfig_ParseFullEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("LOG_LEVEL", " DEBUG ")
	t.Setenv("SOURCE_USERNAME", "watcher")
	t.Setenv("SOURCE_PASSWORD", "s3cret")
	t.Setenv("SOURCE_RECORDS_PATH", " data.items ")
	t.Setenv("SOURCE_TIMEOUT", "30s")
	t.Setenv("SOURCE_INTERVAL_UNIT", "hours")
	t.Setenv("MAIL_FROM_NAME", "Batch Bot")
	t.Setenv("MAIL_TO", "ops@example.com, Jane Doe <jane@example.com>")
	t.Setenv("MAIL_CC", "audit@example.com")
	t.Setenv("MAIL_SUBJECT", "[prod] Failed batch jobs")
	t.Setenv("WATCHDOG_MODE", "ONCE")
	t.Setenv("WATCHDOG_RUN_ON_START", "true")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_TAGS", "env:prod,team:erp,broken")
	t.Setenv("OBSERVABILITY_NOTIFICATIONS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_NOTIFICATIONS_SLACK_ENABLED", "true")
	t.Setenv("OBSERVABILITY_NOTIFICATIONS_SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/test")

	cfg := parse(t)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "watcher", cfg.Source.Username)
	assert.Equal(t, "data.items", cfg.Source.RecordsPath)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, model.IntervalUnitHours, cfg.Source.IntervalUnit)
	assert.Equal(t, RunModeOnce, cfg.Watchdog.Mode)
	assert.True(t, cfg.Watchdog.RunOnStart)
	assert.Equal(t, "[prod] Failed batch jobs", cfg.Mail.Subject)
	assert.True(t, cfg.Observability.Metrics.IsEnabled())
	assert.Equal(t, map[string]string{"env": "prod", "team": "erp"}, cfg.Observability.Metrics.GlobalTags())
	assert.True(t, cfg.Observability.Notifications.Slack.Enabled)

	sender, err := cfg.Mail.Sender()
	require.NoError(t, err)
	assert.Equal(t, "watcher@example.com", sender.Address)
	assert.Equal(t, "Batch Bot", sender.Name)

	to, err := cfg.Mail.Recipients()
	require.NoError(t, err)
	require.Len(t, to, 2)
	assert.Equal(t, "jane@example.com", to[1].Address)
	assert.Equal(t, "Jane Doe", to[1].Name)

	cc, err := cfg.Mail.CopyRecipients()
	require.NoError(t, err)
	require.Len(t, cc, 1)
}

func TestAppConfig_InvalidIntervalUnitFailsParse(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SOURCE_INTERVAL_UNIT", "fortnights")

	var cfg AppConfig
	assert.Error(t, env.Parse(&cfg))
}

func TestAppConfig_ValidateReportsEveryProblem(t *testing.T) {
	cfg := AppConfig{LogLevel: "verbose"}
	cfg.Sanitize()

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"LOG_LEVEL",
		"SOURCE_BASE_URL is required",
		"SENDGRID_API_KEY is required",
		"MAIL_FROM is required",
		"MAIL_TO is required",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSourceConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr string
	}{
		{name: "relative url", cfg: SourceConfig{BaseURL: "erp/rest"}, wantErr: "absolute"},
		{name: "bad timezone", cfg: SourceConfig{BaseURL: "https://erp", Timezone: "Mars/Olympus"}, wantErr: "SOURCE_TIMEZONE"},
		{name: "bad unit", cfg: SourceConfig{BaseURL: "https://erp", IntervalUnit: "days"}, wantErr: "SOURCE_INTERVAL_UNIT"},
		{name: "ok", cfg: SourceConfig{BaseURL: "https://erp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Sanitize()
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMailConfig_Validate(t *testing.T) {
	cfg := MailConfig{APIKey: "k", From: "not an address", To: "ops@example.com; jane@example.com", CC: "<broken"}
	cfg.Sanitize()

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAIL_FROM")
	assert.Contains(t, err.Error(), "MAIL_TO")
	assert.Contains(t, err.Error(), "MAIL_CC")
}

func TestMailConfig_SenderKeepsExplicitName(t *testing.T) {
	cfg := MailConfig{From: "Ops Team <ops@example.com>", FromName: "ignored"}
	sender, err := cfg.Sender()
	require.NoError(t, err)
	assert.Equal(t, "Ops Team", sender.Name)
}

func TestWatchdogConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     WatchdogConfig
		wantErr bool
	}{
		{name: "scheduler default", cfg: WatchdogConfig{Schedule: "@hourly"}},
		{name: "scheduler without schedule", cfg: WatchdogConfig{Mode: RunModeScheduler}, wantErr: true},
		{name: "once ignores schedule", cfg: WatchdogConfig{Mode: "once"}},
		{name: "unknown mode", cfg: WatchdogConfig{Mode: "daemon", Schedule: "@hourly"}, wantErr: true},
		{name: "bad timezone", cfg: WatchdogConfig{Schedule: "@hourly", Timezone: "Nowhere/Land"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Sanitize()
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
				return
			}
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLogLevel("trace")
	assert.Error(t, err)
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " "}
	cfg.Sanitize()
	assert.False(t, cfg.Enabled, "expected enabled to be false when address is empty")

	cfg = ObservabilityMetricsConfig{Enabled: true, StatsdAddress: " statsd:1234 "}
	cfg.Sanitize()
	assert.True(t, cfg.IsEnabled())
	assert.Equal(t, "statsd:1234", cfg.StatsdAddress)
}

func TestObservabilityNotificationsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityNotificationsConfig{
		Enabled:    true,
		RetryLimit: -1,
		Slack:      SlackNotificationConfig{Enabled: true, WebhookURL: " "},
		PagerDuty:  PagerDutyNotificationConfig{Enabled: true, RoutingKey: " "},
	}
	cfg.Sanitize()

	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.RetryLimit)
	assert.False(t, cfg.Slack.Enabled, "expected slack to be disabled without a webhook url")
	assert.False(t, cfg.PagerDuty.Enabled, "expected pagerduty to be disabled without a routing key")
	assert.Equal(t, "batchwatch", cfg.PagerDuty.Source)
	assert.Equal(t, "batch-jobs", cfg.PagerDuty.Component)
	assert.Equal(t, "batchwatch", cfg.Slack.Username)

	cfg = ObservabilityNotificationsConfig{
		Enabled:   false,
		Slack:     SlackNotificationConfig{Enabled: true, WebhookURL: "https://hooks.slack.com/services/test"},
		PagerDuty: PagerDutyNotificationConfig{Enabled: true, RoutingKey: "abc"},
	}
	cfg.Sanitize()
	assert.False(t, cfg.Slack.Enabled, "expected slack to be disabled when top-level notifications disabled")
	assert.False(t, cfg.PagerDuty.Enabled, "expected pagerduty to be disabled when top-level notifications disabled")
}
