package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - source.go: preferences REST service
//   - mail.go: SendGrid email delivery
//   - watchdog.go: run mode and schedule
//   - observability.go: metrics and mirror notifications
type AppConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Source        SourceConfig
	Mail          MailConfig
	Watchdog      WatchdogConfig
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Source.Sanitize()
	c.Mail.Sanitize()
	c.Watchdog.Sanitize()
	c.Observability.Sanitize()
}

// Validate reports every configuration problem that should stop the process.
func (c *AppConfig) Validate() error {
	var errs []error
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for _, sub := range []struct {
		name string
		fn   func() error
	}{
		{"source", c.Source.Validate},
		{"mail", c.Mail.Validate},
		{"watchdog", c.Watchdog.Validate},
	} {
		if err := sub.fn(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sub.name, err))
		}
	}
	return errors.Join(errs...)
}

// ParseLogLevel maps LOG_LEVEL onto a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", level)
	}
}
