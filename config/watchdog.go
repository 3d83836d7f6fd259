package config

import (
	"fmt"
	"strings"
	"time"
)

// RunMode selects how the watchdog is triggered.
type RunMode string

const (
	// RunModeScheduler keeps the process alive and runs on WATCHDOG_SCHEDULE.
	RunModeScheduler RunMode = "scheduler"
	// RunModeOnce runs a single invocation and exits, for external timers.
	RunModeOnce RunMode = "once"
)

// ValidRunModes returns all valid run mode names.
func ValidRunModes() []RunMode {
	return []RunMode{RunModeScheduler, RunModeOnce}
}

// WatchdogConfig controls when the watchdog runs.
type WatchdogConfig struct {
	Mode RunMode `env:"WATCHDOG_MODE" envDefault:"scheduler"`
	// Schedule accepts 5- or 6-field cron expressions and descriptors.
	Schedule   string `env:"WATCHDOG_SCHEDULE"     envDefault:"0 */30 * * * *"`
	RunOnStart bool   `env:"WATCHDOG_RUN_ON_START" envDefault:"false"`
	Timezone   string `env:"WATCHDOG_TIMEZONE"     envDefault:"UTC"`
}

// Sanitize normalises the mode and schedule.
func (c *WatchdogConfig) Sanitize() {
	c.Mode = RunMode(strings.ToLower(strings.TrimSpace(string(c.Mode))))
	if c.Mode == "" {
		c.Mode = RunModeScheduler
	}
	c.Schedule = strings.TrimSpace(c.Schedule)
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks the mode and, in scheduler mode, that a schedule is set.
// The cron expression itself is parsed when the scheduler is built.
func (c *WatchdogConfig) Validate() error {
	switch c.Mode {
	case RunModeScheduler:
		if c.Schedule == "" {
			return fmt.Errorf("WATCHDOG_SCHEDULE is required in %s mode", RunModeScheduler)
		}
	case RunModeOnce:
	default:
		return fmt.Errorf("invalid WATCHDOG_MODE %q (valid: %v)", c.Mode, ValidRunModes())
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves WATCHDOG_TIMEZONE for the cron schedule.
func (c *WatchdogConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("WATCHDOG_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
