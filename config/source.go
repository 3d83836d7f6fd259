package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/target/batchwatch/internal/domain/model"
)

// SourceConfig describes the batch job preferences REST service.
type SourceConfig struct {
	BaseURL  string `env:"SOURCE_BASE_URL"`
	Username string `env:"SOURCE_USERNAME"`
	Password string `env:"SOURCE_PASSWORD"`
	// RecordsPath is an optional JMESPath selecting the record array.
	RecordsPath  string             `env:"SOURCE_RECORDS_PATH"`
	Timeout      time.Duration      `env:"SOURCE_TIMEOUT"        envDefault:"100s"`
	MaxBodyBytes int64              `env:"SOURCE_MAX_BODY_BYTES" envDefault:"10485760"`
	Timezone     string             `env:"SOURCE_TIMEZONE"       envDefault:"UTC"`
	IntervalUnit model.IntervalUnit `env:"SOURCE_INTERVAL_UNIT"  envDefault:"minutes"`
}

// Sanitize normalises source settings and fills safe defaults.
func (c *SourceConfig) Sanitize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	c.RecordsPath = strings.TrimSpace(c.RecordsPath)
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Timeout <= 0 {
		c.Timeout = 100 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 10 << 20
	}
	if c.IntervalUnit == "" {
		c.IntervalUnit = model.IntervalUnitMinutes
	}
}

// Validate checks the settings that cannot be defaulted.
func (c *SourceConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("SOURCE_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SOURCE_BASE_URL %q must be an absolute URL", c.BaseURL)
	}
	if !c.IntervalUnit.Valid() {
		return fmt.Errorf("SOURCE_INTERVAL_UNIT %q is not supported", c.IntervalUnit)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves SOURCE_TIMEZONE, used for timestamps without an offset.
func (c *SourceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("SOURCE_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
