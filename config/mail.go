package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

const defaultSubject = "Failed batch jobs report"

// MailConfig controls report delivery through SendGrid.
type MailConfig struct {
	APIKey   string        `env:"SENDGRID_API_KEY"`
	Host     string        `env:"SENDGRID_HOST"     envDefault:"https://api.sendgrid.com"`
	Timeout  time.Duration `env:"SENDGRID_TIMEOUT"  envDefault:"10s"`
	From     string        `env:"MAIL_FROM"`
	FromName string        `env:"MAIL_FROM_NAME"    envDefault:"Batch Jobs Watcher"`
	// To and CC are RFC 5322 address lists, e.g. "ops@example.com, Jane <jane@example.com>".
	To      string `env:"MAIL_TO"`
	CC      string `env:"MAIL_CC"`
	Subject string `env:"MAIL_SUBJECT" envDefault:"Failed batch jobs report"`
}

// Sanitize trims values and restores defaults.
func (c *MailConfig) Sanitize() {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Host = strings.TrimSpace(c.Host)
	c.From = strings.TrimSpace(c.From)
	c.FromName = strings.TrimSpace(c.FromName)
	c.To = strings.TrimSpace(c.To)
	c.CC = strings.TrimSpace(c.CC)
	c.Subject = strings.TrimSpace(c.Subject)
	if c.Subject == "" {
		c.Subject = defaultSubject
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
}

// Validate checks that a report could actually be delivered.
func (c *MailConfig) Validate() error {
	var errs []error
	if c.APIKey == "" {
		errs = append(errs, errors.New("SENDGRID_API_KEY is required"))
	}
	if _, err := c.Sender(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Recipients(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.CopyRecipients(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Sender returns the From address with its display name.
func (c *MailConfig) Sender() (*mail.Address, error) {
	if c.From == "" {
		return nil, errors.New("MAIL_FROM is required")
	}
	addr, err := mail.ParseAddress(c.From)
	if err != nil {
		return nil, fmt.Errorf("MAIL_FROM: %w", err)
	}
	if addr.Name == "" {
		addr.Name = c.FromName
	}
	return addr, nil
}

// Recipients parses MAIL_TO; at least one address is required.
func (c *MailConfig) Recipients() ([]*mail.Address, error) {
	if c.To == "" {
		return nil, errors.New("MAIL_TO is required")
	}
	addrs, err := mail.ParseAddressList(c.To)
	if err != nil {
		return nil, fmt.Errorf("MAIL_TO: %w", err)
	}
	return addrs, nil
}

// CopyRecipients parses the optional MAIL_CC.
func (c *MailConfig) CopyRecipients() ([]*mail.Address, error) {
	if c.CC == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(c.CC)
	if err != nil {
		return nil, fmt.Errorf("MAIL_CC: %w", err)
	}
	return addrs, nil
}
