// Package sendgrid delivers reports as HTML email through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	sg "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/target/batchwatch/internal/observability/notify"
)

// DefaultHost is the public SendGrid API host.
const DefaultHost = "https://api.sendgrid.com"

const sendEndpoint = "/v3/mail/send"

// Config captures the SendGrid delivery settings.
type Config struct {
	APIKey string
	// Host overrides the API host; empty means DefaultHost.
	Host    string
	From    *mail.Address
	To      []*mail.Address
	CC      []*mail.Address
	Timeout time.Duration
}

// Client sends report emails. Each SendReport call is a single attempt.
type Client struct {
	apiKey  string
	host    string
	from    *sgmail.Email
	to      []*sgmail.Email
	cc      []*sgmail.Email
	timeout time.Duration
}

var _ notify.Sink = (*Client)(nil)

// NewClient validates cfg and builds a SendGrid client.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if cfg.From == nil || strings.TrimSpace(cfg.From.Address) == "" {
		return nil, errors.New("sender address is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	seen := make(map[string]struct{})
	to := toEmails(cfg.To, seen)
	if len(to) == 0 {
		return nil, errors.New("at least one recipient is required")
	}

	return &Client{
		apiKey:  key,
		host:    strings.TrimRight(fallbackString(strings.TrimSpace(cfg.Host), DefaultHost), "/"),
		from:    toEmail(cfg.From),
		to:      to,
		cc:      toEmails(cfg.CC, seen),
		timeout: timeout,
	}, nil
}

// SendReport sends the report to the configured recipients.
func (c *Client) SendReport(ctx context.Context, report notify.Report) error {
	msg := c.buildMessage(report)

	req := sg.GetRequest(c.apiKey, sendEndpoint, c.host)
	req.Method = "POST"
	req.Body = sgmail.GetRequestBody(msg)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := sg.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid api status %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

func (c *Client) buildMessage(report notify.Report) *sgmail.SGMailV3 {
	subject := fallbackString(strings.TrimSpace(report.Subject), notify.DefaultSubject)

	p := sgmail.NewPersonalization()
	p.AddTos(c.to...)
	if len(c.cc) > 0 {
		p.AddCCs(c.cc...)
	}
	p.SetCustomArg("run_id", report.RunID.String())

	msg := sgmail.NewV3Mail()
	msg.SetFrom(c.from)
	msg.Subject = subject
	msg.AddPersonalizations(p)
	msg.AddContent(
		sgmail.NewContent("text/plain", report.Text()),
		sgmail.NewContent("text/html", report.HTML()),
	)
	msg.AddCategories("batchwatch")
	return msg
}

func toEmail(addr *mail.Address) *sgmail.Email {
	return sgmail.NewEmail(strings.TrimSpace(addr.Name), strings.TrimSpace(addr.Address))
}

// toEmails converts addrs, skipping blanks and any address already in seen.
// SendGrid rejects a personalization that lists the same address twice, in
// either to or cc.
func toEmails(addrs []*mail.Address, seen map[string]struct{}) []*sgmail.Email {
	out := make([]*sgmail.Email, 0, len(addrs))
	for _, addr := range addrs {
		if addr == nil || strings.TrimSpace(addr.Address) == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(addr.Address))
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, toEmail(addr))
	}
	return out
}

func fallbackString(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
