// Package preferences fetches batch job preferences from the application's
// published REST service.
package preferences

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/target/batchwatch/internal/domain/model"
)

// ResourcePath is appended to the configured base URL.
const ResourcePath = "/GetBatchJobsPreferences"

const (
	defaultTimeout      = 100 * time.Second
	defaultMaxBodyBytes = 10 << 20
	errorSnippetBytes   = 512
)

// ErrorKind classifies fetch failures for logs and metrics.
type ErrorKind string

const (
	// KindStatus means the service answered with a non-2xx status.
	KindStatus ErrorKind = "status"
	// KindTransport means the request never produced a response.
	KindTransport ErrorKind = "transport"
	// KindDecode means the response body could not be turned into preferences.
	KindDecode ErrorKind = "decode"
)

// FetchError describes why a fetch yielded no usable records.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("preferences %s error: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrorClass tags metrics and logs with fetch_status, fetch_transport or fetch_decode.
func (e *FetchError) ErrorClass() string {
	return "fetch_" + string(e.Kind)
}

// Config captures the preferences service connection settings.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// RecordsPath is an optional JMESPath expression selecting the record
	// array inside the response body.
	RecordsPath  string
	Timeout      time.Duration
	MaxBodyBytes int64
	Decode       model.DecodeOptions
	Client       *http.Client
}

// Client performs authenticated GETs against the preferences resource.
type Client struct {
	endpoint     string
	username     string
	password     string
	recordsPath  string
	maxBodyBytes int64
	decode       model.DecodeOptions
	client       *http.Client
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	endpoint, err := buildEndpoint(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	path := strings.TrimSpace(cfg.RecordsPath)
	if path != "" {
		if _, err = jmespath.Compile(path); err != nil {
			return nil, fmt.Errorf("compile records path %q: %w", path, err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		endpoint:     endpoint,
		username:     cfg.Username,
		password:     cfg.Password,
		recordsPath:  path,
		maxBodyBytes: maxBody,
		decode:       cfg.Decode,
		client:       hc,
	}, nil
}

func buildEndpoint(base string) (string, error) {
	base = strings.TrimSpace(base)
	if base == "" {
		return "", errors.New("preferences base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse preferences base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("preferences base url %q must be absolute", base)
	}
	return strings.TrimRight(u.String(), "/") + ResourcePath, nil
}

// Endpoint returns the full resource URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Fetch performs a single GET and decodes the preferences. Every failure is
// returned as a *FetchError. A successful empty list returns no error.
func (c *Client) Fetch(ctx context.Context) ([]model.JobPreference, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, handleErrorResponse(resp)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, StatusCode: resp.StatusCode, Err: err}
	}

	prefs, err := c.decodeBody(body)
	if err != nil {
		return nil, &FetchError{Kind: KindDecode, StatusCode: resp.StatusCode, Err: err}
	}
	return prefs, nil
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	closeErr := resp.Body.Close()
	if err != nil {
		if closeErr != nil {
			return nil, errors.Join(
				fmt.Errorf("read preferences response: %w", err),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return nil, fmt.Errorf("read preferences response: %w", err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close response body: %w", closeErr)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("preferences response exceeds %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

func (c *Client) decodeBody(body []byte) ([]model.JobPreference, error) {
	if c.recordsPath == "" {
		return model.DecodePreferences(body, c.decode)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode preferences document: %w", err)
	}
	selected, err := jmespath.Search(c.recordsPath, doc)
	if err != nil {
		return nil, fmt.Errorf("apply records path %q: %w", c.recordsPath, err)
	}
	if selected == nil {
		return []model.JobPreference{}, nil
	}
	records, err := json.Marshal(selected)
	if err != nil {
		return nil, fmt.Errorf("encode selected records: %w", err)
	}
	return model.DecodePreferences(records, c.decode)
}

func handleErrorResponse(resp *http.Response) error {
	snippet, readErr := io.ReadAll(io.LimitReader(resp.Body, errorSnippetBytes))
	closeErr := resp.Body.Close()

	fe := &FetchError{Kind: KindStatus, StatusCode: resp.StatusCode}
	switch {
	case readErr != nil && closeErr != nil:
		fe.Err = errors.Join(
			fmt.Errorf("%s: read error response: %w", resp.Status, readErr),
			fmt.Errorf("close response body: %w", closeErr),
		)
	case readErr != nil:
		fe.Err = fmt.Errorf("%s: read error response: %w", resp.Status, readErr)
	default:
		fe.Err = fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return fe
}
