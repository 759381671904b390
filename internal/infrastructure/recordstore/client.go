package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxResponseSize caps how much of a record store response is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

// DefaultTimeoutSeconds is the per-request timeout against the record store.
const DefaultTimeoutSeconds = 30

// ErrNotConfigured indicates missing record store connection settings.
var ErrNotConfigured = errors.New("recordstore: base url and service key are required")

// Config holds connection settings for the platform's record store. The
// store exposes table-addressed REST endpoints with PostgREST filter and
// upsert semantics; this service treats it as a generic HTTP collaborator.
type Config struct {
	BaseURL        string // e.g. "https://project.example.co/rest/v1"
	ServiceKey     string
	TimeoutSeconds int
}

// Validate checks connection settings and applies defaults.
func (c *Config) Validate() error {
	if c.BaseURL == "" || c.ServiceKey == "" {
		return ErrNotConfigured
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	return nil
}

// Client is a thin HTTP client for the record store. Higher-level gateways
// (variant resolution, level upserts, run tracking) build on it.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a record store client. The config must already be
// validated.
func NewClient(config Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		logger: logger,
	}
}

// do performs one request against a table endpoint. prefer is sent as the
// Prefer header when non-empty; body is JSON-encoded when non-nil. The
// response body is returned for any 2xx status, otherwise an error
// carrying status and body.
func (c *Client) do(ctx context.Context, method, table string, query url.Values, prefer string, body any) ([]byte, error) {
	endpoint := c.config.BaseURL + "/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("recordstore: encode %s body: %w", table, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("recordstore: build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.config.ServiceKey)
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recordstore: %s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("recordstore: read %s response: %w", table, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("recordstore: %s %s: HTTP %d: %s", method, table, resp.StatusCode, respBody)
	}
	return respBody, nil
}
