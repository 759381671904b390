package shopify

import (
	"errors"
	"fmt"
	"time"
)

// Default request tuning for the vendor inventory API.
const (
	DefaultAPIVersion     = "2024-07"
	DefaultTimeoutSeconds = 30
	DefaultMaxAttempts    = 5
	DefaultPageLimit      = 250
)

// ErrNotConfigured indicates missing vendor credentials. Surfaced to
// callers before any side effect takes place.
var ErrNotConfigured = errors.New("shopify: store domain and access token are required")

// Config holds credentials and tuning for the vendor inventory API.
type Config struct {
	StoreDomain    string // e.g. "example.myshopify.com"
	AccessToken    string
	APIVersion     string
	TimeoutSeconds int
	MaxAttempts    int // retry budget per batch, rate-limited or not
	PageLimit      int // limit query parameter, vendor max 250
}

// Validate checks credentials and applies defaults for unset tuning knobs.
func (c *Config) Validate() error {
	if c.StoreDomain == "" || c.AccessToken == "" {
		return ErrNotConfigured
	}
	if c.APIVersion == "" {
		c.APIVersion = DefaultAPIVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.PageLimit <= 0 || c.PageLimit > DefaultPageLimit {
		c.PageLimit = DefaultPageLimit
	}
	return nil
}

// BaseURL returns the versioned admin API root for the configured store.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s", c.StoreDomain, c.APIVersion)
}

// Timeout returns the per-request HTTP timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
