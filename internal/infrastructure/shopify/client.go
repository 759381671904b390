package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aisleworks/inventory-sync/internal/domain/reconcile"
)

// maxResponseSize caps how much of a vendor response is read (10MB).
const maxResponseSize = 10 * 1024 * 1024

// InventoryClient fetches current stock levels from the vendor inventory
// API. One outbound read per batch; HTTP 429 is retried with Retry-After
// when the vendor supplies it, otherwise with the backoff policy. All
// other non-2xx responses are retried under the same attempt budget.
type InventoryClient struct {
	config     Config
	httpClient *http.Client
	policy     reconcile.Policy
	logger     *zap.Logger

	// sleep is swapped out in tests to avoid real waiting
	sleep func(ctx context.Context, d time.Duration) error
}

// NewInventoryClient creates a vendor inventory client. The config must
// already be validated.
func NewInventoryClient(config Config, policy reconcile.Policy, logger *zap.Logger) *InventoryClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout(),
		},
		policy: policy,
		logger: logger,
		sleep:  sleepContext,
	}
}

// inventoryLevelsResponse mirrors the vendor wire shape for level reads.
type inventoryLevelsResponse struct {
	InventoryLevels []inventoryLevelPayload `json:"inventory_levels"`
}

type inventoryLevelPayload struct {
	InventoryItemID int64  `json:"inventory_item_id"`
	LocationID      int64  `json:"location_id"`
	Available       *int   `json:"available"`
	UpdatedAt       string `json:"updated_at"`
}

// FetchLevels reads current stock levels for the given inventory items in
// a single vendor call. An empty levels array is a valid result meaning
// the vendor reports no levels for these ids.
//
// Fails with *reconcile.VendorError once the retry budget is exhausted:
// RateLimitExhausted when the final failure was a 429, UpstreamFailure
// otherwise.
func (c *InventoryClient) FetchLevels(ctx context.Context, inventoryItemIDs []int64) ([]reconcile.InventoryLevel, error) {
	if len(inventoryItemIDs) == 0 {
		return nil, nil
	}

	query := url.Values{}
	query.Set("inventory_item_ids", joinIDs(inventoryItemIDs))
	query.Set("limit", strconv.Itoa(c.config.PageLimit))
	endpoint := c.config.BaseURL() + "/inventory_levels.json?" + query.Encode()

	var (
		wait        time.Duration
		rateLimited bool
		lastDetail  string
	)

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.Warn("Retrying vendor inventory fetch",
				zap.Int("attempt", attempt),
				zap.Bool("rate_limited", rateLimited),
				zap.Duration("wait", wait),
				zap.Int("item_count", len(inventoryItemIDs)),
			)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		levels, retryAfter, detail, err := c.fetchOnce(ctx, endpoint)
		if err == nil {
			return levels, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastDetail = detail
		rateLimited = retryAfter >= 0
		if retryAfter > 0 {
			// Explicit Retry-After takes priority over computed backoff
			wait = retryAfter
		} else {
			wait = c.policy.Delay(attempt)
		}
	}

	kind := reconcile.VendorErrorUpstreamFailure
	if rateLimited {
		kind = reconcile.VendorErrorRateLimitExhausted
	}
	return nil, &reconcile.VendorError{Kind: kind, Detail: lastDetail}
}

// errFetchFailed is an internal marker; callers only see the final
// *reconcile.VendorError after retry exhaustion.
var errFetchFailed = fmt.Errorf("shopify: fetch failed")

// fetchOnce performs a single vendor read. retryAfter is -1 for
// non-rate-limit failures, 0 for a 429 without a Retry-After header, and
// the parsed header value otherwise.
func (c *InventoryClient) fetchOnce(ctx context.Context, endpoint string) (levels []reconcile.InventoryLevel, retryAfter time.Duration, detail string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, -1, err.Error(), err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, -1, err.Error(), errFetchFailed
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, -1, err.Error(), errFetchFailed
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Sprintf("HTTP 429: %s", body), errFetchFailed
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, -1, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body), errFetchFailed
	}

	var parsed inventoryLevelsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, -1, fmt.Sprintf("invalid response: %v", err), errFetchFailed
	}

	levels = make([]reconcile.InventoryLevel, 0, len(parsed.InventoryLevels))
	for _, p := range parsed.InventoryLevels {
		level := reconcile.InventoryLevel{
			InventoryItemID: p.InventoryItemID,
			LocationID:      p.LocationID,
		}
		if p.Available != nil {
			level.Available = *p.Available
		}
		if p.UpdatedAt != "" {
			if t, err := time.Parse(time.RFC3339, p.UpdatedAt); err == nil {
				level.LastChangeAt = t
			}
		}
		levels = append(levels, level)
	}
	return levels, 0, "", nil
}

// parseRetryAfter converts a Retry-After header (seconds, possibly
// fractional) into a duration. Returns 0 when absent or unparseable so
// the caller falls back to the backoff policy.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(header), 64)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// joinIDs renders ids as the comma-joined query value the vendor expects.
func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
