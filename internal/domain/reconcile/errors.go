package reconcile

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProducts is returned when a refresh is requested without product IDs.
	ErrNoProducts = errors.New("product ids are required")

	// ErrNoItemsResolved is returned when none of the requested products have
	// vendor-tracked inventory items. Distinct from a vendor call returning an
	// empty levels array, which is a valid non-error result.
	ErrNoItemsResolved = errors.New("no vendor-tracked inventory items for requested products")

	// ErrRunNotFound is returned when a sync run audit row does not exist.
	ErrRunNotFound = errors.New("sync run not found")
)

// VendorErrorKind classifies terminal vendor client failures.
type VendorErrorKind string

const (
	// VendorErrorRateLimitExhausted means a batch stayed rate-limited through
	// the whole retry budget.
	VendorErrorRateLimitExhausted VendorErrorKind = "RATE_LIMIT_EXHAUSTED"

	// VendorErrorUpstreamFailure means the vendor kept failing for a
	// non-rate-limit reason after the retry budget was spent.
	VendorErrorUpstreamFailure VendorErrorKind = "UPSTREAM_FAILURE"
)

// VendorError is returned by the vendor inventory client after retry
// exhaustion. It is always a batch-level error: the run records it and
// continues with the next batch.
type VendorError struct {
	Kind   VendorErrorKind
	Detail string
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("vendor inventory fetch failed (%s): %s", e.Kind, e.Detail)
}
