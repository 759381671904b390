package reconcile

import (
	"math/rand"
	"time"
)

// Policy computes retry delays for vendor API calls. It is pure apart from
// the jitter draw and performs no I/O; callers decide when to sleep.
//
// An explicit Retry-After from a 429 response takes priority over the
// computed delay; that special case lives in the vendor client, not here.
type Policy struct {
	Base   time.Duration // delay for attempt 0
	Max    time.Duration // cap on the exponential component
	Jitter time.Duration // upper bound (exclusive) of the random term
}

// DefaultPolicy returns the backoff parameters used against the vendor
// inventory API: 1s base, 30s cap, up to 1s of jitter.
func DefaultPolicy() Policy {
	return Policy{
		Base:   time.Second,
		Max:    30 * time.Second,
		Jitter: time.Second,
	}
}

// Delay returns min(Base * 2^attempt, Max) plus a uniform random jitter in
// [0, Jitter). The jitter is drawn fresh on every call so concurrent runs
// do not retry in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := p.Base
	for i := 0; i < attempt && d < p.Max; i++ {
		d *= 2
	}
	if d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}
