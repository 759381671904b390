package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_DelayExponentialBounds(t *testing.T) {
	p := DefaultPolicy()

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
	}

	var prev time.Duration
	for attempt := 0; attempt < 5; attempt++ {
		d := p.Delay(attempt)

		// Non-jittered component is exact; jitter adds [0, 1s)
		assert.GreaterOrEqual(t, d, want[attempt], "attempt %d", attempt)
		assert.Less(t, d, want[attempt]+time.Second, "attempt %d", attempt)

		// Non-decreasing across attempts (base doubles, jitter < base growth)
		assert.GreaterOrEqual(t, d, prev-time.Second, "attempt %d", attempt)
		prev = d
	}
}

func TestPolicy_DelayCappedAtMax(t *testing.T) {
	p := DefaultPolicy()

	for _, attempt := range []int{5, 6, 10, 63, 100} {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, 30*time.Second, "attempt %d", attempt)
		assert.Less(t, d, 31*time.Second, "attempt %d", attempt)
	}
}

func TestPolicy_DelayNegativeAttemptTreatedAsZero(t *testing.T) {
	p := DefaultPolicy()
	d := p.Delay(-3)
	assert.GreaterOrEqual(t, d, time.Second)
	assert.Less(t, d, 2*time.Second)
}

func TestPolicy_JitterVariesBetweenCalls(t *testing.T) {
	p := DefaultPolicy()

	// Jitter is redrawn on every call; 32 draws collapsing to one value
	// would mean it is being cached.
	seen := make(map[time.Duration]struct{})
	for i := 0; i < 32; i++ {
		seen[p.Delay(0)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestPolicy_NoJitterConfigured(t *testing.T) {
	p := Policy{Base: time.Second, Max: 30 * time.Second}
	require.Equal(t, 4*time.Second, p.Delay(2))
}
