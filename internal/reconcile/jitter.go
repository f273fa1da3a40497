package reconcile

import (
	"context"
	"math/rand/v2"
	"time"
)

// Jitter sleeps a random duration in [Min, Max] to desynchronize callers that
// collided on the same resource. The zero value never sleeps.
type Jitter struct {
	Min time.Duration
	Max time.Duration
	// Sleep replaces the context-aware timer, typically in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewJitter returns a jitter policy bounded by min and max.
func NewJitter(min, max time.Duration) Jitter {
	if max < min {
		max = min
	}
	return Jitter{Min: min, Max: max}
}

// Next picks the next delay.
func (j Jitter) Next() time.Duration {
	if j.Max <= 0 {
		return 0
	}
	if j.Max <= j.Min {
		return j.Min
	}
	return j.Min + rand.N(j.Max-j.Min+1)
}

// Wait blocks for a randomized delay or until ctx ends.
func (j Jitter) Wait(ctx context.Context) (time.Duration, error) {
	delay := j.Next()
	if j.Sleep != nil {
		return delay, j.Sleep(ctx, delay)
	}
	return delay, Sleep(ctx, delay)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
