package app

import (
	"math/rand"
	"time"
)

// Retry delays for transient device conditions.
const (
	DefaultRetryInitial = 10 * time.Millisecond
	DefaultRetryMax     = 100 * time.Millisecond
)

// backoff implements exponential backoff with jitter.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

// newBackoff creates a new backoff with the given initial and max durations.
func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait sleeps for the current backoff duration, or until done is closed,
// and increases the delay. Returns false if done closed first.
func (b *backoff) Wait(done <-chan struct{}) bool {
	// Add jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	timer := time.NewTimer(time.Duration(float64(b.current) + jitter))
	defer timer.Stop()

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}

// Reset resets the backoff to the initial duration.
func (b *backoff) Reset() {
	b.current = b.initial
}
