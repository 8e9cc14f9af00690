package ratelimit

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// MaxRetryDelay caps RetryDelay.
const MaxRetryDelay = 15 * time.Second

type Pacer interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// RandomPacer sleeps a uniformly random duration between two bounds on every
// Wait, de-synchronizing request timing.
type RandomPacer struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
}

func NewRandomPacer(minDelay, maxDelay time.Duration) *RandomPacer {
	return &RandomPacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *RandomPacer) Wait(ctx context.Context) error {
	return Sleep(ctx, r.Next())
}

func (r *RandomPacer) SetDelay(min, max time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.minDelay = min
	r.maxDelay = max
}

// Next draws the next delay.
func (r *RandomPacer) Next() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(r.rng.Int63n(int64(delta) + 1))
	return r.minDelay + jitter
}

// RetryDelay is the wait before retrying after the given 1-based attempt:
// 2^attempt + attempt/2 seconds, capped at MaxRetryDelay.
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 4 {
		return MaxRetryDelay
	}
	seconds := math.Pow(2, float64(attempt)) + 0.5*float64(attempt)
	delay := time.Duration(seconds * float64(time.Second))
	if delay > MaxRetryDelay {
		return MaxRetryDelay
	}
	return delay
}

// Sleep blocks for d or until ctx is done.
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
