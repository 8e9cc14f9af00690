package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{attempt: 1, expected: 2500 * time.Millisecond},
		{attempt: 2, expected: 5 * time.Second},
		{attempt: 3, expected: 9500 * time.Millisecond},
		{attempt: 4, expected: 15 * time.Second},
		{attempt: 10, expected: 15 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, RetryDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestRetryDelayIsMonotonicAndCapped(t *testing.T) {
	prev := RetryDelay(0)
	for attempt := 1; attempt <= 200; attempt++ {
		d := RetryDelay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, MaxRetryDelay, "attempt %d", attempt)
		prev = d
	}
}

func TestRandomPacerNextWithinBounds(t *testing.T) {
	p := NewRandomPacer(100*time.Millisecond, 300*time.Millisecond)

	for i := 0; i < 500; i++ {
		d := p.Next()
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		require.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRandomPacerFixedDelay(t *testing.T) {
	p := NewRandomPacer(time.Second, time.Second)
	assert.Equal(t, time.Second, p.Next())

	p.SetDelay(0, 0)
	assert.Equal(t, time.Duration(0), p.Next())
}

func TestRandomPacerWaitHonoursContext(t *testing.T) {
	p := NewRandomPacer(time.Hour, 2*time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := p.Wait(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), time.Millisecond))
}
