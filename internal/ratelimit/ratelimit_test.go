package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomDelayNextWithinRange(t *testing.T) {
	d := NewRandomDelay(3*time.Second, 7*time.Second)

	for i := 0; i < 100; i++ {
		next := d.Next()
		assert.GreaterOrEqual(t, next, 3*time.Second)
		assert.Less(t, next, 7*time.Second)
	}
}

func TestRandomDelayFixedRange(t *testing.T) {
	d := NewRandomDelay(2*time.Second, 2*time.Second)
	assert.Equal(t, 2*time.Second, d.Next())

	inverted := NewRandomDelay(time.Second, 0)
	assert.Equal(t, time.Second, inverted.Next())
}

func TestRandomDelayWaitHonoursContext(t *testing.T) {
	d := NewRandomDelay(time.Minute, 2*time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := d.Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRandomDelayWaitSleeps(t *testing.T) {
	d := NewRandomDelay(20*time.Millisecond, 30*time.Millisecond)

	start := time.Now()
	require.NoError(t, d.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestPacerSpacesCalls(t *testing.T) {
	p := NewPacer(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, p.Wait(ctx))
	assert.Less(t, time.Since(start), 25*time.Millisecond, "first call should not wait")

	require.NoError(t, p.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestPacerZeroIntervalNeverWaits(t *testing.T) {
	p := NewPacer(0)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Wait(ctx))
	}
	assert.Less(t, time.Since(start), 25*time.Millisecond)
}

func TestImmediate(t *testing.T) {
	var l RateLimiter = Immediate{}
	assert.NoError(t, l.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}
