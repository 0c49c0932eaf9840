package ratelimit

import (
	"context"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// RandomDelay sleeps a uniformly random duration in [min, max) on every Wait.
// It is used for the page settle wait and the pause between scrape attempts.
type RandomDelay struct {
	minDelay time.Duration
	maxDelay time.Duration
}

func NewRandomDelay(minDelay, maxDelay time.Duration) *RandomDelay {
	return &RandomDelay{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (r *RandomDelay) Wait(ctx context.Context) error {
	return sleep(ctx, r.Next())
}

// Next returns the duration the following Wait would sleep.
func (r *RandomDelay) Next() time.Duration {
	if r.maxDelay <= r.minDelay {
		return r.minDelay
	}

	delta := r.maxDelay - r.minDelay
	jitter := time.Duration(rand.Int63n(int64(delta)))
	return r.minDelay + jitter
}

// Pacer spaces the starts of consecutive calls at least interval apart. It
// is a quota, not a pause: a call that ran longer than interval lets the
// next one start at once. The first Wait returns immediately.
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(interval time.Duration) *Pacer {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Pacer{
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Immediate never waits. It stands in for real delays in tests and when a
// delay is configured as zero.
type Immediate struct{}

func (Immediate) Wait(ctx context.Context) error {
	return ctx.Err()
}

func sleep(ctx context.Context, d time.Duration) error {
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
