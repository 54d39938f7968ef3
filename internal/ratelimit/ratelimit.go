package ratelimit

import (
	"context"
	"sync"
	"time"
)

type RateLimiter interface {
	Wait(ctx context.Context) error
}

// FixedDelay sleeps for the same duration on every Wait, regardless of how
// long the caller spent since the previous call.
type FixedDelay struct {
	delay time.Duration
}

func NewFixedDelay(delay time.Duration) *FixedDelay {
	return &FixedDelay{delay: delay}
}

func (f *FixedDelay) Wait(ctx context.Context) error {
	return sleep(ctx, f.delay)
}

// SimpleRateLimiter enforces a minimum interval between consecutive Wait
// returns. The first call never blocks.
type SimpleRateLimiter struct {
	minDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
	now        func() time.Time
}

func NewSimpleRateLimiter(minDelay time.Duration) *SimpleRateLimiter {
	return &SimpleRateLimiter{
		minDelay: minDelay,
		now:      time.Now,
	}
}

func (r *SimpleRateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastAction.IsZero() {
		elapsed := r.now().Sub(r.lastAction)
		if elapsed < r.minDelay {
			if err := sleep(ctx, r.minDelay-elapsed); err != nil {
				return err
			}
		}
	}

	r.lastAction = r.now()
	return nil
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
