package crawler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter spaces out requests and holds them back after the site answers 429
type RateLimiter struct {
	limiter *rate.Limiter

	// extra pause after a 429
	cooldownUntil time.Time
	mu            sync.Mutex
}

// NewRateLimiter creates a limiter allowing rps requests per second with the given burst.
// rps <= 0 disables the limit; the cooldown still applies.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until the next request is allowed
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	waitUntil := r.cooldownUntil
	r.mu.Unlock()

	if d := time.Until(waitUntil); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return r.limiter.Wait(ctx)
}

// SetCooldown holds requests back for d plus a random share of d
func (r *RateLimiter) SetCooldown(d time.Duration) time.Duration {
	if d > 0 {
		d += time.Duration(rand.Int63n(int64(d) + 1))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	until := time.Now().Add(d)
	if until.After(r.cooldownUntil) {
		r.cooldownUntil = until
	}
	return d
}

// CooldownRemaining reports how long requests are still held back
func (r *RateLimiter) CooldownRemaining() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d := time.Until(r.cooldownUntil); d > 0 {
		return d
	}
	return 0
}
