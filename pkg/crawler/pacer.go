package crawler

import (
	"context"
	"math/rand"
	"time"
)

// Pacer enforces the pause taken before every page fetch
type Pacer struct {
	base   time.Duration
	jitter time.Duration
	rand   func(n int64) int64
}

// NewPacer creates a pacer waiting base plus a uniform random share of jitter
func NewPacer(base, jitter time.Duration) *Pacer {
	return &Pacer{base: base, jitter: jitter, rand: rand.Int63n}
}

// Delay returns the next pause length
func (p *Pacer) Delay() time.Duration {
	d := p.base
	if p.jitter > 0 {
		d += time.Duration(p.rand(int64(p.jitter) + 1))
	}
	if d < 0 {
		return 0
	}
	return d
}

// Wait sleeps for the next pause, returning early with the context error on cancellation
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Delay()
	if d == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
