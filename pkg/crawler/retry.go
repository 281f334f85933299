package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// NewBackOff returns the exponential wait policy between fetch attempts:
// initial, doubling, capped at maxWait, without randomization
func NewBackOff(initial, maxWait time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.MaxInterval = maxWait
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Retry runs op up to maxAttempts times, waiting per policy between attempts.
// Errors wrapped with backoff.Permanent and context cancellation end the loop at once.
func Retry[T any](ctx context.Context, maxAttempts int, policy backoff.BackOff, log zerolog.Logger, op func(attempt int) (T, error)) (T, error) {
	var zero T
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	policy.Reset()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(attempt)
		if err == nil {
			return result, nil
		}

		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return zero, permanent.Unwrap()
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("attempt failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}

	return zero, fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}
