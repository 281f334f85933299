package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errFlaky = errors.New("flaky")

func TestNewBackOffSequence(t *testing.T) {
	b := NewBackOff(2*time.Second, 10*time.Second)

	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second}, got)
}

func TestRetry(t *testing.T) {
	policy := func() backoff.BackOff { return backoff.NewConstantBackOff(time.Millisecond) }

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		got, err := Retry(context.Background(), 3, policy(), zerolog.Nop(), func(attempt int) (string, error) {
			calls++
			if attempt < 3 {
				return "", errFlaky
			}
			return "done", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "done", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), 3, policy(), zerolog.Nop(), func(int) (int, error) {
			calls++
			return 0, errFlaky
		})
		assert.ErrorIs(t, err, errFlaky)
		assert.Contains(t, err.Error(), "giving up after 3 attempts")
		assert.Equal(t, 3, calls)
	})

	t.Run("permanent errors are not retried", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), 3, policy(), zerolog.Nop(), func(int) (int, error) {
			calls++
			return 0, backoff.Permanent(errFlaky)
		})
		assert.Equal(t, errFlaky, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("at least one attempt", func(t *testing.T) {
		calls := 0
		_, err := Retry(context.Background(), 0, policy(), zerolog.Nop(), func(int) (int, error) {
			calls++
			return 1, nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		calls := 0
		start := time.Now()
		_, err := Retry(ctx, 3, backoff.NewConstantBackOff(time.Hour), zerolog.Nop(), func(int) (int, error) {
			calls++
			time.AfterFunc(10*time.Millisecond, cancel)
			return 0, errFlaky
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
		assert.Less(t, time.Since(start), 10*time.Second)
	})
}

func TestPacerDelay(t *testing.T) {
	p := NewPacer(800*time.Millisecond, 400*time.Millisecond)
	for i := 0; i < 50; i++ {
		d := p.Delay()
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}

	p.rand = func(n int64) int64 { return n - 1 }
	assert.Equal(t, 1200*time.Millisecond, p.Delay())

	assert.Zero(t, NewPacer(0, 0).Delay())
}

func TestPacerWaitCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewPacer(time.Hour, 0).Wait(ctx), context.Canceled)
	assert.ErrorIs(t, NewPacer(0, 0).Wait(ctx), context.Canceled)
	assert.NoError(t, NewPacer(0, 0).Wait(context.Background()))
}

func TestRateLimiterCooldown(t *testing.T) {
	r := NewRateLimiter(0, 1)
	assert.Zero(t, r.CooldownRemaining())

	pause := r.SetCooldown(time.Minute)
	assert.GreaterOrEqual(t, pause, time.Minute)
	assert.LessOrEqual(t, pause, 2*time.Minute)
	assert.Greater(t, r.CooldownRemaining(), 50*time.Second)

	// a shorter cooldown never shortens an active one
	r.SetCooldown(time.Millisecond)
	assert.Greater(t, r.CooldownRemaining(), 50*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestRateLimiterUnlimited(t *testing.T) {
	r := NewRateLimiter(0, 1)
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}
	assert.Less(t, time.Since(start), time.Second)
}
