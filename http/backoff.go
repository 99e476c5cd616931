package http

import (
	"context"
	crand "crypto/rand"
	"errors"
	"math/big"
	"time"
)

const (
	// DefaultBackoffRetries is the helper's retry budget when Backoff.Retries is zero
	DefaultBackoffRetries = 3

	// maxBackoff caps jittered delays
	maxBackoff = 30 * time.Second
)

// Backoff configures Retry. The zero value retries any error 3 times,
// sleeping 1s, 2s, then 4s.
type Backoff struct {
	// Retries is the number of retries after the first attempt. Zero uses 3; negative disables retries.
	Retries int
	// Delay is the first sleep; each following sleep doubles it. Zero uses 1s.
	Delay time.Duration
	// Jitter draws each sleep uniformly from [0, delay) instead of sleeping the full delay.
	Jitter bool
	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep Sleeper
	// ShouldRetry filters retryable errors. Nil retries every error.
	ShouldRetry func(error) bool
}

// DefaultBackoff returns the helper defaults: 3 retries starting at 1s.
func DefaultBackoff() Backoff {
	return Backoff{Retries: DefaultBackoffRetries, Delay: DefaultRetryDelay}
}

func (b Backoff) normalized() Backoff {
	switch {
	case b.Retries == 0:
		b.Retries = DefaultBackoffRetries
	case b.Retries < 0:
		b.Retries = 0
	}
	if b.Delay <= 0 {
		b.Delay = DefaultRetryDelay
	}
	if b.Sleep == nil {
		b.Sleep = SleepContext
	}
	if b.ShouldRetry == nil {
		b.ShouldRetry = func(error) bool { return true }
	}
	return b
}

// delay returns the sleep before retry n (0-based): Delay * 2^n.
func (b Backoff) delay(n int) time.Duration {
	d := BackoffDelay(n, b.Delay)
	if !b.Jitter {
		return d
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	r, err := crand.Int(crand.Reader, big.NewInt(int64(d)))
	if err != nil {
		return d
	}
	return time.Duration(r.Int64())
}

// Retry runs fn until it succeeds, ShouldRetry rejects its error, or the budget is spent.
// A spent budget yields *ExhaustedRetriesError wrapping the last error. A cancelled wait
// returns the last error joined with the context error.
func Retry(ctx context.Context, b Backoff, fn func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, b, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for functions that return a value.
func RetryValue[T any](ctx context.Context, b Backoff, fn func(ctx context.Context) (T, error)) (T, error) {
	b = b.normalized()

	var zero T
	for attempt := 0; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if !b.ShouldRetry(err) {
			return zero, err
		}
		if attempt >= b.Retries {
			if attempt == 0 {
				return zero, err
			}
			return zero, &ExhaustedRetriesError{Attempts: attempt + 1, Last: err}
		}
		if sleepErr := b.Sleep(ctx, b.delay(attempt)); sleepErr != nil {
			return zero, errors.Join(err, sleepErr)
		}
	}
}

// SleepContext waits for d or until ctx is done, whichever comes first.
func SleepContext(ctx context.Context, d time.Duration) error {
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
