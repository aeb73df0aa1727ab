// Package retry provides exponential backoff with jitter for operations
// that fail transiently, such as dialing a game server that is restarting.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Config shapes the backoff schedule.
type Config struct {
	// Backoff is the base delay and the lower bound of every delay.
	Backoff time.Duration
	// Jitter is the half-width of the uniform noise added to each delay.
	Jitter time.Duration
	// MaxBackoff caps the exponential growth.
	MaxBackoff time.Duration
	// MaxTries limits attempts; zero means retry forever.
	MaxTries int
}

// Do runs op until it succeeds, the context is cancelled, an error is not
// retryable, or the attempt budget runs out. onFailure runs to completion
// before each backoff sleep, so callers can surface the failure first.
func Do[T any](
	ctx context.Context,
	cfg Config,
	op func(context.Context) (T, error),
	retryable func(error) bool,
	onFailure func(context.Context, error),
) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		if cfg.MaxTries > 0 && attempt+1 >= cfg.MaxTries {
			return zero, err
		}
		if onFailure != nil {
			onFailure(ctx, err)
		}

		select {
		case <-time.After(cfg.delay(attempt)):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// delay computes base*2^attempt plus uniform jitter in [-Jitter, +Jitter],
// capped at MaxBackoff and never below the base delay.
func (c Config) delay(attempt int) time.Duration {
	d := c.Backoff
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= c.MaxBackoff {
			d = c.MaxBackoff
			break
		}
	}
	if c.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(2*c.Jitter) + 1)) - c.Jitter
	}
	if d > c.MaxBackoff {
		d = c.MaxBackoff
	}
	if d < c.Backoff {
		d = c.Backoff
	}
	return d
}
