package retry

import (
	"context"
	"log/slog"
	"time"
)

// Controller retries an operation with linear backoff. The zero value is not
// usable; construct with New.
type Controller struct {
	attempts int
	base     time.Duration

	// sleep waits for d or until ctx is cancelled. Overridable in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Controller that runs an operation up to attempts times with
// base scaling the wait between them. attempts below 1 is treated as 1.
func New(attempts int, base time.Duration) *Controller {
	if attempts < 1 {
		attempts = 1
	}
	return &Controller{
		attempts: attempts,
		base:     base,
		sleep:    sleepCtx,
	}
}

// Attempts returns the configured attempt ceiling.
func (c *Controller) Attempts() int { return c.attempts }

// Do runs op until it succeeds or the attempt ceiling is reached. After the
// n-th failure it waits base*n, then tries again. It returns nil on the
// first success, the last operation error once attempts are exhausted, and
// the context error if ctx is cancelled between or during waits.
func (c *Controller) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == c.attempts {
			break
		}

		wait := time.Duration(attempt) * c.base
		slog.Debug("retry: attempt failed, backing off",
			"attempt", attempt, "of", c.attempts, "wait", wait, "err", lastErr)
		if err := c.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return lastErr
}

// sleepCtx waits for d, returning early with the context error when ctx is
// cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
