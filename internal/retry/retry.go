// Package retry runs vendor calls under a fixed-backoff attempt budget.
package retry

import (
	"context"
	"errors"
	"time"

	"visionbench/internal/domain"
)

// Policy retries errors classified as domain.ErrTransient.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Sleep waits between attempts; nil means a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Default is two attempts with a ten second pause, as used by the runner.
func Default() Policy {
	return Policy{MaxAttempts: 2, Backoff: 10 * time.Second}
}

// Do runs fn until it succeeds, fails with a non-transient error, or the
// attempt budget is spent. It returns the number of attempts made.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = ctx.Err(); err != nil {
			return attempt - 1, err
		}
		err = fn(ctx)
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, domain.ErrTransient) || attempt == attempts {
			return attempt, err
		}
		if serr := sleep(ctx, p.Backoff); serr != nil {
			return attempt, serr
		}
	}
	return attempts, err
}

// Sleep blocks for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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
