package retry

import (
	"context"
	"time"
)

// Policy configures a bounded retry loop: Tries is the total number of
// attempts (not re-attempts), Backoff is the fixed delay between them.
type Policy struct {
	Tries   int
	Backoff time.Duration
}

// Normalize clamps the policy to sane values.
func (p Policy) Normalize() Policy {
	if p.Tries < 1 {
		p.Tries = 1
	}
	if p.Backoff < 0 {
		p.Backoff = 0
	}
	return p
}

// Permanent wraps an error to signal the loop must stop immediately.
type Permanent struct{ Err error }

func (p Permanent) Error() string { return p.Err.Error() }
func (p Permanent) Unwrap() error { return p.Err }

// Stop marks err as non-retryable.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return Permanent{Err: err}
}

// Do runs fn up to p.Tries times, sleeping p.Backoff between attempts.
// It returns nil on the first success, the context error if the context is
// cancelled while waiting, or the last attempt's error once attempts are
// exhausted. An error wrapped with Stop aborts the loop at once.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.Normalize()

	var lastErr error
	for attempt := 1; attempt <= p.Tries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if perm, ok := lastErr.(Permanent); ok {
			return perm.Err
		}

		if attempt < p.Tries && p.Backoff > 0 {
			timer := time.NewTimer(p.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}
