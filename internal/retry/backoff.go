// Package retry retries short operations, such as reaching a daemon
// socket that is still coming up, with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"shellkeep/config"
	skerrors "shellkeep/internal/errors"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks an error that retrying cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so [Backoff.Do] returns it without another
// attempt.  Permanent(nil) is nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err was wrapped with [Permanent].
func IsPermanent(err error) bool {
	var pe *PermanentError
	return skerrors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff retries with exponentially growing delays.
type Backoff struct {
	// InitialDelay precedes the second attempt (default
	// config.DefaultDialBackoff).
	InitialDelay time.Duration
	// MaxDelay caps a single wait (default one second).
	MaxDelay time.Duration
	// Multiplier grows the delay after each wait (default 2).
	Multiplier float64
	// MaxAttempts counts the first try.  Zero retries until ctx ends.
	MaxAttempts int
	// Jitter spreads each wait by up to ±25%.
	Jitter bool
	// OnRetry, when set, observes each failure that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DialBackoff is the schedule clients use to reach the daemon socket.
func DialBackoff() *Backoff {
	return &Backoff{
		InitialDelay: config.DefaultDialBackoff,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  config.DefaultDialAttempts,
		Jitter:       true,
	}
}

// Do calls fn until it returns nil, returns a [Permanent] error, runs
// out of attempts, or ctx ends.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.InitialDelay
	if delay <= 0 {
		delay = config.DefaultDialBackoff
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Second
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return skerrors.Unwrap(err)
		}
		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("gave up after %d attempts: %w", attempt, err)
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// addJitter moves d by a random amount within ±25%, never below 1ms.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	return time.Duration(math.Max(float64(d)+delta, float64(time.Millisecond)))
}
