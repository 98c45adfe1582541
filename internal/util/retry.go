package util

import (
	"context"
	"errors"
	"time"
)

// Backoff is the wait between two attempts. The n-th retry waits
// Base*2^(n-1), capped at Max.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// DefaultBackoff suits remote API calls such as the spreadsheet surface.
var DefaultBackoff = Backoff{Base: 500 * time.Millisecond, Max: 8 * time.Second}

func (b Backoff) delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	d := b.Base << attempt
	if b.Max > 0 && (d > b.Max || d <= 0) {
		d = b.Max
	}
	return d
}

// RetryErrWithContext calls fn up to maxTries times until it returns nil error,
// sleeping according to backoff in between. Cancellation ends the loop early.
// If maxTries <= 0, it defaults to 1.
func RetryErrWithContext(ctx context.Context, maxTries int, backoff Backoff, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, backoff, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryWithContext calls fn up to maxTries times until it returns a nil error,
// or until ctx is done. Returns ctx.Err() if the context is canceled,
// otherwise the last error.
func RetryWithContext[T any](ctx context.Context, maxTries int, backoff Backoff, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		var perm *PermanentError
		if errors.As(err, &perm) {
			return zero, perm.Err
		}
		lastErr = err

		if i == maxTries-1 {
			break
		}
		if d := backoff.delay(i); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-ctx.Done():
				t.Stop()
				return zero, ctx.Err()
			case <-t.C:
			}
		}
	}
	return zero, lastErr
}

// PermanentError stops a retry loop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that the retry helpers give up at once.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
