// Package retry implements retries with jittered exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

var (
	// ErrInvalidPolicyParam indicates that one or more Policy parameters are
	// invalid (e.g., fall outside accepted intervals).
	ErrInvalidPolicyParam = errors.New("invalid policy param")
	// ErrAborted indicates that the work function provided to Do returned an
	// error marked with Permanent.
	ErrAborted = errors.New("aborted")
	// ErrExhausted indicates that the work function provided to Do exhausted
	// the provided attempt budget without succeeding.
	ErrExhausted = errors.New("too many attempts")
)

// Policy represents an abstract retry policy, which can be used to execute a
// retryable work function.
type Policy interface {
	// Do invokes fn up to n times (i.e., the attempt budget), stopping early
	// if ctx is done.
	Do(ctx context.Context, fn WorkFn, n int) error
}

// WorkFn represents the retryable work provided to a Policy for execution
// (i.e., passed to Do). A nil error completes the work; an error wrapped with
// Permanent stops it without further attempts; any other error is retried.
type WorkFn func(ctx context.Context) error

type permanentError struct {
	err error
}

func (pe *permanentError) Error() string {
	return pe.err.Error()
}

func (pe *permanentError) Unwrap() error {
	return pe.err
}

// Permanent marks err as non-retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Backoff is a Policy implementing jittered exponential backoff. Multiple
// goroutines may use a given Backoff instance concurrently.
type Backoff struct {
	// Base is the initial delay between attempts.
	Base time.Duration
	// Growth is the multiplicative growth factor used to increase the delay on
	// successive attempts, and must be greater than or equal to 1.
	Growth float64
	// Jitter is the fractional amplitude of the random jitter applied to the
	// delay each time Do sleeps prior to the next attempt, and must be in the
	// interval [0, 1].
	Jitter float64
	// OnRetry, if set, is invoked with each retryable error before sleeping.
	OnRetry func(attempt int, err error)
	sleep   func(context.Context, time.Duration) error // overidden in tests
}

func (b *Backoff) validate(n int) error {
	if b.Growth < 1.0 {
		return fmt.Errorf("delay growth factor is less than 1: %w", ErrInvalidPolicyParam)
	}
	if b.Jitter < 0.0 {
		return fmt.Errorf("delay jitter amplitude is negative: %w", ErrInvalidPolicyParam)
	}
	if b.Jitter > 1.0 {
		return fmt.Errorf("delay jitter amplitude is greater than 1: %w", ErrInvalidPolicyParam)
	}
	if n < 1 {
		return fmt.Errorf("attempt budget is less than 1: %w", ErrInvalidPolicyParam)
	}
	return nil
}

// scale scales the duration d by f, truncated to integer nanoseconds.
func scale(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d.Nanoseconds())*f) * time.Nanosecond
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do invokes the provided WorkFn up to n times according to the configured
// backoff policy. Errors returned after a failed attempt wrap the latest error
// from fn.
func (b Backoff) Do(ctx context.Context, fn WorkFn, n int) error {
	if err := b.validate(n); err != nil {
		return err
	}
	sleep := b.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	var err error
	d := b.Base
	for i := 1; i <= n; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var pe *permanentError
		if errors.As(err, &pe) {
			return fmt.Errorf("%w: %w", ErrAborted, pe.err)
		}
		if i < n {
			if b.OnRetry != nil {
				b.OnRetry(i, err)
			}
			// Note: Jitter is actually over the interval [1-J, 1+J).
			if serr := sleep(ctx, scale(d, 1.0+b.Jitter*(2*rand.Float64()-1.0))); serr != nil {
				return fmt.Errorf("interrupted after %d attempts (latest error: %v): %w", i, err, serr)
			}
			d = scale(d, b.Growth)
		}
	}
	return fmt.Errorf("%w (%d): %w", ErrExhausted, n, err)
}
