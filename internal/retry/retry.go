package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	// ErrExhausted is matched by the error returned when every attempt failed.
	ErrExhausted = errors.New("all attempts exhausted")

	// ErrInvalidAttempts is returned when fewer than one attempt is requested.
	ErrInvalidAttempts = errors.New("attempts must be at least 1")

	// errNotConfirmed marks an attempt that completed without confirming success.
	errNotConfirmed = errors.New("attempt did not confirm success")
)

// ExhaustedError reports how many attempts ran and the last failure cause.
type ExhaustedError struct {
	// Attempts is the number of attempts made.
	Attempts int

	// Last is the cause of the final failed attempt.
	Last error
}

// Error implements error.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrExhausted, e.Attempts, e.Last)
}

// Is makes errors.Is(err, ErrExhausted) succeed.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted
}

// Unwrap returns the last failure cause.
func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// Func is one attempt. attempt counts from 1.
// Returning (false, nil) means the attempt completed but did not succeed;
// a non-nil error aborts only this attempt.
type Func func(ctx context.Context, attempt int) (bool, error)

// Option configures Do.
type Option func(*options)

type options struct {
	delay time.Duration
}

// WithDelay waits d between attempts. The default is no delay.
func WithDelay(d time.Duration) Option {
	return func(o *options) {
		o.delay = d
	}
}

// Do runs fn up to attempts times and returns (true, nil) on the first
// success. After the last failed attempt it returns false and an error
// matching ErrExhausted. Context cancellation between attempts returns the
// context error.
func Do(ctx context.Context, attempts int, fn Func, opts ...Option) (bool, error) {
	if attempts < 1 {
		return false, ErrInvalidAttempts
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var policy backoff.BackOff = &backoff.ZeroBackOff{}
	if o.delay > 0 {
		policy = backoff.NewConstantBackOff(o.delay)
	}
	policy = backoff.WithContext(backoff.WithMaxRetries(policy, uint64(attempts-1)), ctx) //nolint:gosec // attempts >= 1

	made := 0
	var last error
	err := backoff.Retry(func() error {
		made++
		ok, err := fn(ctx, made)
		switch {
		case err != nil:
			last = err
			return err
		case !ok:
			last = errNotConfirmed
			return errNotConfirmed
		default:
			return nil
		}
	}, policy)
	if err == nil {
		return true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}
	return false, &ExhaustedError{Attempts: made, Last: last}
}
