package query

import (
	"context"
	"errors"
	"time"

	"github.com/desertthunder/ticketscope/internal/shared"
)

// RetryPolicy decides whether and when a failed fetch is tried again.
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
	Max        time.Duration
}

// DefaultRetryPolicy retries three times, waiting 1s, 2s and 4s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Base: time.Second, Max: 30 * time.Second}
}

// NoRetry never retries.
var NoRetry = RetryPolicy{}

// Backoff returns the wait before retry number attempt (zero-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	if p.Max > 0 && d > p.Max {
		return p.Max
	}
	return d
}

type temporary interface {
	Temporary() bool
}

// Retryable reports whether err is worth another attempt.
//
// Errors that know whether they are temporary (API errors) decide for
// themselves, so 4xx responses are final. Canceled requests and argument
// errors are final; anything else is treated as a transport failure.
func (p RetryPolicy) Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var t temporary
	if errors.As(err, &t) {
		return t.Temporary()
	}

	for _, final := range []error{
		shared.ErrNotFound,
		shared.ErrInvalidArgument,
		shared.ErrMissingArgument,
		shared.ErrUnknownEntity,
		shared.ErrInvalidInput,
	} {
		if errors.Is(err, final) {
			return false
		}
	}
	return true
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
