package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/TemirB/orders-enrichment/internal/config"
)

type stopError struct{ err error }

func (e stopError) Error() string { return e.err.Error() }
func (e stopError) Unwrap() error { return e.err }

// Stop marks err as permanent: Do returns it without further attempts.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return stopError{err: err}
}

// Do runs fn until it succeeds, the attempts are exhausted, fn returns a Stop
// error or ctx is done. Attempts <= 0 means retry until ctx is done.
// onRetry, if not nil, is called after each failed attempt with the delay before the next one.
func Do(ctx context.Context, retryPolicy config.Retry, fn func() error, onRetry func(attempt int, err error, delay time.Duration)) error {
	d := retryPolicy.Base
	var err error

	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; retryPolicy.Attempts <= 0 || i < retryPolicy.Attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var stop stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		if retryPolicy.Attempts > 0 && i == retryPolicy.Attempts-1 {
			break
		}

		delay := d
		if retryPolicy.JitterFactor > 0 {
			jitter := 1 + retryPolicy.JitterFactor*(2*r.Float64()-1)
			delay = time.Duration(float64(delay) * jitter)
		}

		if retryPolicy.Max > 0 && delay > retryPolicy.Max {
			delay = retryPolicy.Max
		}
		if onRetry != nil {
			onRetry(i+1, err, delay)
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}

		d *= 2
		if retryPolicy.Max > 0 && d > retryPolicy.Max {
			d = retryPolicy.Max
		}
	}
	return err
}
