package dashboard

import (
	"context"
	"time"

	"github.com/couchcryptid/vegwatch-service/internal/backoff"
)

// retryPolicy is an exponential backoff: start at initial, double each retry,
// cap at max.
type retryPolicy struct {
	attempts int
	initial  time.Duration
	max      time.Duration
}

var defaultRetry = retryPolicy{attempts: 3, initial: 200 * time.Millisecond, max: 5 * time.Second}

// do runs fn until it succeeds, the attempts run out, or ctx is done.
// onRetry is called before each retry with the failed attempt's error.
func (p retryPolicy) do(ctx context.Context, fn func(context.Context) error, onRetry func(error)) error {
	wait := p.initial
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt >= p.attempts || ctx.Err() != nil {
			return err
		}
		if onRetry != nil {
			onRetry(err)
		}
		if !backoff.Sleep(ctx, wait) {
			return err
		}
		wait = backoff.Next(wait, p.max)
	}
}
