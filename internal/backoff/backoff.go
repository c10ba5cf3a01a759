// Package backoff holds the exponential backoff helpers shared by the refresh
// loop and the persistence retries.
package backoff

import (
	"context"
	"time"
)

// Next doubles current, capped at maxBackoff.
func Next(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

// Sleep waits for d or until ctx is done. It reports whether the caller
// should carry on, which is false once ctx is done, even for d <= 0.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
