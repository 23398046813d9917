package login

import (
	"context"
	"time"
)

// waitUntil polls cond every interval until it returns true or timeout expires.
// A timeout is reported as (false, nil); only cancellation of ctx itself is an error.
func waitUntil(ctx context.Context, timeout, interval time.Duration, cond func(context.Context) bool) (bool, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if cond(waitCtx) {
			return true, nil
		}
		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

// sleepCtx pauses for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
