// internal/browser/context_utils.go
package browser

import "context"

// CombineContext returns a context derived from primary (so it keeps the chromedp
// values that identify the browser target) that is also canceled when secondary is done.
// Operational deadlines travel in secondary.
func CombineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)

	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()

	return combined, cancel
}
