package login

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
)

// closeTimeout bounds a graceful browser shutdown.
const closeTimeout = 10 * time.Second

// sessionGuard closes the browser session exactly once, then waits a short settle
// delay so the browser process can release its resources.
type sessionGuard struct {
	driver browser.Driver
	settle time.Duration
	logger *zap.Logger
	once   sync.Once
}

func newSessionGuard(driver browser.Driver, settle time.Duration, logger *zap.Logger) *sessionGuard {
	return &sessionGuard{driver: driver, settle: settle, logger: logger}
}

// release closes the session. Close failures are logged, not returned; repeated calls are no-ops.
func (g *sessionGuard) release(ctx context.Context) {
	g.once.Do(func() {
		// Shutdown must proceed even when the caller's context is already canceled.
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), closeTimeout)
		defer cancel()

		if err := g.driver.Close(closeCtx); err != nil {
			g.logger.Warn("Browser session did not close cleanly.", zap.Error(err))
		} else {
			g.logger.Debug("Browser session closed.")
		}
		sleepCtx(ctx, g.settle)
	})
}
