// internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/kite-autologin/internal/config"
)

const defaultStartTimeout = 30 * time.Second

// Manager launches Chrome processes, one per session.
type Manager struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ Launcher = (*Manager)(nil)

// NewManager creates a browser manager for the given configuration.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{cfg: cfg, logger: logger.Named("browser_manager")}
}

// Launch starts a new browser process and returns a session bound to its first tab.
// The browser lives until the returned session is closed; ctx only bounds startup.
func (m *Manager) Launch(ctx context.Context) (Driver, error) {
	id := uuid.New().String()
	log := m.logger.With(zap.String("session_id", id))
	sugar := log.Sugar()

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), m.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	startTimeout := m.cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultStartTimeout
	}

	// The first Run allocates the browser and ties its lifetime to tabCtx, so it must
	// not carry a deadline of its own.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	var err error
	select {
	case err = <-started:
	case <-time.After(startTimeout):
		err = fmt.Errorf("browser did not start within %s", startTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	log.Info("Browser session started.", zap.Bool("headless", m.cfg.Headless))
	return &Session{
		id:          id,
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		logger:      log.Named("session"),
	}, nil
}

// allocatorOptions translates the browser configuration into chromedp exec options.
func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
	}
	if m.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if m.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if m.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.cfg.ExecPath))
	}
	if m.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(m.cfg.UserAgent))
	}

	// Extra flags come as "name" or "name=value", with or without leading dashes.
	for _, arg := range m.cfg.Args {
		key, value, found := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if key == "" {
			continue
		}
		if found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(key, true))
		}
	}
	return opts
}
