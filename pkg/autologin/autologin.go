// Package autologin logs in to the Kite Connect portal with a headless browser and
// returns the request token issued for the configured API key.
//
//	cfg := config.NewDefaultConfig()
//	token, err := autologin.RequestToken(ctx, cfg)
//
// Credentials are read from cfg's credentials file. The browser session is always
// closed before RequestToken returns.
package autologin

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
	"github.com/xkilldash9x/kite-autologin/internal/config"
	"github.com/xkilldash9x/kite-autologin/internal/credentials"
	"github.com/xkilldash9x/kite-autologin/internal/login"
	"github.com/xkilldash9x/kite-autologin/internal/observability"
)

type options struct {
	launcher browser.Launcher
	logger   *zap.Logger
	console  io.Writer
}

// Option customizes a RequestToken call.
type Option func(*options)

// WithLauncher replaces the Chrome launcher built from the browser configuration.
func WithLauncher(l browser.Launcher) Option {
	return func(o *options) { o.launcher = l }
}

// WithLogger sets the logger. Defaults to the global logger, initialized from
// cfg's logger settings when nothing has initialized it yet.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConsole sets where the success line is printed. Defaults to os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(o *options) { o.console = w }
}

// RequestToken runs one login attempt and returns the request token. Failures
// reported by the portal are *login.Error values matching the login package's
// sentinel errors.
func RequestToken(ctx context.Context, cfg config.Interface, opts ...Option) (string, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		observability.InitializeLogger(cfg.Logger())
		o.logger = observability.GetLogger()
	}
	if err := cfg.Login().Validate(); err != nil {
		return "", fmt.Errorf("invalid login configuration: %w", err)
	}
	if o.launcher == nil {
		o.launcher = browser.NewManager(cfg.Browser(), o.logger)
	}

	var loaderOpts []credentials.Option
	if svc := cfg.Login().KeyringService; svc != "" {
		loaderOpts = append(loaderOpts, credentials.WithKeyring(svc))
	}
	creds := credentials.NewLoader(o.logger, loaderOpts...).Load(cfg.Login().CredentialsFile)

	machineOpts := []login.Option{login.WithLogger(o.logger)}
	if o.console != nil {
		machineOpts = append(machineOpts, login.WithConsole(o.console))
	}
	m, err := login.New(ctx, o.launcher, creds, cfg, machineOpts...)
	if err != nil {
		return "", err
	}
	return m.Run(ctx)
}
