// Package login drives the Kite Connect portal login in a browser session and
// extracts the request token from the final redirect.
//
// The flow is linear:
//
//	PageLoaded -> CredentialsSubmitted -> PinPromptVisible -> PinSubmitted -> TokenExtracted
//
// and every step may end the attempt in one of the failure states. Whatever the
// outcome, the browser session is closed before Run returns.
package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
	"github.com/xkilldash9x/kite-autologin/internal/config"
	"github.com/xkilldash9x/kite-autologin/internal/credentials"
	"github.com/xkilldash9x/kite-autologin/internal/kite"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CSS selectors of the portal's login form.
const (
	selBody        = "body"
	selUserID      = "input#userid"
	selPassword    = "input#password"
	selPin         = "input#pin"
	selSubmit      = "button[type=submit]"
	selErrorBanner = ".error"
)

// Machine performs a single login attempt with one browser session.
type Machine struct {
	driver  browser.Driver
	guard   *sessionGuard
	logger  *zap.Logger
	console io.Writer
	cfg     config.LoginConfig
	kiteCfg config.KiteConfig

	creds       credentials.Credentials
	credsLoaded bool
	credsReason error
	loginURL    string

	state State
	ran   bool
}

// Option customizes a Machine.
type Option func(*Machine)

// WithLoginURL uses u instead of deriving the login URL from the API key.
func WithLoginURL(u string) Option {
	return func(m *Machine) { m.loginURL = u }
}

// WithConsole sets where the success message is printed. Defaults to os.Stdout.
func WithConsole(w io.Writer) Option {
	return func(m *Machine) { m.console = w }
}

// WithLogger sets the parent logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// New launches the browser session and prepares a login attempt.
//
// Absent credentials do not make New fail: the attempt proceeds and fails at the
// first step that needs them. New only fails when the browser cannot be started.
func New(ctx context.Context, launcher browser.Launcher, creds credentials.LoadResult, cfg config.Interface, opts ...Option) (*Machine, error) {
	m := &Machine{
		logger:   zap.NewNop(),
		console:  os.Stdout,
		cfg:      cfg.Login(),
		kiteCfg:  cfg.Kite(),
		loginURL: cfg.Login().LoginURL,
		state:    StateInitialized,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.Named("login")

	m.creds, m.credsLoaded = creds.Credentials()
	if !m.credsLoaded {
		m.credsReason = creds.Reason()
		m.logger.Warn("Starting login without credentials.", zap.Error(m.credsReason))
	}

	driver, err := launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not open browser session: %w", err)
	}
	m.driver = driver
	m.logger = m.logger.With(zap.String("session_id", driver.ID()))
	m.guard = newSessionGuard(driver, m.cfg.CloseSettle, m.logger)
	return m, nil
}

// State returns the state the machine is in.
func (m *Machine) State() State { return m.state }

// CredentialsLoaded reports whether the machine was given a Loaded credentials result.
func (m *Machine) CredentialsLoaded() bool { return m.credsLoaded }

// Close releases the browser session without running the flow. It is safe to call
// at any time and any number of times.
func (m *Machine) Close(ctx context.Context) {
	m.guard.release(ctx)
}

// Run performs the login and returns the request token. The session is closed before
// Run returns on every path. A machine makes one attempt only; further calls return
// ErrAlreadyRun.
func (m *Machine) Run(ctx context.Context) (string, error) {
	if m.ran {
		return "", ErrAlreadyRun
	}
	m.ran = true

	defer func() { m.creds = credentials.Credentials{} }()
	defer m.guard.release(ctx)

	steps := []func(context.Context) error{
		m.loadPage,
		m.submitCredentials,
		m.submitPin,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return "", err
		}
	}
	return m.extractToken(ctx)
}

// loadPage opens the login URL and rejects the API error page an invalid key produces.
func (m *Machine) loadPage(ctx context.Context) error {
	loginURL, err := m.resolveLoginURL()
	if err != nil {
		if m.credsReason != nil {
			err = fmt.Errorf("%w (%v)", err, m.credsReason)
		}
		return m.fail(StateFailed, "", fmt.Errorf("resolving login url: %w", err))
	}
	if err := m.driver.Navigate(ctx, loginURL); err != nil {
		return m.fail(StateFailed, "", err)
	}

	body, err := m.readText(ctx, selBody, m.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	if msg, ok := invalidAPIKeyMessage(body); ok {
		m.logger.Warn("Portal rejected the API key.", zap.String("message", msg))
		return m.fail(StateInvalidAPIKey, msg, ErrInvalidAPIKey)
	}

	m.enter(StatePageLoaded)
	return nil
}

func (m *Machine) submitCredentials(ctx context.Context) error {
	if err := m.typeInto(ctx, selUserID, m.creds.Username); err != nil {
		return err
	}
	if err := m.typeInto(ctx, selPassword, m.creds.Password); err != nil {
		return err
	}
	if err := m.click(ctx, selSubmit); err != nil {
		return err
	}
	m.enter(StateCredentialsSubmitted)

	msg, found, err := m.hasErrorBanner(ctx)
	if err != nil {
		return m.fail(StateFailed, "", err)
	}
	if found {
		m.logger.Warn("Portal rejected the credentials.", zap.String("message", msg))
		return m.fail(StateCredentialError, msg, ErrCredential)
	}
	return nil
}

// submitPin enters the PIN. A wrong PIN leaves the URL unchanged, so the banner is
// only consulted when the page did not advance.
func (m *Machine) submitPin(ctx context.Context) error {
	if err := m.typeInto(ctx, selPin, m.creds.PIN); err != nil {
		return err
	}
	m.enter(StatePinPromptVisible)

	before, err := m.driver.CurrentURL(ctx)
	if err != nil {
		return m.fail(StateFailed, "", err)
	}
	if err := m.click(ctx, selSubmit); err != nil {
		return err
	}
	m.enter(StatePinSubmitted)

	advanced, err := waitUntil(ctx, m.cfg.AdvanceTimeout, m.cfg.PollInterval, func(ctx context.Context) bool {
		after, err := m.driver.CurrentURL(ctx)
		if err != nil {
			m.logger.Debug("Could not read url while waiting for redirect.", zap.Error(err))
			return false
		}
		return urlAdvanced(before, after)
	})
	if err != nil {
		return m.fail(StateFailed, "", err)
	}
	if advanced {
		return nil
	}

	msg, found, err := m.hasErrorBanner(ctx)
	if err != nil {
		return m.fail(StateFailed, "", err)
	}
	if found {
		m.logger.Warn("Portal rejected the PIN.", zap.String("message", msg))
		return m.fail(StatePinError, msg, ErrPin)
	}
	m.logger.Debug("URL unchanged after PIN submission and no error shown; waiting for the token.")
	return nil
}

// extractToken waits for the redirect carrying request_token and returns its first value.
func (m *Machine) extractToken(ctx context.Context) (string, error) {
	var token, finalURL, lastURL string
	found, err := waitUntil(ctx, m.cfg.TokenTimeout, m.cfg.PollInterval, func(ctx context.Context) bool {
		current, err := m.driver.CurrentURL(ctx)
		if err != nil {
			return false
		}
		lastURL = current
		t, err := kite.RequestToken(current)
		if err != nil {
			return false
		}
		token, finalURL = t, current
		return true
	})
	if err != nil {
		return "", m.fail(StateFailed, "", err)
	}
	if !found {
		m.logger.Warn("No request token in the final url.", zap.String("url", lastURL))
		return "", m.fail(StateFailed, "", fmt.Errorf("%w (last url: %s)", ErrTokenNotFound, lastURL))
	}

	m.logger.Info("Logged in successfully.", zap.String("url", finalURL))
	fmt.Fprintln(m.console, "logged in successfully", finalURL)
	m.logger.Info("Request token extracted.", zap.String("request_token", token))

	m.enter(StateTokenExtracted)
	return token, nil
}

// hasErrorBanner looks for the portal's inline error banner with the short probe
// timeout. A banner that never appears means no error.
func (m *Machine) hasErrorBanner(ctx context.Context) (string, bool, error) {
	el, err := m.driver.Find(ctx, selErrorBanner, m.cfg.ErrorProbeTimeout)
	if errors.Is(err, browser.ErrElementTimeout) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", false, err
	}
	text = strings.TrimSpace(text)
	return text, text != "", nil
}

// urlAdvanced reports whether the page moved away from before.
func urlAdvanced(before, after string) bool {
	return after != "" && after != before
}

// invalidAPIKeyMessage recognizes the JSON error document the portal serves instead of
// the login form and returns its message.
func invalidAPIKeyMessage(body string) (string, bool) {
	body = strings.TrimSpace(body)
	if !strings.HasPrefix(body, "{") || !strings.HasSuffix(body, "}") {
		return "", false
	}
	var payload struct {
		Status    string `json:"status"`
		Message   string `json:"message"`
		ErrorType string `json:"error_type"`
	}
	if err := json.UnmarshalFromString(body, &payload); err != nil || payload.Message == "" {
		return body, true
	}
	return payload.Message, true
}

func (m *Machine) resolveLoginURL() (string, error) {
	if m.loginURL != "" {
		return m.loginURL, nil
	}
	u, err := kite.NewClient(m.creds.APIKey, m.kiteCfg).LoginURL()
	if err != nil {
		return "", err
	}
	m.loginURL = u
	return u, nil
}

// find locates a required element; a timeout ends the attempt in StateElementTimeout.
func (m *Machine) find(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	el, err := m.driver.Find(ctx, selector, timeout)
	if err == nil {
		return el, nil
	}
	if errors.Is(err, browser.ErrElementTimeout) {
		m.logger.Warn("Required element did not appear.",
			zap.String("selector", selector), zap.Duration("timeout", timeout), zap.Stringer("state", m.state))
		return nil, m.fail(StateElementTimeout, "", err)
	}
	return nil, m.fail(StateFailed, "", err)
}

func (m *Machine) readText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	el, err := m.find(ctx, selector, timeout)
	if err != nil {
		return "", err
	}
	text, err := el.Text(ctx)
	if err != nil {
		return "", m.fail(StateFailed, "", err)
	}
	return text, nil
}

func (m *Machine) typeInto(ctx context.Context, selector, keys string) error {
	el, err := m.find(ctx, selector, m.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, keys); err != nil {
		return m.fail(StateFailed, "", err)
	}
	return nil
}

func (m *Machine) click(ctx context.Context, selector string) error {
	el, err := m.find(ctx, selector, m.cfg.ElementTimeout)
	if err != nil {
		return err
	}
	if err := el.Click(ctx); err != nil {
		return m.fail(StateFailed, "", err)
	}
	return nil
}

func (m *Machine) enter(next State) {
	m.logger.Debug("State transition.", zap.Stringer("from", m.state), zap.Stringer("to", next))
	m.state = next
}

func (m *Machine) fail(terminal State, msg string, err error) error {
	m.enter(terminal)
	return &Error{State: terminal, Message: msg, Err: err}
}
