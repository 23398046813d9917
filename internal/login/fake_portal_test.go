package login

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
)

// fakePortal is an in-memory Driver that behaves like the portal's login pages.
// Stage 0 is the credentials form, stage 1 the PIN form, stage 2 the final redirect.
type fakePortal struct {
	// Scenario.
	jsonBody         string // served instead of the form when set
	credentialBanner string
	pinBanner        string
	pinAdvances      bool
	redirectDelay    time.Duration
	finalURL         string
	hideUsername     bool
	hidePin          bool
	navigateErr      error
	closeErr         error

	mu          sync.Mutex
	loginURL    string
	stage       int
	banner      string
	redirectAt  time.Time
	typed       map[string]string
	navigations []string
	closeCalls  int
	closed      bool
}

var _ browser.Driver = (*fakePortal)(nil)

const pinPageURL = "https://kite.test/connect/twofa"

func (p *fakePortal) ID() string { return "fake-session" }

func (p *fakePortal) Navigate(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrSessionClosed
	}
	p.navigations = append(p.navigations, url)
	if p.navigateErr != nil {
		return p.navigateErr
	}
	p.loginURL = url
	return nil
}

func (p *fakePortal) CurrentURL(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", browser.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if p.stage == 1 && !p.redirectAt.IsZero() && !time.Now().Before(p.redirectAt) {
		p.stage = 2
	}
	switch p.stage {
	case 0:
		return p.loginURL, nil
	case 1:
		return pinPageURL, nil
	default:
		return p.finalURL, nil
	}
}

func (p *fakePortal) Find(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, browser.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.present(selector) {
		return &fakeElement{portal: p, selector: selector}, nil
	}
	return nil, fmt.Errorf("%w: %q not present after %s", browser.ErrElementTimeout, selector, timeout)
}

// present must be called with mu held.
func (p *fakePortal) present(selector string) bool {
	formPage := p.jsonBody == ""
	switch selector {
	case selBody:
		return true
	case selUserID:
		return formPage && p.stage == 0 && !p.hideUsername
	case selPassword:
		return formPage && p.stage == 0
	case selPin:
		return formPage && p.stage == 1 && !p.hidePin
	case selSubmit:
		return formPage && p.stage < 2
	case selErrorBanner:
		return p.banner != ""
	}
	return false
}

func (p *fakePortal) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeCalls++
	if p.closed {
		return fmt.Errorf("session closed twice")
	}
	p.closed = true
	return p.closeErr
}

func (p *fakePortal) submit() {
	switch p.stage {
	case 0:
		if p.credentialBanner != "" {
			p.banner = p.credentialBanner
			return
		}
		p.stage = 1
	case 1:
		if p.pinBanner != "" {
			p.banner = p.pinBanner
		}
		if p.pinAdvances {
			p.redirectAt = time.Now().Add(p.redirectDelay)
		}
	}
}

func (p *fakePortal) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeCalls
}

func (p *fakePortal) typedInto(selector string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.typed[selector]
}

type fakeElement struct {
	portal   *fakePortal
	selector string
}

func (e *fakeElement) Text(context.Context) (string, error) {
	p := e.portal
	p.mu.Lock()
	defer p.mu.Unlock()
	switch e.selector {
	case selBody:
		if p.jsonBody != "" {
			return p.jsonBody, nil
		}
		return "Login to Kite\nUser ID\nPassword\nLogin", nil
	case selErrorBanner:
		return p.banner, nil
	}
	return "", nil
}

func (e *fakeElement) SendKeys(_ context.Context, keys string) error {
	p := e.portal
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrSessionClosed
	}
	if p.typed == nil {
		p.typed = make(map[string]string)
	}
	p.typed[e.selector] += keys
	return nil
}

func (e *fakeElement) Click(context.Context) error {
	p := e.portal
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return browser.ErrSessionClosed
	}
	if e.selector == selSubmit {
		p.submit()
	}
	return nil
}
