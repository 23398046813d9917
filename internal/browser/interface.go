package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrElementTimeout is returned when a selector does not match any element
	// before the bounded wait expires.
	ErrElementTimeout = errors.New("element wait timed out")
	// ErrSessionClosed is returned by any operation on a session that was already closed.
	ErrSessionClosed = errors.New("browser session is closed")
)

// Element is a handle to a DOM node located on the current page.
type Element interface {
	// Text returns the rendered text of the element.
	Text(ctx context.Context) (string, error)
	SendKeys(ctx context.Context, keys string) error
	Click(ctx context.Context) error
}

// Driver is the browser automation capability used by the login flow.
// A Driver owns exactly one browser session.
type Driver interface {
	// ID identifies the session in logs.
	ID() string
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	// Find blocks until an element matching the CSS selector is present or the
	// timeout expires, in which case the error matches ErrElementTimeout.
	Find(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Close terminates the session. Calling it more than once is safe.
	Close(ctx context.Context) error
}

// Launcher starts new browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Driver, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Driver, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Driver, error) { return f(ctx) }
