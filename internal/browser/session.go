package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Session is a Driver backed by a single Chrome tab controlled through chromedp.
type Session struct {
	id     string
	ctx    context.Context // chromedp tab context; carries the CDP target.
	cancel context.CancelFunc
	// allocCancel stops the browser process.
	allocCancel context.CancelFunc
	logger      *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

var _ Driver = (*Session)(nil)

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// run executes actions against the tab, bounded by the operational ctx.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	runCtx, cancel := CombineContext(s.ctx, ctx)
	defer cancel()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		// Report the operational context's error, which is what callers check against.
		return ctx.Err()
	}
	return err
}

// Navigate loads url in the tab and waits for the load event.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))
	if err := s.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the URL of the document currently loaded in the tab.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("could not read current url: %w", err)
	}
	return location, nil
}

// Find waits up to timeout for the first node matching selector.
func (s *Session) Find(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := s.run(waitCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	node, err := findResult(selector, timeout, nodes, err, ctx.Err())
	if err != nil {
		return nil, err
	}
	return &element{session: s, node: node, selector: selector}, nil
}

// findResult maps the outcome of a node query to the first node or an error.
// Running out of time is ErrElementTimeout unless the caller's context ended first.
func findResult(selector string, timeout time.Duration, nodes []*cdp.Node, err, callerErr error) (*cdp.Node, error) {
	switch {
	case err == nil && len(nodes) > 0:
		return nodes[0], nil
	case err == nil:
		return nil, fmt.Errorf("%w: %q matched no nodes", ErrElementTimeout, selector)
	case errors.Is(err, context.DeadlineExceeded) && callerErr == nil:
		return nil, fmt.Errorf("%w: %q not present after %s", ErrElementTimeout, selector, timeout)
	default:
		return nil, fmt.Errorf("locating %q: %w", selector, err)
	}
}

// Close cancels the tab and stops the browser process. Only the first call does any work;
// later calls return the first call's result.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.logger.Debug("Closing browser session.")

		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(s.ctx) }()

		select {
		case s.closeErr = <-done:
		case <-ctx.Done():
			s.closeErr = fmt.Errorf("graceful browser shutdown interrupted: %w", ctx.Err())
		}
		s.cancel()
		s.allocCancel()
	})
	return s.closeErr
}

// element addresses a node by its CDP node ID.
type element struct {
	session  *Session
	node     *cdp.Node
	selector string
}

func (e *element) ids() []cdp.NodeID {
	return []cdp.NodeID{e.node.NodeID}
}

func (e *element) Text(ctx context.Context) (string, error) {
	var text string
	if err := e.session.run(ctx, chromedp.Text(e.ids(), &text, chromedp.ByNodeID)); err != nil {
		return "", fmt.Errorf("reading text of %q: %w", e.selector, err)
	}
	return text, nil
}

func (e *element) SendKeys(ctx context.Context, keys string) error {
	if err := e.session.run(ctx, chromedp.SendKeys(e.ids(), keys, chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("typing into %q: %w", e.selector, err)
	}
	return nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.session.run(ctx, chromedp.Click(e.ids(), chromedp.ByNodeID)); err != nil {
		return fmt.Errorf("clicking %q: %w", e.selector, err)
	}
	return nil
}
