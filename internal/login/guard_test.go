package login

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/kite-autologin/internal/browser"
)

type mockDriver struct {
	mock.Mock
}

func (m *mockDriver) ID() string { return "mock-session" }

func (m *mockDriver) Navigate(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

func (m *mockDriver) CurrentURL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockDriver) Find(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	args := m.Called(ctx, selector, timeout)
	el, _ := args.Get(0).(browser.Element)
	return el, args.Error(1)
}

func (m *mockDriver) Close(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestSessionGuardClosesOnce(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Close", mock.Anything).Return(nil).Once()

	g := newSessionGuard(drv, 0, zap.NewNop())
	g.release(context.Background())
	g.release(context.Background())
	g.release(context.Background())

	drv.AssertExpectations(t)
	drv.AssertNumberOfCalls(t, "Close", 1)
}

func TestSessionGuardLogsCloseFailure(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	drv := new(mockDriver)
	drv.On("Close", mock.Anything).Return(errors.New("target crashed")).Once()

	g := newSessionGuard(drv, 0, zap.New(core))
	assert.NotPanics(t, func() { g.release(context.Background()) })

	entries := logs.FilterMessage("Browser session did not close cleanly.").All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "target crashed", entries[0].ContextMap()["error"])
	}
}

func TestSessionGuardClosesWithCanceledContext(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Close", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return ctx.Err() == nil && hasDeadline
	})).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	g := newSessionGuard(drv, time.Hour, zap.NewNop())
	g.release(ctx)

	drv.AssertExpectations(t)
	assert.Less(t, time.Since(start), time.Second, "settle delay must end with the caller's context")
}

func TestSessionGuardSettles(t *testing.T) {
	drv := new(mockDriver)
	drv.On("Close", mock.Anything).Return(nil)

	start := time.Now()
	newSessionGuard(drv, 30*time.Millisecond, zap.NewNop()).release(context.Background())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
