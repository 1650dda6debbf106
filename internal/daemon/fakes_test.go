package daemon

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// fakeBridge implements domain.AutomationBridge for testing
type fakeBridge struct {
	mu          sync.Mutex
	permission  bool
	app         *domain.ForegroundApp
	url         string
	urlErr      error
	redirectErr error
	redirects   []string
	tabs        []string
}

func newFakeBridge(bundleID, url string) *fakeBridge {
	return &fakeBridge{
		permission: true,
		app:        &domain.ForegroundApp{BundleID: bundleID, Name: "browser", PID: 42},
		url:        url,
	}
}

func (b *fakeBridge) CheckPermission(context.Context, bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.permission
}

func (b *fakeBridge) ForegroundApp(context.Context) (*domain.ForegroundApp, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.app == nil {
		return nil, errors.New("no frontmost app")
	}
	app := *b.app
	return &app, nil
}

func (b *fakeBridge) CurrentURL(context.Context, domain.ForegroundApp, domain.Browser) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.url, b.urlErr
}

func (b *fakeBridge) Redirect(_ context.Context, app domain.ForegroundApp, _ domain.Browser, target string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.redirectErr != nil {
		return b.redirectErr
	}
	b.redirects = append(b.redirects, app.BundleID+" -> "+target)
	return nil
}

func (b *fakeBridge) ListOpenTabURLs(context.Context, []domain.Browser) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tabs, nil
}

func (b *fakeBridge) redirectCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.redirects)
}

// fakeEngine implements DecisionSource for testing
type fakeEngine struct {
	mu       sync.Mutex
	decision domain.BlockingDecision
	paused   bool
}

func (e *fakeEngine) Decision() domain.BlockingDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decision
}

func (e *fakeEngine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// fakeClock is a settable domain.Clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeMetrics records MonitorMetrics calls
type fakeMetrics struct {
	mu         sync.Mutex
	outcomes   []string
	redirects  int
	throttled  int
	errors     []string
	permission bool
}

func (m *fakeMetrics) ObserveTick(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *fakeMetrics) Redirected(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirects++
}

func (m *fakeMetrics) Throttled(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttled++
}

func (m *fakeMetrics) AutomationError(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, op)
}

func (m *fakeMetrics) SetPermission(granted bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.permission = granted
}
