// Package daemon implements the browser monitor and the daemon that owns all timers.
package daemon

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
)

// MonitorConfig holds browser monitor configuration.
type MonitorConfig struct {
	Interval          time.Duration // Poll interval (default 1s)
	RedirectThrottle  time.Duration // Minimum gap between redirects per app (default 3s)
	AutomationTimeout time.Duration // Budget for automation calls in one tick
	BlockPageURL      string        // Redirect target
}

// DefaultMonitorConfig returns default monitor configuration.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Interval:          time.Second,
		RedirectThrottle:  3 * time.Second,
		AutomationTimeout: 2 * time.Second,
		BlockPageURL:      fmt.Sprintf("http://localhost:%d", domain.BlockPagePort),
	}
}

// DecisionSource is the read side of the policy engine.
type DecisionSource interface {
	Decision() domain.BlockingDecision
	IsPaused() bool
}

// BrowserLookup resolves a bundle identifier to a supported browser.
// Implementation: policy.Registry.
type BrowserLookup interface {
	Lookup(bundleID string) (domain.Browser, bool)
}

// MonitorMetrics receives monitor events. Implementation: metrics.Metrics.
type MonitorMetrics interface {
	ObserveTick(outcome string, d time.Duration)
	Redirected(browserID string)
	Throttled(browserID string)
	AutomationError(op string)
	SetPermission(granted bool)
}

// Outcome is what a single monitor tick did.
type Outcome string

const (
	OutcomeBusy         Outcome = "busy"          // previous tick still running
	OutcomeNoPermission Outcome = "no_permission" // automation not granted
	OutcomeIdle         Outcome = "idle"          // not blocking, or paused
	OutcomeIgnored      Outcome = "ignored"       // foreground app is not a supported browser
	OutcomeUnknownURL   Outcome = "unknown_url"
	OutcomeBlockPage    Outcome = "block_page"
	OutcomeAllowed      Outcome = "allowed"
	OutcomeThrottled    Outcome = "throttled"
	OutcomeRedirected   Outcome = "redirected"
	OutcomeFailed       Outcome = "failed"
)

// Monitor is the enforcement poll loop.
type Monitor struct {
	config    MonitorConfig
	engine    DecisionSource
	bridge    domain.AutomationBridge
	browsers  BrowserLookup
	matcher   *matcher.Matcher
	scheduler domain.Scheduler
	clock     domain.Clock
	metrics   MonitorMetrics
	logger    *zap.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel domain.CancelFunc

	// tickMu serializes ticks; lastRedirect is only touched under it.
	tickMu       sync.Mutex
	lastRedirect map[string]time.Time

	permission atomic.Bool
}

// NewMonitor creates a browser monitor. metrics may be nil.
func NewMonitor(
	config MonitorConfig,
	engine DecisionSource,
	bridge domain.AutomationBridge,
	browsers BrowserLookup,
	m *matcher.Matcher,
	scheduler domain.Scheduler,
	clock domain.Clock,
	metrics MonitorMetrics,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		config:       config,
		engine:       engine,
		bridge:       bridge,
		browsers:     browsers,
		matcher:      m,
		scheduler:    scheduler,
		clock:        clock,
		metrics:      metrics,
		logger:       logger,
		ctx:          context.Background(),
		lastRedirect: make(map[string]time.Time),
	}
}

// Start installs the poll timer, replacing any running one.
// ctx bounds the automation calls made by ticks.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
	}
	m.ctx = ctx
	m.cancel = m.scheduler.Repeat(m.config.Interval, func() {
		m.Tick(m.tickContext())
	})
	m.logger.Info("browser monitor started", zap.Duration("interval", m.config.Interval))
}

// Stop removes the poll timer. A tick already running completes.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.logger.Info("browser monitor stopped")
	}
}

// Running reports whether the poll timer is installed.
func (m *Monitor) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

// HasPermission reports the automation permission seen by the last tick.
func (m *Monitor) HasPermission() bool {
	return m.permission.Load()
}

func (m *Monitor) tickContext() context.Context {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ctx
}

// Tick runs one poll. Overlapping ticks are skipped rather than queued.
func (m *Monitor) Tick(ctx context.Context) Outcome {
	if !m.tickMu.TryLock() {
		return OutcomeBusy
	}
	defer m.tickMu.Unlock()

	start := time.Now()
	outcome := m.tick(ctx)
	if m.metrics != nil {
		m.metrics.ObserveTick(string(outcome), time.Since(start))
	}
	return outcome
}

func (m *Monitor) tick(parent context.Context) Outcome {
	ctx, cancel := context.WithTimeout(parent, m.config.AutomationTimeout)
	defer cancel()

	m.updatePermission(m.bridge.CheckPermission(ctx, false))
	if !m.permission.Load() {
		return OutcomeNoPermission
	}

	decision := m.engine.Decision()
	if !decision.IsBlocking || m.engine.IsPaused() {
		return OutcomeIdle
	}

	app, err := m.bridge.ForegroundApp(ctx)
	if err != nil || app == nil {
		m.automationError("foreground_app", err)
		return OutcomeIgnored
	}
	browser, ok := m.browsers.Lookup(app.BundleID)
	if !ok {
		return OutcomeIgnored
	}

	url, err := m.bridge.CurrentURL(ctx, *app, browser)
	if err != nil {
		m.automationError("current_url", err)
	}
	if url == "" {
		if !browser.BlindRedirect {
			return OutcomeUnknownURL
		}
		return m.redirect(ctx, *app, browser, "")
	}

	if m.matcher.IsBlockPage(url) {
		return OutcomeBlockPage
	}
	if m.matcher.IsAllowed(url, decision.AllowedRules) {
		return OutcomeAllowed
	}
	return m.redirect(ctx, *app, browser, url)
}

// redirect sends app to the block page unless it was redirected less than
// RedirectThrottle ago. The timestamp is taken before the attempt so a
// failing redirect is throttled too.
func (m *Monitor) redirect(ctx context.Context, app domain.ForegroundApp, browser domain.Browser, url string) Outcome {
	now := m.clock.Now()
	if last, ok := m.lastRedirect[app.BundleID]; ok && now.Sub(last) < m.config.RedirectThrottle {
		m.logger.Debug("redirect throttled",
			zap.String("browser", browser.ID),
			zap.Duration("since_last", now.Sub(last)))
		if m.metrics != nil {
			m.metrics.Throttled(browser.ID)
		}
		return OutcomeThrottled
	}
	m.lastRedirect[app.BundleID] = now

	if err := m.bridge.Redirect(ctx, app, browser, m.config.BlockPageURL); err != nil {
		m.automationError("redirect", err)
		return OutcomeFailed
	}

	m.logger.Info("redirected disallowed tab",
		zap.String("browser", browser.ID),
		zap.String("url", url),
		zap.Bool("blind", url == ""))
	if m.metrics != nil {
		m.metrics.Redirected(browser.ID)
	}
	return OutcomeRedirected
}

func (m *Monitor) updatePermission(granted bool) {
	if m.permission.Swap(granted) != granted {
		m.logger.Info("automation permission changed", zap.Bool("granted", granted))
	}
	if m.metrics != nil {
		m.metrics.SetPermission(granted)
	}
}

func (m *Monitor) automationError(op string, err error) {
	if err == nil {
		return
	}
	m.logger.Debug("automation call failed", zap.String("op", op), zap.Error(err))
	if m.metrics != nil {
		m.metrics.AutomationError(op)
	}
}
