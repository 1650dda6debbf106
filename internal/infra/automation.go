package infra

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// ErrAutomationUnsupported is returned on platforms without AppleScript.
var ErrAutomationUnsupported = errors.New("browser automation is only supported on macOS")

// permissionTTL bounds how often an unprompted permission check hits osascript.
const permissionTTL = 10 * time.Second

const (
	permissionScript = `tell application "System Events" to get name of first application process whose frontmost is true`

	foregroundScript = `tell application "System Events"
	set p to first application process whose frontmost is true
	return (bundle identifier of p as text) & tab & (name of p as text) & tab & ((unix id of p) as text)
end tell`

	listTabsScript = `tell application id "%s"
	set out to {}
	repeat with w in windows
		repeat with t in tabs of w
			set end of out to (URL of t as text)
		end repeat
	end repeat
end tell
set AppleScript's text item delimiters to linefeed
return out as text`

	firefoxURLScript = `tell application "System Events" to tell (first process whose unix id is %d)
	return value of UI element 1 of combo box 1 of toolbar "Navigation" of first group of front window
end tell`

	keyboardRedirectScript = `tell application id "%s" to activate
tell application "System Events"
	keystroke "l" using command down
	keystroke "%s"
	key code 36
end tell`
)

// OSAScriptBridge implements domain.AutomationBridge with osascript.
// Chromium browsers and Safari expose a scripting dictionary; browsers
// without one are driven through System Events UI scripting.
type OSAScriptBridge struct {
	runner CommandRunner
	pm     domain.ProcessManager
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	permission bool
	checkedAt  time.Time
}

// NewAutomationBridge returns the osascript bridge on macOS and an
// always-failing bridge elsewhere.
func NewAutomationBridge(pm domain.ProcessManager, logger *zap.Logger) domain.AutomationBridge {
	if runtime.GOOS != "darwin" {
		return UnsupportedBridge{}
	}
	return NewOSAScriptBridgeWithDeps(&RealCommandRunner{}, pm, logger)
}

// NewOSAScriptBridgeWithDeps creates a bridge with injectable dependencies (for testing)
func NewOSAScriptBridgeWithDeps(runner CommandRunner, pm domain.ProcessManager, logger *zap.Logger) *OSAScriptBridge {
	return &OSAScriptBridge{
		runner: runner,
		pm:     pm,
		logger: logger,
		now:    time.Now,
	}
}

// CheckPermission queries System Events. Without prompt a recent result is
// reused. macOS may still show its consent dialog on the first check.
func (b *OSAScriptBridge) CheckPermission(ctx context.Context, prompt bool) bool {
	b.mu.Lock()
	if !prompt && !b.checkedAt.IsZero() && b.now().Sub(b.checkedAt) < permissionTTL {
		granted := b.permission
		b.mu.Unlock()
		return granted
	}
	b.mu.Unlock()

	_, err := b.osascript(ctx, permissionScript)
	granted := err == nil
	if err != nil {
		b.logDebug("automation permission check failed", zap.Error(err))
	}

	b.mu.Lock()
	b.permission = granted
	b.checkedAt = b.now()
	b.mu.Unlock()
	return granted
}

// ForegroundApp returns the frontmost application process.
func (b *OSAScriptBridge) ForegroundApp(ctx context.Context) (*domain.ForegroundApp, error) {
	out, err := b.osascript(ctx, foregroundScript)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(out, "\t")
	if len(parts) != 3 {
		return nil, fmt.Errorf("unexpected foreground app output %q", out)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(parts[2]))
	if err != nil {
		return nil, fmt.Errorf("invalid foreground pid %q: %w", parts[2], err)
	}

	app := &domain.ForegroundApp{
		BundleID: scriptValue(parts[0]),
		Name:     scriptValue(parts[1]),
		PID:      pid,
	}
	if app.Name == "" && b.pm != nil {
		if name, err := b.pm.NameOf(pid); err == nil {
			app.Name = name
		}
	}
	return app, nil
}

// CurrentURL reads the active tab URL. An unreadable URL is "" without error
// only when the script itself succeeded.
func (b *OSAScriptBridge) CurrentURL(ctx context.Context, app domain.ForegroundApp, browser domain.Browser) (string, error) {
	var script string
	switch browser.Dialect {
	case domain.DialectSafari:
		script = fmt.Sprintf(`tell application id "%s" to get URL of front document`, quote(app.BundleID))
	case domain.DialectKeyboard:
		script = fmt.Sprintf(firefoxURLScript, app.PID)
	default:
		script = fmt.Sprintf(`tell application id "%s" to get URL of active tab of front window`, quote(app.BundleID))
	}

	out, err := b.osascript(ctx, script)
	if err != nil {
		return "", err
	}
	return scriptValue(out), nil
}

// Redirect navigates the active tab to target.
func (b *OSAScriptBridge) Redirect(ctx context.Context, app domain.ForegroundApp, browser domain.Browser, target string) error {
	var script string
	switch browser.Dialect {
	case domain.DialectSafari:
		script = fmt.Sprintf(`tell application id "%s" to set URL of front document to "%s"`, quote(app.BundleID), quote(target))
	case domain.DialectKeyboard:
		script = fmt.Sprintf(keyboardRedirectScript, quote(app.BundleID), quote(target))
	default:
		script = fmt.Sprintf(`tell application id "%s" to set URL of active tab of front window to "%s"`, quote(app.BundleID), quote(target))
	}

	_, err := b.osascript(ctx, script)
	return err
}

// ListOpenTabURLs lists tabs of running scriptable browsers. Browsers that
// are not running are skipped because addressing them would launch them.
func (b *OSAScriptBridge) ListOpenTabURLs(ctx context.Context, browsers []domain.Browser) ([]string, error) {
	targets := browsers
	if b.pm != nil {
		targets = RunningBrowsers(b.pm, browsers)
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, browser := range targets {
		if browser.Dialect == domain.DialectKeyboard || len(browser.BundleIDs) == 0 {
			continue
		}

		out, err := b.osascript(ctx, fmt.Sprintf(listTabsScript, quote(browser.BundleIDs[0])))
		if err != nil {
			b.logDebug("failed to list tabs", zap.String("browser", browser.ID), zap.Error(err))
			continue
		}

		for _, line := range strings.Split(out, "\n") {
			u := scriptValue(line)
			if u == "" {
				continue
			}
			if _, dup := seen[u]; dup {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}
	return urls, nil
}

func (b *OSAScriptBridge) osascript(ctx context.Context, script string) (string, error) {
	out, err := b.runner.Output(ctx, "osascript", "-e", script)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (b *OSAScriptBridge) logDebug(msg string, fields ...zap.Field) {
	if b.logger != nil {
		b.logger.Debug(msg, fields...)
	}
}

// quote escapes s for an AppleScript string literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// scriptValue maps AppleScript's "missing value" to "".
func scriptValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "missing value" {
		return ""
	}
	return s
}

// UnsupportedBridge implements domain.AutomationBridge on platforms without
// browser automation. Enforcement degrades to doing nothing.
type UnsupportedBridge struct{}

func (UnsupportedBridge) CheckPermission(context.Context, bool) bool { return false }

func (UnsupportedBridge) ForegroundApp(context.Context) (*domain.ForegroundApp, error) {
	return nil, ErrAutomationUnsupported
}

func (UnsupportedBridge) CurrentURL(context.Context, domain.ForegroundApp, domain.Browser) (string, error) {
	return "", ErrAutomationUnsupported
}

func (UnsupportedBridge) Redirect(context.Context, domain.ForegroundApp, domain.Browser, string) error {
	return ErrAutomationUnsupported
}

func (UnsupportedBridge) ListOpenTabURLs(context.Context, []domain.Browser) ([]string, error) {
	return nil, ErrAutomationUnsupported
}

// Ensure both bridges implement domain.AutomationBridge.
var (
	_ domain.AutomationBridge = (*OSAScriptBridge)(nil)
	_ domain.AutomationBridge = UnsupportedBridge{}
)
