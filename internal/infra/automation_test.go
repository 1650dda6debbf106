package infra

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// fakeRunner answers osascript calls by script substring
type fakeRunner struct {
	responses map[string]string
	failures  map[string]error
	scripts   []string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		responses: make(map[string]string),
		failures:  make(map[string]error),
	}
}

func (r *fakeRunner) Run(ctx context.Context, name string, args ...string) error {
	_, err := r.Output(ctx, name, args...)
	return err
}

func (r *fakeRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	script := strings.Join(args, " ")
	r.scripts = append(r.scripts, script)
	for needle, err := range r.failures {
		if strings.Contains(script, needle) {
			return nil, err
		}
	}
	for needle, out := range r.responses {
		if strings.Contains(script, needle) {
			return []byte(out), nil
		}
	}
	return []byte(""), nil
}

var (
	chromeBrowser  = domain.Browser{ID: "chrome", BundleIDs: []string{"com.google.Chrome"}, ProcessNames: []string{"Google Chrome"}, Dialect: domain.DialectChromium}
	safariBrowser  = domain.Browser{ID: "safari", BundleIDs: []string{"com.apple.Safari"}, ProcessNames: []string{"Safari"}, Dialect: domain.DialectSafari}
	firefoxBrowser = domain.Browser{ID: "firefox", BundleIDs: []string{"org.mozilla.firefox"}, ProcessNames: []string{"firefox"}, Dialect: domain.DialectKeyboard, BlindRedirect: true}
)

func TestOSAScriptBridge_ForegroundApp(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["frontmost is true"] = "com.google.Chrome\tGoogle Chrome\t4242\n"
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())

	app, err := b.ForegroundApp(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com.google.Chrome", app.BundleID)
	assert.Equal(t, "Google Chrome", app.Name)
	assert.Equal(t, 4242, app.PID)
}

func TestOSAScriptBridge_ForegroundAppMissingValues(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["frontmost is true"] = "missing value\tmissing value\t77"
	pm := &namingProcessManager{names: map[int]string{77: "helper"}}
	b := NewOSAScriptBridgeWithDeps(runner, pm, zap.NewNop())

	app, err := b.ForegroundApp(context.Background())
	require.NoError(t, err)
	assert.Empty(t, app.BundleID)
	assert.Equal(t, "helper", app.Name, "process name falls back to gopsutil")
}

func TestOSAScriptBridge_ForegroundAppGarbage(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["frontmost is true"] = "no tabs here"
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())

	_, err := b.ForegroundApp(context.Background())
	assert.Error(t, err)
}

func TestOSAScriptBridge_CurrentURLDialects(t *testing.T) {
	tests := []struct {
		name    string
		browser domain.Browser
		app     domain.ForegroundApp
		needle  string
	}{
		{"chromium", chromeBrowser, domain.ForegroundApp{BundleID: "com.google.Chrome"}, `application id "com.google.Chrome" to get URL of active tab of front window`},
		{"safari", safariBrowser, domain.ForegroundApp{BundleID: "com.apple.Safari"}, `application id "com.apple.Safari" to get URL of front document`},
		{"keyboard", firefoxBrowser, domain.ForegroundApp{BundleID: "org.mozilla.firefox", PID: 99}, `unix id is 99`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newFakeRunner()
			runner.responses[tt.needle] = "https://example.com/page\n"
			b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())

			url, err := b.CurrentURL(context.Background(), tt.app, tt.browser)
			require.NoError(t, err)
			assert.Equal(t, "https://example.com/page", url)
		})
	}
}

func TestOSAScriptBridge_CurrentURLUnreadable(t *testing.T) {
	runner := newFakeRunner()
	runner.responses["front document"] = "missing value"
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())

	url, err := b.CurrentURL(context.Background(), domain.ForegroundApp{BundleID: "com.apple.Safari"}, safariBrowser)
	require.NoError(t, err)
	assert.Empty(t, url)

	runner.failures["front document"] = errors.New("execution error: -1743")
	_, err = b.CurrentURL(context.Background(), domain.ForegroundApp{BundleID: "com.apple.Safari"}, safariBrowser)
	assert.Error(t, err)
}

func TestOSAScriptBridge_Redirect(t *testing.T) {
	runner := newFakeRunner()
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, b.Redirect(ctx, domain.ForegroundApp{BundleID: "com.google.Chrome"}, chromeBrowser, "http://localhost:10000"))
	require.NoError(t, b.Redirect(ctx, domain.ForegroundApp{BundleID: "com.apple.Safari"}, safariBrowser, "http://localhost:10000"))
	require.NoError(t, b.Redirect(ctx, domain.ForegroundApp{BundleID: "org.mozilla.firefox"}, firefoxBrowser, "http://localhost:10000"))

	require.Len(t, runner.scripts, 3)
	assert.Contains(t, runner.scripts[0], `set URL of active tab of front window to "http://localhost:10000"`)
	assert.Contains(t, runner.scripts[1], `set URL of front document to "http://localhost:10000"`)
	assert.Contains(t, runner.scripts[2], `keystroke "l" using command down`)
	assert.Contains(t, runner.scripts[2], `keystroke "http://localhost:10000"`)
}

func TestOSAScriptBridge_RedirectEscapesTarget(t *testing.T) {
	runner := newFakeRunner()
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())

	require.NoError(t, b.Redirect(context.Background(), domain.ForegroundApp{BundleID: "com.google.Chrome"}, chromeBrowser, `http://x/"\`))
	assert.Contains(t, runner.scripts[0], `to "http://x/\"\\"`)
}

func TestOSAScriptBridge_ListOpenTabURLs(t *testing.T) {
	runner := newFakeRunner()
	runner.responses[`application id "com.google.Chrome"`] = "https://a.com\nhttps://b.com\nmissing value\n"
	runner.responses[`application id "com.apple.Safari"`] = "https://b.com\nhttps://c.com"
	pm := &stubProcessManager{running: map[string]bool{"Google Chrome": true, "Safari": true, "firefox": true}}
	b := NewOSAScriptBridgeWithDeps(runner, pm, zap.NewNop())

	urls, err := b.ListOpenTabURLs(context.Background(), []domain.Browser{chromeBrowser, safariBrowser, firefoxBrowser})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com", "https://b.com", "https://c.com"}, urls)
	assert.Len(t, runner.scripts, 2, "keyboard-only browsers are not scripted")
}

func TestOSAScriptBridge_ListOpenTabURLsSkipsClosedBrowsers(t *testing.T) {
	runner := newFakeRunner()
	pm := &stubProcessManager{running: map[string]bool{}}
	b := NewOSAScriptBridgeWithDeps(runner, pm, zap.NewNop())

	urls, err := b.ListOpenTabURLs(context.Background(), []domain.Browser{chromeBrowser, safariBrowser})
	require.NoError(t, err)
	assert.Empty(t, urls)
	assert.Empty(t, runner.scripts, "closed browsers must not be launched")
}

func TestOSAScriptBridge_CheckPermissionCaches(t *testing.T) {
	runner := newFakeRunner()
	b := NewOSAScriptBridgeWithDeps(runner, nil, zap.NewNop())
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, b.CheckPermission(ctx, false))
	assert.True(t, b.CheckPermission(ctx, false))
	assert.Len(t, runner.scripts, 1, "second check served from cache")

	runner.failures["System Events"] = errors.New("not authorized to send Apple events")
	assert.True(t, b.CheckPermission(ctx, false), "still cached")
	assert.False(t, b.CheckPermission(ctx, true), "prompt bypasses the cache")

	delete(runner.failures, "System Events")
	now = now.Add(permissionTTL)
	assert.True(t, b.CheckPermission(ctx, false))
}

func TestUnsupportedBridge(t *testing.T) {
	var b domain.AutomationBridge = UnsupportedBridge{}
	ctx := context.Background()

	assert.False(t, b.CheckPermission(ctx, true))
	_, err := b.ForegroundApp(ctx)
	assert.ErrorIs(t, err, ErrAutomationUnsupported)
	_, err = b.CurrentURL(ctx, domain.ForegroundApp{}, chromeBrowser)
	assert.ErrorIs(t, err, ErrAutomationUnsupported)
	assert.ErrorIs(t, b.Redirect(ctx, domain.ForegroundApp{}, chromeBrowser, "x"), ErrAutomationUnsupported)
	_, err = b.ListOpenTabURLs(ctx, nil)
	assert.ErrorIs(t, err, ErrAutomationUnsupported)
}

// namingProcessManager resolves pid names from a table
type namingProcessManager struct {
	stubProcessManager
	names map[int]string
}

func (n *namingProcessManager) NameOf(pid int) (string, error) {
	if name, ok := n.names[pid]; ok {
		return name, nil
	}
	return "", errors.New("no such process")
}
