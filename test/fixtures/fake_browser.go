// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"sync"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// FakeBrowser is an in-memory automation bridge with one frontmost app
// showing one URL. A redirect navigates the fake tab to the target.
type FakeBrowser struct {
	mu         sync.Mutex
	permission bool
	app        *domain.ForegroundApp
	url        string
	tabs       []string
	redirects  []string
}

// NewFakeBrowser creates a fake with automation granted and nothing in front.
func NewFakeBrowser() *FakeBrowser {
	return &FakeBrowser{permission: true}
}

// Show brings bundleID to the front with url in its active tab.
func (f *FakeBrowser) Show(bundleID, url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.app = &domain.ForegroundApp{BundleID: bundleID, Name: bundleID, PID: 4242}
	f.url = url
}

// SetPermission grants or revokes automation.
func (f *FakeBrowser) SetPermission(granted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.permission = granted
}

// SetTabs sets what ListOpenTabURLs returns.
func (f *FakeBrowser) SetTabs(urls ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tabs = append([]string(nil), urls...)
}

// URL returns what the active tab shows now.
func (f *FakeBrowser) URL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Redirects returns the URLs that were redirected away from.
func (f *FakeBrowser) Redirects() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.redirects...)
}

func (f *FakeBrowser) CheckPermission(context.Context, bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permission
}

func (f *FakeBrowser) ForegroundApp(context.Context) (*domain.ForegroundApp, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.app == nil {
		return nil, nil
	}
	app := *f.app
	return &app, nil
}

func (f *FakeBrowser) CurrentURL(context.Context, domain.ForegroundApp, domain.Browser) (string, error) {
	return f.URL(), nil
}

func (f *FakeBrowser) Redirect(_ context.Context, _ domain.ForegroundApp, _ domain.Browser, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redirects = append(f.redirects, f.url)
	f.url = target
	return nil
}

func (f *FakeBrowser) ListOpenTabURLs(context.Context, []domain.Browser) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tabs...), nil
}

var _ domain.AutomationBridge = (*FakeBrowser)(nil)
