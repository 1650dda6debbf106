package policy

import (
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// FirefoxPolicy implements BrowserPolicy for Firefox.
// Firefox has no scripting dictionary; its URL is read from the accessibility
// tree, which is empty in private and some popup windows.
type FirefoxPolicy struct{}

// NewFirefoxPolicy creates a new Firefox policy.
func NewFirefoxPolicy() *FirefoxPolicy {
	return &FirefoxPolicy{}
}

func (p *FirefoxPolicy) ID() string {
	return "firefox"
}

func (p *FirefoxPolicy) Name() string {
	return "Firefox"
}

func (p *FirefoxPolicy) BundleIDs() []string {
	return []string{"org.mozilla.firefox", "org.mozilla.firefoxdeveloperedition", "org.mozilla.nightly"}
}

func (p *FirefoxPolicy) ProcessPatterns() []string {
	return []string{"firefox"}
}

func (p *FirefoxPolicy) Dialect() domain.ScriptDialect {
	return domain.DialectKeyboard
}

// BlindRedirect is on: a window that hides its URL is redirected anyway.
func (p *FirefoxPolicy) BlindRedirect() bool {
	return true
}

// Ensure FirefoxPolicy implements BrowserPolicy.
var _ BrowserPolicy = (*FirefoxPolicy)(nil)
