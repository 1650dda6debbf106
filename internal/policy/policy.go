// Package policy implements the Strategy pattern for browser-specific automation rules.
// Each browser family (Chromium, Safari, Firefox) has its own policy defining
// how it is recognized and driven.
package policy

import (
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// BrowserPolicy defines the strategy interface for a supported browser.
type BrowserPolicy interface {
	// ID returns unique identifier (e.g., "chrome", "safari").
	ID() string

	// Name returns human-readable name for display.
	Name() string

	// BundleIDs returns the application identifiers the foreground app is matched against.
	// Matched case-insensitively.
	BundleIDs() []string

	// ProcessPatterns returns process names used to tell whether the browser runs.
	ProcessPatterns() []string

	// Dialect returns the automation dialect used to read and set URLs.
	Dialect() domain.ScriptDialect

	// BlindRedirect reports whether a redirect is attempted when the URL is unreadable.
	BlindRedirect() bool
}

// ToBrowser converts a BrowserPolicy to a domain.Browser entity.
func ToBrowser(bp BrowserPolicy) domain.Browser {
	return domain.Browser{
		ID:            bp.ID(),
		Name:          bp.Name(),
		BundleIDs:     bp.BundleIDs(),
		ProcessNames:  bp.ProcessPatterns(),
		Dialect:       bp.Dialect(),
		BlindRedirect: bp.BlindRedirect(),
	}
}

// staticPolicy adapts a configured domain.Browser to BrowserPolicy.
type staticPolicy struct {
	b domain.Browser
}

// FromBrowser wraps a browser entry from configuration.
func FromBrowser(b domain.Browser) BrowserPolicy {
	if b.Dialect == "" {
		b.Dialect = domain.DialectChromium
	}
	return &staticPolicy{b: b}
}

func (p *staticPolicy) ID() string                    { return p.b.ID }
func (p *staticPolicy) Name() string                  { return p.b.Name }
func (p *staticPolicy) BundleIDs() []string           { return p.b.BundleIDs }
func (p *staticPolicy) ProcessPatterns() []string     { return p.b.ProcessNames }
func (p *staticPolicy) Dialect() domain.ScriptDialect { return p.b.Dialect }
func (p *staticPolicy) BlindRedirect() bool           { return p.b.BlindRedirect }

// Ensure staticPolicy implements BrowserPolicy.
var _ BrowserPolicy = (*staticPolicy)(nil)
