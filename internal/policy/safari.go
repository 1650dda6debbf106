package policy

import (
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// SafariPolicy implements BrowserPolicy for Safari.
type SafariPolicy struct{}

// NewSafariPolicy creates a new Safari policy.
func NewSafariPolicy() *SafariPolicy {
	return &SafariPolicy{}
}

func (p *SafariPolicy) ID() string {
	return "safari"
}

func (p *SafariPolicy) Name() string {
	return "Safari"
}

// BundleIDs includes Technology Preview, which exposes the same dictionary.
func (p *SafariPolicy) BundleIDs() []string {
	return []string{"com.apple.Safari", "com.apple.SafariTechnologyPreview"}
}

func (p *SafariPolicy) ProcessPatterns() []string {
	return []string{"Safari"}
}

func (p *SafariPolicy) Dialect() domain.ScriptDialect {
	return domain.DialectSafari
}

func (p *SafariPolicy) BlindRedirect() bool {
	return false
}

// Ensure SafariPolicy implements BrowserPolicy.
var _ BrowserPolicy = (*SafariPolicy)(nil)
