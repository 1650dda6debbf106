package policy

import (
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// ChromiumPolicy implements BrowserPolicy for Chromium-based browsers.
// They all share the "active tab of front window" scripting dictionary.
type ChromiumPolicy struct {
	id        string
	name      string
	bundleIDs []string
	processes []string
}

// NewChromePolicy creates the Google Chrome policy.
func NewChromePolicy() *ChromiumPolicy {
	return &ChromiumPolicy{
		id:        "chrome",
		name:      "Google Chrome",
		bundleIDs: []string{"com.google.Chrome", "com.google.Chrome.beta", "com.google.Chrome.canary"},
		processes: []string{"Google Chrome"},
	}
}

// NewBravePolicy creates the Brave policy.
func NewBravePolicy() *ChromiumPolicy {
	return &ChromiumPolicy{
		id:        "brave",
		name:      "Brave Browser",
		bundleIDs: []string{"com.brave.Browser"},
		processes: []string{"Brave Browser"},
	}
}

// NewEdgePolicy creates the Microsoft Edge policy.
func NewEdgePolicy() *ChromiumPolicy {
	return &ChromiumPolicy{
		id:        "edge",
		name:      "Microsoft Edge",
		bundleIDs: []string{"com.microsoft.edgemac"},
		processes: []string{"Microsoft Edge"},
	}
}

// NewArcPolicy creates the Arc policy.
func NewArcPolicy() *ChromiumPolicy {
	return &ChromiumPolicy{
		id:        "arc",
		name:      "Arc",
		bundleIDs: []string{"company.thebrowser.Browser"},
		processes: []string{"Arc"},
	}
}

// NewVivaldiPolicy creates the Vivaldi policy.
func NewVivaldiPolicy() *ChromiumPolicy {
	return &ChromiumPolicy{
		id:        "vivaldi",
		name:      "Vivaldi",
		bundleIDs: []string{"com.vivaldi.Vivaldi"},
		processes: []string{"Vivaldi"},
	}
}

func (p *ChromiumPolicy) ID() string {
	return p.id
}

func (p *ChromiumPolicy) Name() string {
	return p.name
}

func (p *ChromiumPolicy) BundleIDs() []string {
	return p.bundleIDs
}

func (p *ChromiumPolicy) ProcessPatterns() []string {
	return p.processes
}

func (p *ChromiumPolicy) Dialect() domain.ScriptDialect {
	return domain.DialectChromium
}

func (p *ChromiumPolicy) BlindRedirect() bool {
	return false
}

// Ensure ChromiumPolicy implements BrowserPolicy.
var _ BrowserPolicy = (*ChromiumPolicy)(nil)
