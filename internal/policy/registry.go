package policy

import (
	"fmt"
	"strings"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Registry holds all supported browser policies.
// Registration order is preserved so lookups and listings are deterministic.
type Registry struct {
	policies map[string]BrowserPolicy
	order    []string
}

// NewRegistry creates a registry with all default browsers.
func NewRegistry() *Registry {
	return NewRegistryWithPolicies(
		NewSafariPolicy(),
		NewChromePolicy(),
		NewArcPolicy(),
		NewBravePolicy(),
		NewEdgePolicy(),
		NewVivaldiPolicy(),
		NewFirefoxPolicy(),
	)
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...BrowserPolicy) *Registry {
	r := &Registry{
		policies: make(map[string]BrowserPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// NewRegistryWithBrowsers creates the default registry plus configured extras.
// An extra with the ID of a default browser replaces it.
func NewRegistryWithBrowsers(extra ...domain.Browser) (*Registry, error) {
	r := NewRegistry()
	for _, b := range extra {
		if b.ID == "" || len(b.BundleIDs) == 0 {
			return nil, fmt.Errorf("browser %q: id and bundle_ids are required", b.Name)
		}
		r.Register(FromBrowser(b))
	}
	return r, nil
}

// Register adds a policy to the registry.
func (r *Registry) Register(p BrowserPolicy) {
	if _, exists := r.policies[p.ID()]; !exists {
		r.order = append(r.order, p.ID())
	}
	r.policies[p.ID()] = p
}

// Get returns a policy by ID.
func (r *Registry) Get(id string) (BrowserPolicy, bool) {
	p, ok := r.policies[id]
	return p, ok
}

// Lookup returns the browser owning bundleID, if it is supported.
func (r *Registry) Lookup(bundleID string) (domain.Browser, bool) {
	if bundleID == "" {
		return domain.Browser{}, false
	}
	for _, id := range r.order {
		p := r.policies[id]
		for _, b := range p.BundleIDs() {
			if strings.EqualFold(b, bundleID) {
				return ToBrowser(p), true
			}
		}
	}
	return domain.Browser{}, false
}

// GetAll returns all registered policies.
func (r *Registry) GetAll() []BrowserPolicy {
	result := make([]BrowserPolicy, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.policies[id])
	}
	return result
}

// Browsers returns all registered policies as domain entities.
func (r *Registry) Browsers() []domain.Browser {
	result := make([]domain.Browser, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, ToBrowser(r.policies[id]))
	}
	return result
}

// List returns all browser IDs.
func (r *Registry) List() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
