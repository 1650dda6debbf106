package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

func TestNewRegistry_Defaults(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{"safari", "chrome", "arc", "brave", "edge", "vivaldi", "firefox"}, r.List())
	assert.Len(t, r.GetAll(), 7)
	assert.Len(t, r.Browsers(), 7)
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		bundleID string
		wantID   string
		dialect  domain.ScriptDialect
	}{
		{"com.apple.Safari", "safari", domain.DialectSafari},
		{"com.google.Chrome", "chrome", domain.DialectChromium},
		{"COM.GOOGLE.CHROME", "chrome", domain.DialectChromium},
		{"company.thebrowser.Browser", "arc", domain.DialectChromium},
		{"org.mozilla.firefox", "firefox", domain.DialectKeyboard},
	}

	for _, tt := range tests {
		t.Run(tt.bundleID, func(t *testing.T) {
			b, ok := r.Lookup(tt.bundleID)
			require.True(t, ok)
			assert.Equal(t, tt.wantID, b.ID)
			assert.Equal(t, tt.dialect, b.Dialect)
		})
	}
}

func TestRegistry_LookupUnsupported(t *testing.T) {
	r := NewRegistry()

	_, ok := r.Lookup("com.apple.Terminal")
	assert.False(t, ok)

	_, ok = r.Lookup("")
	assert.False(t, ok)
}

func TestFirefoxPolicy_BlindRedirect(t *testing.T) {
	assert.True(t, NewFirefoxPolicy().BlindRedirect())
	assert.False(t, NewSafariPolicy().BlindRedirect())
	assert.False(t, NewChromePolicy().BlindRedirect())
}

func TestNewRegistryWithBrowsers(t *testing.T) {
	r, err := NewRegistryWithBrowsers(domain.Browser{
		ID:        "orion",
		Name:      "Orion",
		BundleIDs: []string{"com.kagi.kagimacOS"},
	})
	require.NoError(t, err)

	b, ok := r.Lookup("com.kagi.kagimacOS")
	require.True(t, ok)
	assert.Equal(t, "orion", b.ID)
	assert.Equal(t, domain.DialectChromium, b.Dialect, "dialect defaults to chromium")
	assert.Len(t, r.List(), 8)
}

func TestNewRegistryWithBrowsers_ReplacesDefault(t *testing.T) {
	r, err := NewRegistryWithBrowsers(domain.Browser{
		ID:        "chrome",
		Name:      "Chrome Dev",
		BundleIDs: []string{"com.google.Chrome.dev"},
	})
	require.NoError(t, err)

	assert.Len(t, r.List(), 7)
	_, ok := r.Lookup("com.google.Chrome")
	assert.False(t, ok)
	_, ok = r.Lookup("com.google.Chrome.dev")
	assert.True(t, ok)
}

func TestNewRegistryWithBrowsers_Invalid(t *testing.T) {
	_, err := NewRegistryWithBrowsers(domain.Browser{Name: "nameless"})
	assert.Error(t, err)
}

func TestNewRegistryWithPolicies(t *testing.T) {
	r := NewRegistryWithPolicies(NewSafariPolicy())

	_, ok := r.Get("safari")
	assert.True(t, ok)
	_, ok = r.Get("chrome")
	assert.False(t, ok)
}
