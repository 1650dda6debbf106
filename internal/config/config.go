// Package config loads webmon configuration from file, environment and defaults.
package config

import (
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Config is the complete webmon configuration.
type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	Log      LogConfig      `mapstructure:"log"`
	Server   ServerConfig   `mapstructure:"server"`
	Control  ControlConfig  `mapstructure:"control"`
	Monitor  MonitorConfig  `mapstructure:"monitor"`
	Policy   PolicyConfig   `mapstructure:"policy"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Browsers BrowsersConfig `mapstructure:"browsers"`
	Unlock   UnlockConfig   `mapstructure:"unlock"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"` // empty = <data_dir>/webmon.log
}

// ServerConfig is the block page server.
type ServerConfig struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// ControlConfig is the loopback control API.
type ControlConfig struct {
	Addr string `mapstructure:"addr" validate:"required,hostname_port"`
}

type MonitorConfig struct {
	Interval          time.Duration `mapstructure:"interval" validate:"min=100ms"`
	RedirectThrottle  time.Duration `mapstructure:"redirect_throttle" validate:"min=0s"`
	AutomationTimeout time.Duration `mapstructure:"automation_timeout" validate:"min=100ms"`
}

type PolicyConfig struct {
	Interval time.Duration `mapstructure:"interval" validate:"min=1s"`
}

// CalendarConfig configures the Microsoft Graph meeting feed. Whether
// meetings count is a runtime setting ('webmon calendar enable').
type CalendarConfig struct {
	TenantID     string        `mapstructure:"tenant_id" validate:"required"`
	ClientID     string        `mapstructure:"client_id"` // empty = no calendar feed
	SyncInterval time.Duration `mapstructure:"sync_interval" validate:"min=30s"`
	Lookahead    time.Duration `mapstructure:"lookahead" validate:"min=1m"`
}

type BrowsersConfig struct {
	Extra []BrowserEntry `mapstructure:"extra" validate:"dive"`
}

// BrowserEntry adds a browser to the built-in registry, or replaces the
// built-in entry with the same id.
type BrowserEntry struct {
	ID            string   `mapstructure:"id" validate:"required"`
	Name          string   `mapstructure:"name"`
	BundleIDs     []string `mapstructure:"bundle_ids" validate:"min=1,dive,required"`
	ProcessNames  []string `mapstructure:"process_names"`
	Dialect       string   `mapstructure:"dialect" validate:"omitempty,oneof=chromium safari keyboard"`
	BlindRedirect bool     `mapstructure:"blind_redirect"`
}

// UnlockConfig holds the emergency unlock challenge.
type UnlockConfig struct {
	PassphraseHash string `mapstructure:"passphrase_hash" validate:"omitempty,startswith=$argon2id$"`
}

// HasFeed reports whether a Graph application is configured.
func (c CalendarConfig) HasFeed() bool {
	return c.ClientID != ""
}

// ToBrowser converts the entry to a domain.Browser.
func (b BrowserEntry) ToBrowser() domain.Browser {
	name := b.Name
	if name == "" {
		name = b.ID
	}
	return domain.Browser{
		ID:            b.ID,
		Name:          name,
		BundleIDs:     b.BundleIDs,
		ProcessNames:  b.ProcessNames,
		Dialect:       domain.ScriptDialect(b.Dialect),
		BlindRedirect: b.BlindRedirect,
	}
}

// ExtraBrowsers returns the configured additional browsers.
func (c *Config) ExtraBrowsers() []domain.Browser {
	out := make([]domain.Browser, 0, len(c.Browsers.Extra))
	for _, b := range c.Browsers.Extra {
		out = append(out, b.ToBrowser())
	}
	return out
}
