package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const (
	configName = "webmon"
	envPrefix  = "WEBMON"
)

// SetDefaults registers every key with its default so that environment
// overrides work without a config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.webmon")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", domain.BlockPagePort)
	v.SetDefault("control.addr", "127.0.0.1:10001")
	v.SetDefault("monitor.interval", "1s")
	v.SetDefault("monitor.redirect_throttle", "3s")
	v.SetDefault("monitor.automation_timeout", "2s")
	v.SetDefault("policy.interval", "60s")
	v.SetDefault("calendar.tenant_id", "common")
	v.SetDefault("calendar.client_id", "")
	v.SetDefault("calendar.sync_interval", "5m")
	v.SetDefault("calendar.lookahead", "24h")
	v.SetDefault("browsers.extra", []any{})
	v.SetDefault("unlock.passphrase_hash", "")
}

// NewViper returns a viper instance reading configFile, or webmon.yaml from
// the standard locations when configFile is empty. WEBMON_* environment
// variables override file values (WEBMON_SERVER_PORT -> server.port).
func NewViper(configFile string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		v.SetConfigFile(found)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// findConfigFile searches the standard locations for webmon.yaml or .yml.
// An explicit extension keeps viper from matching the webmon binary itself.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	return findConfigFileInPaths([]string{
		".",
		filepath.Join(home, ".webmon"),
		"/etc/webmon",
	})
}

func findConfigFileInPaths(paths []string) string {
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, configName+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// Load reads and validates the configuration.
func Load(configFile string) (*Config, error) {
	return LoadFrom(NewViper(configFile))
}

// LoadFrom reads and validates the configuration from v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file: defaults and environment only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
