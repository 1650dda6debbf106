// Package main is the CLI entry point for webmon.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/web_mon/internal/config"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "webmon",
	Short: "Browser focus monitor - keeps you on allow-listed sites",
	Long: `webmon enforces focus mode in your browsers. While focus mode is on,
any tab showing a site outside the active allow-list is redirected to a
local block page. Focus mode follows your schedules, Pomodoro sessions and
calendar meetings, or can be toggled by hand.

Run 'webmon start' to launch the daemon in the background.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configFile string
	jsonOutput bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default: webmon.yaml in ., ~/.webmon, /etc/webmon)")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and the on-disk paths it selects.
func loadConfig() (*config.Config, infra.Paths, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, infra.Paths{}, err
	}
	paths := infra.ResolvePaths(cfg.DataDir)
	if cfg.Log.File != "" {
		paths.LogFile = infra.ExpandHome(cfg.Log.File)
	}
	return cfg, paths, nil
}

// newClient returns a control API client for the configured daemon.
func newClient() (*server.Client, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return server.NewClient(cfg.Control.Addr), nil
}

// createLogger builds the daemon logger. In the foreground logs also go to stderr.
func createLogger(cfg *config.Config, paths infra.Paths, foreground bool) *zap.Logger {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{paths.LogFile}
	zc.ErrorOutputPaths = []string{paths.LogFile}
	if foreground {
		zc.OutputPaths = append(zc.OutputPaths, "stderr")
		zc.ErrorOutputPaths = append(zc.ErrorOutputPaths, "stderr")
	}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zap.ParseAtomicLevel(cfg.Log.Level); err == nil {
		zc.Level = level
	}

	logger, err := zc.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		return
	}
	fmt.Printf("webmon %s (commit: %s, built: %s)\n", Version, Commit, BuildTime)
}
