package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/calendar"
	"github.com/eliteGoblin/focusd/web_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
	"github.com/eliteGoblin/focusd/web_mon/internal/metrics"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	Long: `Runs the focus daemon in the foreground: the block page server, the
control API, the browser monitor and all policy timers. Stops on SIGINT/SIGTERM.`,
	RunE: runDaemon,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE:  runStart,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Start webmon automatically at login (LaunchAgent)",
	RunE:  runInstall,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the login LaunchAgent",
	RunE:  runUninstall,
}

var quiet bool

func init() {
	runCmd.Flags().BoolVar(&quiet, "quiet", false, "Log to the log file only")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, paths, err := loadConfig()
	if err != nil {
		return err
	}
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	logger := createLogger(cfg, paths, !quiet)
	defer func() { _ = logger.Sync() }()
	logger.Info("webmon starting",
		zap.String("version", Version),
		zap.String("config", cfg.File),
		zap.String("data_dir", paths.DataDir))

	store, persistent := infra.OpenStore(paths, infra.NewKeyProvider(paths), logger)
	defer func() { _ = store.Close() }()
	if !persistent {
		logger.Warn("running with in-memory settings")
	}

	browsers, err := policy.NewRegistryWithBrowsers(cfg.ExtraBrowsers()...)
	if err != nil {
		return fmt.Errorf("invalid browser config: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	clock := domain.SystemClock{}
	scheduler := daemon.NewScheduler()
	engine := usecase.NewFocusEngine(usecase.NewSettingsRepository(store, logger), scheduler, clock, logger)
	engine.SetObserver(m)

	pm := infra.NewProcessManager()
	bridge := infra.NewAutomationBridge(pm, logger)
	permCtx, cancelPerm := context.WithTimeout(context.Background(), cfg.Monitor.AutomationTimeout)
	if !bridge.CheckPermission(permCtx, true) {
		logger.Warn("automation permission not granted; allow webmon under System Settings > Privacy & Security > Automation")
	}
	cancelPerm()

	blockServer := server.NewBlockServer(cfg.Server.Host, cfg.Server.Port, logger)
	monitor := daemon.NewMonitor(
		daemon.MonitorConfig{
			Interval:          cfg.Monitor.Interval,
			RedirectThrottle:  cfg.Monitor.RedirectThrottle,
			AutomationTimeout: cfg.Monitor.AutomationTimeout,
			BlockPageURL:      blockServer.URL(),
		},
		engine,
		bridge,
		browsers,
		matcher.New(cfg.Server.Port),
		scheduler,
		clock,
		m,
		logger,
	)

	// The feed runs whenever a Graph app is configured; the stored
	// calendar flag decides whether its meetings count.
	controlDeps := server.ControlDeps{
		Engine:     engine,
		Monitor:    monitor,
		Matcher:    matcher.New(cfg.Server.Port),
		Bridge:     bridge,
		Browsers:   browsers.Browsers(),
		Gatherer:   reg,
		UnlockHash: cfg.Unlock.PassphraseHash,
	}
	var calSync *daemon.CalendarSync
	if cfg.Calendar.HasFeed() {
		feed := calendar.NewGraphFeed(cfg.Calendar.TenantID, cfg.Calendar.ClientID, store, logger)
		calSync = daemon.NewCalendarSync(feed, engine, clock, cfg.Calendar.Lookahead, logger).WithMetrics(m)
		controlDeps.Calendar = calSync
	}
	control := server.NewControlServer(cfg.Control.Addr, controlDeps, logger)

	d := daemon.New(
		daemon.Config{
			PolicyInterval:       cfg.Policy.Interval,
			CalendarSyncInterval: cfg.Calendar.SyncInterval,
			ShutdownTimeout:      daemon.DefaultConfig().ShutdownTimeout,
		},
		engine,
		monitor,
		scheduler,
		calSync,
		[]daemon.Service{blockServer, control},
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("daemon stopped with error", zap.Error(err))
		return err
	}
	logger.Info("webmon stopped")
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	if _, err := client.Status(cmd.Context()); err == nil {
		fmt.Println("webmon is already running")
		return nil
	}

	_, paths, err := loadConfig()
	if err != nil {
		return err
	}
	if err := paths.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	var daemonArgs []string
	if configFile != "" {
		abs, err := filepath.Abs(configFile)
		if err != nil {
			return err
		}
		daemonArgs = append(daemonArgs, "--config", abs)
	}
	daemonArgs = append(daemonArgs, "--quiet")

	pid, err := daemon.StartDetached(filepath.Join(paths.DataDir, "webmon.stderr.log"), daemonArgs...)
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Wait for the control API to come up.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		time.Sleep(200 * time.Millisecond)
		if _, err := client.Status(cmd.Context()); err == nil {
			fmt.Printf("webmon started (pid %d)\n", pid)
			fmt.Printf("Logs: %s\n", paths.LogFile)
			return nil
		}
	}
	return fmt.Errorf("daemon (pid %d) did not answer within 5s, see %s", pid, paths.LogFile)
}

func runInstall(cmd *cobra.Command, args []string) error {
	_, paths, err := loadConfig()
	if err != nil {
		return err
	}
	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	cfgPath := ""
	if configFile != "" {
		if cfgPath, err = filepath.Abs(configFile); err != nil {
			return err
		}
	}

	agent := infra.NewLoginAgent(paths)
	if agent.IsInstalled() && !agent.NeedsUpdate(execPath, cfgPath) {
		fmt.Printf("LaunchAgent already installed: %s\n", agent.PlistPath())
		return nil
	}
	if err := agent.Install(cmd.Context(), execPath, cfgPath); err != nil {
		return err
	}
	fmt.Printf("Installed LaunchAgent: %s\n", agent.PlistPath())
	fmt.Println("webmon will start automatically at login.")
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	_, paths, err := loadConfig()
	if err != nil {
		return err
	}
	agent := infra.NewLoginAgent(paths)
	if !agent.IsInstalled() {
		fmt.Println("LaunchAgent not installed")
		return nil
	}
	if err := agent.Uninstall(cmd.Context()); err != nil {
		return err
	}
	fmt.Println("LaunchAgent removed")
	return nil
}
