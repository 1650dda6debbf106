package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/calendar"
	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/infra"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Block during Microsoft 365 calendar meetings",
}

var calendarLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to Microsoft 365 with a device code",
	RunE:  runCalendarLogin,
}

var calendarLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored Microsoft 365 token",
	RunE:  runCalendarLogout,
}

var calendarEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Let meetings suspend blocking (syncs the calendar now)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetCalendar(cmd.Context(), true)
		})
	},
}

var calendarDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Ignore calendar meetings",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetCalendar(cmd.Context(), false)
		})
	},
}

func init() {
	calendarCmd.AddCommand(calendarLoginCmd)
	calendarCmd.AddCommand(calendarLogoutCmd)
	calendarCmd.AddCommand(calendarEnableCmd)
	calendarCmd.AddCommand(calendarDisableCmd)
	rootCmd.AddCommand(calendarCmd)
}

// openFeed opens the settings store the daemon uses and a Graph feed on it.
// The token written here is picked up by the daemon on its next sync.
func openFeed() (*calendar.GraphFeed, domain.KeyValueStore, error) {
	cfg, paths, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Calendar.HasFeed() {
		return nil, nil, fmt.Errorf("calendar.client_id is not configured")
	}
	if err := paths.EnsureDataDir(); err != nil {
		return nil, nil, err
	}

	logger := zap.NewNop()
	store, persistent := infra.OpenStore(paths, infra.NewKeyProvider(paths), logger)
	if !persistent {
		_ = store.Close()
		return nil, nil, fmt.Errorf("settings store %s could not be opened", paths.StorePath)
	}
	return calendar.NewGraphFeed(cfg.Calendar.TenantID, cfg.Calendar.ClientID, store, logger), store, nil
}

func runCalendarLogin(cmd *cobra.Command, args []string) error {
	feed, store, err := openFeed()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	err = feed.Login(cmd.Context(), func(userCode, verificationURI string) {
		fmt.Printf("To sign in, open %s and enter the code %s\n", verificationURI, userCode)
		fmt.Println("Waiting for sign-in...")
	})
	if err != nil {
		return fmt.Errorf("calendar login failed: %w", err)
	}
	fmt.Println("Signed in. Run 'webmon calendar enable' to block during meetings.")
	return nil
}

func runCalendarLogout(cmd *cobra.Command, args []string) error {
	feed, store, err := openFeed()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := feed.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out. Restart the daemon to drop its cached token.")
	return nil
}
