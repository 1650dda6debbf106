package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/web_mon/internal/server"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show focus state",
	RunE:  runStatus,
}

var blockCmd = &cobra.Command{
	Use:   "block",
	Short: "Turn focus mode on",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetBlocking(cmd.Context(), true)
		})
	},
}

var unblockCmd = &cobra.Command{
	Use:   "unblock",
	Short: "Turn focus mode off (refused in strict mode)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetBlocking(cmd.Context(), false)
		})
	},
}

var unlockCmd = &cobra.Command{
	Use:   "unlock",
	Short: "Emergency unlock: end focus mode even in strict mode",
	Long: `Ends focus mode, any pause and any Pomodoro session. Strict mode stays
configured for the next session. Requires the passphrase whose hash is configured as
unlock.passphrase_hash. The passphrase is read from stdin unless
--passphrase is given.`,
	RunE: runUnlock,
}

var unlockHashCmd = &cobra.Command{
	Use:   "hash <passphrase>",
	Short: "Print the argon2id hash to put in unlock.passphrase_hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := argon2id.CreateHash(args[0], argon2id.DefaultParams)
		if err != nil {
			return err
		}
		fmt.Println(hash)
		return nil
	},
}

var strictCmd = &cobra.Command{
	Use:       "strict on|off",
	Short:     "Toggle strict mode",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetStrict(cmd.Context(), enabled)
		})
	},
}

var pauseCmd = &cobra.Command{
	Use:   "pause <minutes>",
	Short: "Suspend enforcement for a number of minutes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[0])
		if err != nil || minutes <= 0 {
			return fmt.Errorf("invalid minutes %q", args[0])
		}
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.Pause(cmd.Context(), minutes)
		})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "End a pause early",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.Resume(cmd.Context())
		})
	},
}

var pomodoroCmd = &cobra.Command{
	Use:   "pomodoro",
	Short: "Control the Pomodoro timer",
}

var pomodoroSettingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Set focus and break lengths in minutes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SetPomodoroDurations(cmd.Context(), focusMinutes, breakMinutes)
		})
	},
}

var tabsCmd = &cobra.Command{
	Use:   "tabs",
	Short: "List open tab URLs in running browsers",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		urls, err := client.Tabs(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range urls {
			fmt.Println(u)
		}
		return nil
	},
}

var (
	passphrase   string
	focusMinutes int
	breakMinutes int
)

func init() {
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	unlockCmd.Flags().StringVar(&passphrase, "passphrase", "", "Emergency passphrase (default: read from stdin)")
	pomodoroSettingsCmd.Flags().IntVar(&focusMinutes, "focus", 25, "Focus phase length in minutes")
	pomodoroSettingsCmd.Flags().IntVar(&breakMinutes, "break", 5, "Break phase length in minutes")

	for _, action := range []string{"start", "skip", "stop"} {
		pomodoroCmd.AddCommand(pomodoroActionCmd(action))
	}
	pomodoroCmd.AddCommand(pomodoroSettingsCmd)
	unlockCmd.AddCommand(unlockHashCmd)

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(blockCmd)
	rootCmd.AddCommand(unblockCmd)
	rootCmd.AddCommand(unlockCmd)
	rootCmd.AddCommand(strictCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(pomodoroCmd)
	rootCmd.AddCommand(tabsCmd)
}

func pomodoroActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: strings.ToUpper(action[:1]) + action[1:] + " the Pomodoro timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
				return c.Pomodoro(cmd.Context(), action)
			})
		},
	}
}

// mutate runs a state-changing call and prints the resulting status.
func mutate(cmd *cobra.Command, call func(*server.Client) (*server.StatusResponse, error)) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	status, err := call(client)
	if err != nil {
		return err
	}
	printStatus(status)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	client, err := newClient()
	if err != nil {
		return err
	}
	status, err := client.Status(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(status)
	}
	printStatus(status)
	return nil
}

func runUnlock(cmd *cobra.Command, args []string) error {
	pass := passphrase
	if pass == "" {
		fmt.Fprint(os.Stderr, "Passphrase: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		pass = strings.TrimRight(line, "\r\n")
	}
	return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
		return c.Unlock(cmd.Context(), pass)
	})
}
