package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/matcher"
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Check whether a URL is allowed",
	Long: `Checks a URL against the daemon's current allow-list. With --rule the
check runs locally against the given rules instead, without a daemon.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

var checkRules []string

func init() {
	checkCmd.Flags().StringArrayVar(&checkRules, "rule", nil, "Check against this rule instead of the daemon (repeatable)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	url := args[0]

	if len(checkRules) > 0 {
		m := matcher.New(domain.BlockPagePort)
		if cfg, _, err := loadConfig(); err == nil {
			m = matcher.New(cfg.Server.Port)
		}
		fmt.Printf("%s -> %s\n", matcher.Normalize(url), verdict(m.IsAllowed(url, checkRules), true))
		return nil
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	res, err := client.Match(cmd.Context(), url)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}
	switch {
	case res.BlockPage:
		fmt.Printf("%s -> block page\n", res.Normalized)
	default:
		fmt.Printf("%s -> %s\n", res.Normalized, verdict(res.Allowed, res.Blocking))
	}
	return nil
}

func verdict(allowed, blocking bool) string {
	switch {
	case allowed:
		return "allowed"
	case !blocking:
		return "would be blocked (focus mode is off)"
	default:
		return "blocked"
	}
}
