package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
)

// ruleSetFile is the YAML document written by 'rules export'.
type ruleSetFile struct {
	RuleSets []domain.RuleSet `yaml:"rule_sets"`
}

var rulesCmd = &cobra.Command{
	Use:     "rules",
	Aliases: []string{"rulesets"},
	Short:   "Manage allow-list rule sets",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List rule sets",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		sets, active, err := client.RuleSets(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(sets)
		}
		fmt.Print(formatRuleSets(sets, active))
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <name> [url...]",
	Short: "Create a rule set",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		rs, err := client.CreateRuleSet(cmd.Context(), args[0], args[1:])
		if err != nil {
			return err
		}
		fmt.Printf("Created rule set %q (%s)\n", rs.Name, rs.ID)
		return nil
	},
}

var rulesSelectCmd = &cobra.Command{
	Use:   "select <id>",
	Short: "Use a rule set for manual and Pomodoro focus",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.SelectRuleSet(cmd.Context(), args[0])
		})
	},
}

var rulesAddURLCmd = &cobra.Command{
	Use:   "allow <url>",
	Short: "Add a URL rule to the active rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(cmd, func(c *server.Client) (*server.StatusResponse, error) {
			return c.AddURL(cmd.Context(), args[0])
		})
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteRuleSet(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Rule set deleted")
		return nil
	},
}

var rulesExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Write all rule sets as YAML (default: stdout)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		sets, _, err := client.RuleSets(cmd.Context())
		if err != nil {
			return err
		}
		data, err := encodeRuleSets(sets)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			_, err = os.Stdout.Write(data)
			return err
		}
		return os.WriteFile(args[0], data, 0644)
	},
}

var rulesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import rule sets from YAML ('-' for stdin); matching ids are replaced",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		if args[0] == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return err
		}
		sets, err := decodeRuleSets(data)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		imported, err := client.ImportRuleSets(cmd.Context(), sets)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d rule set(s)\n", len(imported))
		return nil
	},
}

func init() {
	rulesListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output rule sets as JSON")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesAddCmd)
	rulesCmd.AddCommand(rulesSelectCmd)
	rulesCmd.AddCommand(rulesAddURLCmd)
	rulesCmd.AddCommand(rulesDeleteCmd)
	rulesCmd.AddCommand(rulesExportCmd)
	rulesCmd.AddCommand(rulesImportCmd)
	rootCmd.AddCommand(rulesCmd)
}

func encodeRuleSets(sets []domain.RuleSet) ([]byte, error) {
	data, err := yaml.Marshal(ruleSetFile{RuleSets: sets})
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule sets: %w", err)
	}
	return data, nil
}

// decodeRuleSets parses a rule set document. A bare list is accepted too.
func decodeRuleSets(data []byte) ([]domain.RuleSet, error) {
	var doc ruleSetFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		var list []domain.RuleSet
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			return nil, fmt.Errorf("invalid rule set file: %w", err)
		}
		doc.RuleSets = list
	}
	if len(doc.RuleSets) == 0 {
		return nil, fmt.Errorf("no rule sets found")
	}
	for i, rs := range doc.RuleSets {
		if strings.TrimSpace(rs.Name) == "" {
			return nil, fmt.Errorf("rule set %d has no name", i+1)
		}
	}
	return doc.RuleSets, nil
}

func formatRuleSets(sets []domain.RuleSet, activeID string) string {
	if activeID == "" && len(sets) > 0 {
		activeID = sets[0].ID
	}
	var b strings.Builder
	for _, rs := range sets {
		marker := " "
		if rs.ID == activeID {
			marker = "*"
		}
		fmt.Fprintf(&b, "%s %s  %s\n", marker, rs.ID, rs.Name)
		for _, u := range rs.URLs {
			fmt.Fprintf(&b, "      %s\n", u)
		}
	}
	return b.String()
}
