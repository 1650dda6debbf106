package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

var schedulesCmd = &cobra.Command{
	Use:     "schedules",
	Aliases: []string{"schedule"},
	Short:   "Manage focus and break schedules",
}

var schedulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		schedules, err := client.Schedules(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(schedules)
		}
		if len(schedules) == 0 {
			fmt.Println("No schedules")
			return nil
		}
		for _, s := range schedules {
			fmt.Println(formatSchedule(s))
		}
		return nil
	},
}

var schedulesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a schedule",
	Long: `Adds a recurring or one-off schedule. Focus schedules turn focus mode on
inside their window, break schedules suspend every focus schedule.

Examples:
  webmon schedules add --name work --days weekdays --start 09:00 --end 17:00
  webmon schedules add --name lunch --days weekdays --start 12:00 --end 13:00 --type break
  webmon schedules add --name exam --date 2024-06-01 --start 08:00 --end 12:00`,
	RunE: runSchedulesAdd,
}

var schedulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.DeleteSchedule(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("Schedule deleted")
		return nil
	},
}

// scheduleFlags are the inputs of 'schedules add'.
type scheduleFlags struct {
	name     string
	days     string
	date     string
	start    string
	end      string
	kind     string
	ruleSet  string
	disabled bool
}

var schFlags scheduleFlags

func init() {
	schedulesListCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output schedules as JSON")

	f := schedulesAddCmd.Flags()
	f.StringVar(&schFlags.name, "name", "", "Schedule name (required)")
	f.StringVar(&schFlags.days, "days", "", "Days: mon,tue,... or 1-7 (1=Sun), daily, weekdays, weekends")
	f.StringVar(&schFlags.date, "date", "", "One-off date YYYY-MM-DD (instead of --days)")
	f.StringVar(&schFlags.start, "start", "", "Start time HH:MM (required)")
	f.StringVar(&schFlags.end, "end", "", "End time HH:MM, may be before start for overnight windows (required)")
	f.StringVar(&schFlags.kind, "type", string(domain.ScheduleFocus), "focus or break")
	f.StringVar(&schFlags.ruleSet, "rules", "", "Rule set id (default: the active rule set)")
	f.BoolVar(&schFlags.disabled, "disabled", false, "Create the schedule disabled")
	_ = schedulesAddCmd.MarkFlagRequired("name")
	_ = schedulesAddCmd.MarkFlagRequired("start")
	_ = schedulesAddCmd.MarkFlagRequired("end")
	schedulesAddCmd.MarkFlagsMutuallyExclusive("days", "date")

	schedulesCmd.AddCommand(schedulesListCmd)
	schedulesCmd.AddCommand(schedulesAddCmd)
	schedulesCmd.AddCommand(schedulesDeleteCmd)
	rootCmd.AddCommand(schedulesCmd)
}

func runSchedulesAdd(cmd *cobra.Command, args []string) error {
	sch, err := schFlags.schedule()
	if err != nil {
		return err
	}
	client, err := newClient()
	if err != nil {
		return err
	}
	created, err := client.AddSchedule(cmd.Context(), sch)
	if err != nil {
		return err
	}
	fmt.Println(formatSchedule(*created))
	return nil
}

// schedule builds the domain schedule described by the flags.
func (f scheduleFlags) schedule() (domain.Schedule, error) {
	sch := domain.Schedule{
		Name:      f.name,
		Type:      domain.ScheduleType(f.kind),
		RuleSetID: f.ruleSet,
		Enabled:   !f.disabled,
	}

	var err error
	if sch.Start, err = parseTimeOfDay(f.start); err != nil {
		return sch, err
	}
	if sch.End, err = parseTimeOfDay(f.end); err != nil {
		return sch, err
	}

	switch {
	case f.date != "":
		date, err := parseDate(f.date)
		if err != nil {
			return sch, err
		}
		sch.Date = &date
		sch.Days = []int{domain.Weekday(date)}
	case f.days != "":
		if sch.Days, err = parseDays(f.days); err != nil {
			return sch, err
		}
	default:
		return sch, fmt.Errorf("one of --days or --date is required")
	}
	return sch, nil
}
