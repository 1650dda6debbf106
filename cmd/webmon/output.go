package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStatus(s *server.StatusResponse) {
	fmt.Print(formatStatus(s))
}

// formatStatus renders a status response for humans.
func formatStatus(s *server.StatusResponse) string {
	var b strings.Builder

	mode := "off"
	if s.Decision.IsBlocking {
		mode = "ON"
		if s.Decision.WasAutoStarted {
			mode += " (automatic)"
		}
	}
	fmt.Fprintf(&b, "Focus mode:   %s\n", mode)
	if s.Pause.IsPaused {
		fmt.Fprintf(&b, "Paused:       %s left\n", formatSeconds(s.Pause.RemainingSeconds))
	}
	fmt.Fprintf(&b, "Strict mode:  %s\n", onOff(s.IsUnblockable))

	pomo := string(s.Pomodoro.Status)
	if s.Pomodoro.Status != domain.PomodoroIdle {
		pomo = fmt.Sprintf("%s, %s left", pomo, formatSeconds(s.Pomodoro.RemainingSeconds))
		if s.PomodoroLocked {
			pomo += " (locked)"
		}
	}
	fmt.Fprintf(&b, "Pomodoro:     %s (%d/%d min)\n", pomo, s.Pomodoro.FocusMinutes, s.Pomodoro.BreakMinutes)
	fmt.Fprintf(&b, "Calendar:     %s\n", onOff(s.CalendarEnabled))
	for _, ev := range s.ActiveEvents {
		fmt.Fprintf(&b, "  meeting:    %s (until %s)\n", ev.Title, ev.End.Local().Format("15:04"))
	}
	fmt.Fprintf(&b, "Monitoring:   %s\n", onOff(s.Monitoring))
	if !s.AutomationPermission {
		b.WriteString("Automation:   NOT GRANTED (System Settings > Privacy & Security > Automation)\n")
	}
	if s.Decision.IsBlocking {
		if len(s.Decision.AllowedRules) == 0 {
			b.WriteString("Allowed:      (nothing)\n")
		} else {
			fmt.Fprintf(&b, "Allowed:      %s\n", strings.Join(s.Decision.AllowedRules, ", "))
		}
	}
	return b.String()
}

func formatSeconds(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// formatDays renders 1=Sun..7=Sat day numbers as short names.
func formatDays(days []int) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		if d >= 1 && d <= 7 {
			names = append(names, dayNames[d-1])
		}
	}
	return strings.Join(names, ",")
}

func formatSchedule(s domain.Schedule) string {
	when := formatDays(s.Days)
	if s.Date != nil {
		when = s.Date.Format("2006-01-02")
	}
	state := ""
	if !s.Enabled {
		state = " [disabled]"
	}
	rules := s.RuleSetID
	if rules == "" {
		rules = "active"
	}
	return fmt.Sprintf("%s  %-20s %-5s %s %02d:%02d-%02d:%02d rules=%s%s",
		s.ID, s.Name, s.Type, when,
		s.Start.Hour, s.Start.Minute, s.End.Hour, s.End.Minute,
		rules, state)
}
