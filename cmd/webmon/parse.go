package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

var dayNames = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

// parseDays accepts comma-separated day names or numbers (1=Sun..7=Sat)
// and the shorthands daily, weekdays and weekends.
func parseDays(s string) ([]int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "everyday":
		return []int{1, 2, 3, 4, 5, 6, 7}, nil
	case "weekdays":
		return []int{2, 3, 4, 5, 6}, nil
	case "weekends":
		return []int{1, 7}, nil
	}

	seen := make(map[int]bool)
	var days []int
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		d, err := parseDay(part)
		if err != nil {
			return nil, err
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	if len(days) == 0 {
		return nil, fmt.Errorf("no days given")
	}
	return days, nil
}

func parseDay(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 7 {
			return 0, fmt.Errorf("day %d out of range 1..7", n)
		}
		return n, nil
	}
	if len(s) >= 3 {
		for i, name := range dayNames {
			if strings.HasPrefix(s, name) {
				return i + 1, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown day %q", s)
}

// parseTimeOfDay parses HH:MM in 24h format.
func parseTimeOfDay(s string) (domain.TimeOfDay, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return domain.TimeOfDay{}, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return domain.TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// parseDate parses YYYY-MM-DD as a local calendar date.
func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
