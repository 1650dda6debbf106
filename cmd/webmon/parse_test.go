package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/server"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

func TestParseDays(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"daily", []int{1, 2, 3, 4, 5, 6, 7}, false},
		{"weekdays", []int{2, 3, 4, 5, 6}, false},
		{"Weekends", []int{1, 7}, false},
		{"mon,wed,fri", []int{2, 4, 6}, false},
		{"monday, tuesday", []int{2, 3}, false},
		{"1,7,1", []int{1, 7}, false},
		{"0", nil, true},
		{"8", nil, true},
		{"mo", nil, true},
		{"funday", nil, true},
		{"", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDays(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	got, err := parseTimeOfDay("09:30")
	require.NoError(t, err)
	assert.Equal(t, domain.TimeOfDay{Hour: 9, Minute: 30}, got)

	got, err = parseTimeOfDay(" 23:59 ")
	require.NoError(t, err)
	assert.Equal(t, domain.TimeOfDay{Hour: 23, Minute: 59}, got)

	for _, bad := range []string{"24:00", "9am", "12:60", ""} {
		_, err := parseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.March, d.Month())
	assert.Equal(t, 15, d.Day())
	assert.Equal(t, time.Local, d.Location())

	_, err = parseDate("15/03/2024")
	assert.Error(t, err)
}

func TestParseOnOff(t *testing.T) {
	for _, s := range []string{"on", "ON", "true", "yes", "1"} {
		v, err := parseOnOff(s)
		require.NoError(t, err)
		assert.True(t, v, s)
	}
	for _, s := range []string{"off", "false", "no", "0"} {
		v, err := parseOnOff(s)
		require.NoError(t, err)
		assert.False(t, v, s)
	}
	_, err := parseOnOff("maybe")
	assert.Error(t, err)
}

func TestFormatDays(t *testing.T) {
	assert.Equal(t, "sun,mon,sat", formatDays([]int{1, 2, 7}))
	assert.Equal(t, "", formatDays([]int{0, 8}))
}

func TestFormatSeconds(t *testing.T) {
	assert.Equal(t, "25:00", formatSeconds(1500))
	assert.Equal(t, "00:59", formatSeconds(59))
	assert.Equal(t, "00:00", formatSeconds(-3))
}

func TestFormatSchedule(t *testing.T) {
	date := time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local)
	s := domain.Schedule{
		ID:    "abc",
		Name:  "standup",
		Days:  []int{6},
		Date:  &date,
		Start: domain.TimeOfDay{Hour: 9},
		End:   domain.TimeOfDay{Hour: 9, Minute: 15},
		Type:  domain.ScheduleFocus,
	}
	out := formatSchedule(s)
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "09:00-09:15")
	assert.Contains(t, out, "rules=active")
	assert.Contains(t, out, "[disabled]")
}

func TestFormatStatus(t *testing.T) {
	s := &server.StatusResponse{
		Snapshot: usecase.Snapshot{
			Decision: domain.BlockingDecision{IsBlocking: true, AllowedRules: []string{"github.com"}, WasAutoStarted: true},
			Pause:    domain.PauseState{IsPaused: true, RemainingSeconds: 90},
			Pomodoro: domain.PomodoroState{
				Status:           domain.PomodoroFocusing,
				FocusMinutes:     25,
				BreakMinutes:     5,
				RemainingSeconds: 600,
			},
			PomodoroLocked: true,
			IsUnblockable:  true,
		},
		Monitoring: true,
	}

	out := formatStatus(s)
	assert.Contains(t, out, "ON (automatic)")
	assert.Contains(t, out, "01:30 left")
	assert.Contains(t, out, "focusing, 10:00 left (locked)")
	assert.Contains(t, out, "github.com")
	assert.Contains(t, out, "NOT GRANTED")

	s.Decision = domain.BlockingDecision{}
	s.AutomationPermission = true
	out = formatStatus(s)
	assert.Contains(t, out, "Focus mode:   off")
	assert.False(t, strings.Contains(out, "Allowed:"))
	assert.False(t, strings.Contains(out, "Automation:"))
}
