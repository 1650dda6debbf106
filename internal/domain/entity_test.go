package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2024-01-01 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2024, 1, day, hour, minute, 0, 0, time.Local)
}

const (
	sunday  = 1
	monday  = 2
	tuesday = 3
)

func TestWeekday(t *testing.T) {
	assert.Equal(t, monday, Weekday(at(1, 12, 0)))
	assert.Equal(t, sunday, Weekday(at(7, 12, 0)))
}

func TestSchedule_IsActive(t *testing.T) {
	workday := Schedule{
		Days:    []int{monday},
		Start:   TimeOfDay{Hour: 9},
		End:     TimeOfDay{Hour: 17},
		Enabled: true,
		Type:    ScheduleFocus,
	}
	overnight := Schedule{
		Days:    []int{monday},
		Start:   TimeOfDay{Hour: 22},
		End:     TimeOfDay{Hour: 2},
		Enabled: true,
		Type:    ScheduleFocus,
	}
	oneOffDate := time.Date(2024, 1, 3, 0, 0, 0, 0, time.Local)
	oneOff := Schedule{
		Days:    []int{Weekday(oneOffDate)},
		Date:    &oneOffDate,
		Start:   TimeOfDay{Hour: 9},
		End:     TimeOfDay{Hour: 10},
		Enabled: true,
	}
	disabled := workday
	disabled.Enabled = false

	tests := []struct {
		name     string
		schedule Schedule
		at       time.Time
		want     bool
	}{
		{"monday 10:00 inside", workday, at(1, 10, 0), true},
		{"tuesday 10:00 wrong day", workday, at(2, 10, 0), false},
		{"start is inclusive", workday, at(1, 9, 0), true},
		{"end is exclusive", workday, at(1, 17, 0), false},
		{"before start", workday, at(1, 8, 59), false},
		{"disabled", disabled, at(1, 10, 0), false},
		{"overnight 23:00", overnight, at(1, 23, 0), true},
		{"overnight 01:00", overnight, at(1, 1, 0), true},
		{"overnight 12:00", overnight, at(1, 12, 0), false},
		{"overnight end exclusive", overnight, at(1, 2, 0), false},
		{"overnight wrong day", overnight, at(2, 23, 0), false},
		{"one-off on its date", oneOff, at(3, 9, 30), true},
		{"one-off same weekday next week", oneOff, at(10, 9, 30), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.schedule.IsActive(tt.at))
		})
	}
}

func TestExternalEvent_IsActiveClosedInterval(t *testing.T) {
	e := ExternalEvent{Start: at(1, 10, 0), End: at(1, 11, 0)}

	assert.True(t, e.IsActive(at(1, 10, 0)), "start is inclusive")
	assert.True(t, e.IsActive(at(1, 11, 0)), "end is inclusive")
	assert.True(t, e.IsActive(at(1, 10, 30)))
	assert.False(t, e.IsActive(at(1, 11, 1)))
	assert.False(t, e.IsActive(at(1, 9, 59)))
}

func TestPomodoroState_IsLocked(t *testing.T) {
	now := at(1, 10, 0)
	started := func(ago time.Duration) *time.Time {
		ts := now.Add(-ago)
		return &ts
	}

	tests := []struct {
		name        string
		state       PomodoroState
		unblockable bool
		want        bool
	}{
		{"strict focusing 11s ago", PomodoroState{Status: PomodoroFocusing, StartedAt: started(11 * time.Second)}, true, true},
		{"strict focusing 1s ago", PomodoroState{Status: PomodoroFocusing, StartedAt: started(time.Second)}, true, false},
		{"strict exactly at grace", PomodoroState{Status: PomodoroOnBreak, StartedAt: started(PomodoroLockGrace)}, true, true},
		{"not strict", PomodoroState{Status: PomodoroFocusing, StartedAt: started(time.Hour)}, false, false},
		{"idle", PomodoroState{Status: PomodoroIdle, StartedAt: started(time.Hour)}, true, false},
		{"no start time", PomodoroState{Status: PomodoroFocusing}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsLocked(tt.unblockable, now))
		})
	}
}
