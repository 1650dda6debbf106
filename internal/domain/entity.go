// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// BlockPagePort is the fixed loopback port of the local enforcement server.
const BlockPagePort = 10000

// RuleSet is a named, user-editable allow-list of URL patterns.
type RuleSet struct {
	ID   string   `json:"id" yaml:"id"`
	Name string   `json:"name" yaml:"name"`
	URLs []string `json:"urls" yaml:"urls"`
}

// ScheduleType distinguishes focus windows from break windows.
type ScheduleType string

const (
	ScheduleFocus ScheduleType = "focus"
	ScheduleBreak ScheduleType = "break"
)

// TimeOfDay is an hour:minute pair. The date component of a schedule time is
// never significant.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// Minutes returns the number of minutes since midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Schedule is a recurring (by weekday) or one-off (by date) time window.
// Days use 1=Sunday..7=Saturday.
type Schedule struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Days      []int        `json:"days"`
	Date      *time.Time   `json:"date,omitempty"` // one-off schedule
	Start     TimeOfDay    `json:"start"`
	End       TimeOfDay    `json:"end"`
	Enabled   bool         `json:"enabled"`
	Type      ScheduleType `json:"type"`
	RuleSetID string       `json:"rule_set_id,omitempty"`
}

// Weekday converts a time.Weekday (0=Sunday) to the 1=Sunday..7=Saturday scale.
func Weekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

// IsActive reports whether the schedule covers the instant t.
// The window is half-open [Start, End) and wraps past midnight when
// Start > End. The day check always applies to t itself, so an overnight
// window on Monday covers Monday 00:00-End as well as Monday Start-24:00.
func (s Schedule) IsActive(t time.Time) bool {
	if !s.Enabled || !s.coversDay(t) {
		return false
	}

	now := t.Hour()*60 + t.Minute()
	start := s.Start.Minutes()
	end := s.End.Minutes()

	if start <= end {
		return now >= start && now < end
	}
	return now >= start || now < end
}

func (s Schedule) coversDay(t time.Time) bool {
	if s.Date != nil {
		y1, m1, d1 := s.Date.Date()
		y2, m2, d2 := t.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	}
	wd := Weekday(t)
	for _, d := range s.Days {
		if d == wd {
			return true
		}
	}
	return false
}

// ExternalEvent is a meeting from the calendar feed.
type ExternalEvent struct {
	ID    string    `json:"id"`
	Title string    `json:"title"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsActive uses a closed interval, unlike Schedule.IsActive.
func (e ExternalEvent) IsActive(t time.Time) bool {
	return !t.Before(e.Start) && !t.After(e.End)
}

// PomodoroStatus is the phase of the Pomodoro timer.
type PomodoroStatus string

const (
	PomodoroIdle     PomodoroStatus = "idle"
	PomodoroFocusing PomodoroStatus = "focusing"
	PomodoroOnBreak  PomodoroStatus = "on_break"
)

// PomodoroLockGrace is how long after a start the user may still stop a
// strict Pomodoro session.
const PomodoroLockGrace = 10 * time.Second

const (
	DefaultFocusMinutes = 25
	DefaultBreakMinutes = 5
)

// PomodoroState is the runtime state of the Pomodoro timer.
type PomodoroState struct {
	Status           PomodoroStatus `json:"status"`
	FocusMinutes     int            `json:"focus_minutes"`
	BreakMinutes     int            `json:"break_minutes"`
	RemainingSeconds int            `json:"remaining_seconds"`
	StartedAt        *time.Time     `json:"started_at,omitempty"`
}

// IsLocked reports whether the session can no longer be stopped.
func (p PomodoroState) IsLocked(unblockable bool, now time.Time) bool {
	if !unblockable || p.Status == PomodoroIdle || p.StartedAt == nil {
		return false
	}
	return now.Sub(*p.StartedAt) >= PomodoroLockGrace
}

// BlockingDecision is derived on every evaluation and never persisted.
type BlockingDecision struct {
	IsBlocking     bool     `json:"is_blocking"`
	AllowedRules   []string `json:"allowed_rules"`
	WasAutoStarted bool     `json:"was_auto_started"`
}

// PauseState is a temporary suspension of enforcement.
type PauseState struct {
	IsPaused         bool `json:"is_paused"`
	RemainingSeconds int  `json:"remaining_seconds"`
}

// ScriptDialect selects how a browser is driven by OS automation.
type ScriptDialect string

const (
	DialectChromium ScriptDialect = "chromium" // "active tab of front window"
	DialectSafari   ScriptDialect = "safari"   // "front document"
	DialectKeyboard ScriptDialect = "keyboard" // no dictionary, UI scripting only
)

// Browser describes one supported browser.
type Browser struct {
	ID           string        `json:"id" mapstructure:"id"`
	Name         string        `json:"name" mapstructure:"name"`
	BundleIDs    []string      `json:"bundle_ids" mapstructure:"bundle_ids"`
	ProcessNames []string      `json:"process_names" mapstructure:"process_names"`
	Dialect      ScriptDialect `json:"dialect" mapstructure:"dialect"`
	// BlindRedirect is set for browsers whose URL is unreadable in some window
	// types; the monitor redirects without a URL in that case.
	BlindRedirect bool `json:"blind_redirect" mapstructure:"blind_redirect"`
}

// ForegroundApp identifies the frontmost application.
type ForegroundApp struct {
	BundleID string
	Name     string
	PID      int
}
