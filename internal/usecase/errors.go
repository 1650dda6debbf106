package usecase

import "errors"

// Errors returned by FocusEngine. State is left untouched when one of them is returned.
var (
	ErrStrictMode       = errors.New("strict mode is on")
	ErrPomodoroLocked   = errors.New("pomodoro session is locked")
	ErrPomodoroIdle     = errors.New("no pomodoro session running")
	ErrNotBlocking      = errors.New("focus mode is not active")
	ErrInvalidDuration  = errors.New("duration must be a positive number of minutes")
	ErrRuleSetNotFound  = errors.New("rule set not found")
	ErrInvalidRuleSet   = errors.New("invalid rule set")
	ErrScheduleNotFound = errors.New("schedule not found")
	ErrInvalidSchedule  = errors.New("invalid schedule")
)
