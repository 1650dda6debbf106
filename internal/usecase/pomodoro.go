package usecase

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const countdownInterval = time.Second

// StartPause suspends enforcement for minutes. It is only accepted while
// blocking, and refused while a strict Pomodoro session is locked.
// A running pause is restarted.
func (e *FocusEngine) StartPause(minutes int) error {
	if minutes <= 0 {
		return ErrInvalidDuration
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.state.IsBlocking {
		return ErrNotBlocking
	}
	if e.pomodoro.IsLocked(e.state.IsUnblockable, e.clock.Now()) {
		return ErrPomodoroLocked
	}

	e.stopPauseTimerLocked()
	e.pause = domain.PauseState{IsPaused: true, RemainingSeconds: minutes * 60}
	e.cancelPause = e.scheduler.Repeat(countdownInterval, e.pauseTick)
	e.logger.Info("pause started", zap.Int("minutes", minutes))
	return nil
}

// CancelPause ends a pause early. It is a no-op without a pause.
func (e *FocusEngine) CancelPause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pause.IsPaused {
		e.logger.Info("pause cancelled")
	}
	e.clearPauseLocked()
}

func (e *FocusEngine) pauseTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.pause.IsPaused {
		e.stopPauseTimerLocked()
		return
	}
	e.pause.RemainingSeconds--
	if e.pause.RemainingSeconds <= 0 {
		e.logger.Info("pause ended")
		e.clearPauseLocked()
	}
}

func (e *FocusEngine) clearPauseLocked() {
	e.stopPauseTimerLocked()
	e.pause = domain.PauseState{}
}

func (e *FocusEngine) stopPauseTimerLocked() {
	if e.cancelPause != nil {
		e.cancelPause()
		e.cancelPause = nil
	}
}

// StartPomodoro begins a focus phase. Starting while a session runs is a no-op.
func (e *FocusEngine) StartPomodoro() error {
	return e.apply(func(s *Settings) error {
		if e.pomodoro.Status != domain.PomodoroIdle {
			return nil
		}
		now := e.clock.Now()
		e.pomodoro = domain.PomodoroState{
			Status:           domain.PomodoroFocusing,
			FocusMinutes:     s.FocusMinutes,
			BreakMinutes:     s.BreakMinutes,
			RemainingSeconds: s.FocusMinutes * 60,
			StartedAt:        &now,
		}
		e.stopPomodoroTimerLocked()
		e.cancelPomodoro = e.scheduler.Repeat(countdownInterval, e.pomodoroTick)
		e.logger.Info("pomodoro started", zap.Int("focus_minutes", s.FocusMinutes))
		return nil
	})
}

// SkipPomodoroPhase jumps to the next phase. A locked focus phase cannot be skipped.
func (e *FocusEngine) SkipPomodoroPhase() error {
	return e.apply(func(s *Settings) error {
		switch e.pomodoro.Status {
		case domain.PomodoroIdle:
			return ErrPomodoroIdle
		case domain.PomodoroFocusing:
			if e.pomodoro.IsLocked(s.IsUnblockable, e.clock.Now()) {
				return ErrPomodoroLocked
			}
		}
		e.flipPomodoroLocked()
		return nil
	})
}

// StopPomodoro returns to idle unless the session is locked.
func (e *FocusEngine) StopPomodoro() error {
	return e.apply(func(s *Settings) error {
		if e.pomodoro.Status == domain.PomodoroIdle {
			return ErrPomodoroIdle
		}
		if e.pomodoro.IsLocked(s.IsUnblockable, e.clock.Now()) {
			return ErrPomodoroLocked
		}
		e.stopPomodoroLocked()
		return nil
	})
}

// SetPomodoroDurations sets the phase lengths used from the next phase on.
func (e *FocusEngine) SetPomodoroDurations(focusMinutes, breakMinutes int) error {
	if focusMinutes <= 0 || breakMinutes <= 0 {
		return ErrInvalidDuration
	}
	return e.apply(func(s *Settings) error {
		s.FocusMinutes = focusMinutes
		s.BreakMinutes = breakMinutes
		e.pomodoro.FocusMinutes = focusMinutes
		e.pomodoro.BreakMinutes = breakMinutes
		return nil
	})
}

func (e *FocusEngine) pomodoroTick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pomodoro.Status == domain.PomodoroIdle {
		e.stopPomodoroTimerLocked()
		return
	}
	e.pomodoro.RemainingSeconds--
	if e.pomodoro.RemainingSeconds > 0 {
		return
	}
	e.flipPomodoroLocked()
	e.evaluateLocked()
}

// flipPomodoroLocked moves Focusing -> OnBreak -> Focusing. StartedAt keeps
// the session start so the lock is not re-armed by each phase.
func (e *FocusEngine) flipPomodoroLocked() {
	switch e.pomodoro.Status {
	case domain.PomodoroFocusing:
		e.pomodoro.Status = domain.PomodoroOnBreak
		e.pomodoro.RemainingSeconds = e.pomodoro.BreakMinutes * 60
	case domain.PomodoroOnBreak:
		e.pomodoro.Status = domain.PomodoroFocusing
		e.pomodoro.RemainingSeconds = e.pomodoro.FocusMinutes * 60
	}
	e.logger.Info("pomodoro phase changed", zap.String("status", string(e.pomodoro.Status)))
}

func (e *FocusEngine) stopPomodoroLocked() {
	if e.pomodoro.Status != domain.PomodoroIdle {
		e.logger.Info("pomodoro stopped")
	}
	e.stopPomodoroTimerLocked()
	e.pomodoro.Status = domain.PomodoroIdle
	e.pomodoro.RemainingSeconds = 0
	e.pomodoro.StartedAt = nil
}

func (e *FocusEngine) stopPomodoroTimerLocked() {
	if e.cancelPomodoro != nil {
		e.cancelPomodoro()
		e.cancelPomodoro = nil
	}
}
