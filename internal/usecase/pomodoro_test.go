package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

func TestStartPause_Validation(t *testing.T) {
	e, _, _ := newTestEngine(t, newMemStore())

	assert.ErrorIs(t, e.StartPause(5), ErrNotBlocking)

	require.NoError(t, e.SetBlocking(true))
	assert.ErrorIs(t, e.StartPause(0), ErrInvalidDuration)
	assert.ErrorIs(t, e.StartPause(-3), ErrInvalidDuration)
	assert.False(t, e.IsPaused())

}

func TestStartPause_StrictMode(t *testing.T) {
	t.Run("no pomodoro", func(t *testing.T) {
		e, _, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetBlocking(true))
		require.NoError(t, e.SetUnblockable(true))

		require.NoError(t, e.StartPause(5))
		assert.True(t, e.IsPaused())
	})

	t.Run("pomodoro within grace window", func(t *testing.T) {
		e, clock, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetUnblockable(true))
		require.NoError(t, e.StartPomodoro())

		clock.Advance(time.Second)
		require.NoError(t, e.StartPause(5))
		assert.True(t, e.IsPaused())
	})

	t.Run("locked pomodoro", func(t *testing.T) {
		e, clock, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetUnblockable(true))
		require.NoError(t, e.StartPomodoro())

		clock.Advance(11 * time.Second)
		assert.ErrorIs(t, e.StartPause(5), ErrPomodoroLocked)
		assert.False(t, e.IsPaused())
	})
}

func TestSetUnblockable_DuringPause(t *testing.T) {
	t.Run("pause survives without a locked pomodoro", func(t *testing.T) {
		e, _, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetBlocking(true))
		require.NoError(t, e.StartPause(5))

		require.NoError(t, e.SetUnblockable(true))
		assert.True(t, e.IsPaused())
	})

	t.Run("pause ends when the pomodoro becomes locked", func(t *testing.T) {
		e, clock, sched := newTestEngine(t, newMemStore())
		require.NoError(t, e.StartPomodoro())
		clock.Advance(time.Minute)
		require.NoError(t, e.StartPause(5))
		require.Len(t, sched.live(), 2)

		require.NoError(t, e.SetUnblockable(true))
		assert.False(t, e.IsPaused())
		assert.Len(t, sched.live(), 1, "only the pomodoro countdown is left")
		assert.True(t, e.Snapshot().PomodoroLocked)
	})
}

func TestPause_CountsDown(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())
	require.NoError(t, e.SetBlocking(true))

	require.NoError(t, e.StartPause(1))
	jobs := sched.live()
	require.Len(t, jobs, 1)
	assert.Equal(t, time.Second, jobs[0].interval)

	sched.fire(59)
	snap := e.Snapshot()
	assert.True(t, snap.Pause.IsPaused)
	assert.Equal(t, 1, snap.Pause.RemainingSeconds)

	sched.fire(1)
	assert.False(t, e.IsPaused())
	assert.Empty(t, sched.live())
	assert.True(t, e.Decision().IsBlocking, "pause end resumes enforcement")
}

func TestPause_Cancel(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())
	require.NoError(t, e.SetBlocking(true))
	require.NoError(t, e.StartPause(10))

	e.CancelPause()

	assert.False(t, e.IsPaused())
	assert.Empty(t, sched.live())
	e.CancelPause()
}

func TestPomodoro_PhaseCycle(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())
	require.NoError(t, e.SetPomodoroDurations(1, 1))

	require.NoError(t, e.StartPomodoro())
	d := e.Decision()
	assert.True(t, d.IsBlocking)
	assert.True(t, d.WasAutoStarted)
	assert.NotEmpty(t, d.AllowedRules, "selected rule set applies to pomodoro focus")

	sched.fire(60)
	snap := e.Snapshot()
	assert.Equal(t, domain.PomodoroOnBreak, snap.Pomodoro.Status)
	assert.Equal(t, 60, snap.Pomodoro.RemainingSeconds)
	assert.False(t, snap.Decision.IsBlocking)

	sched.fire(60)
	snap = e.Snapshot()
	assert.Equal(t, domain.PomodoroFocusing, snap.Pomodoro.Status)
	assert.True(t, snap.Decision.IsBlocking)
}

func TestPomodoro_BreakOverridesFocusSchedule(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())
	require.NoError(t, e.SetPomodoroDurations(1, 5))
	_, err := e.AddSchedule(schedule(domain.ScheduleFocus, 9, 17, ""))
	require.NoError(t, err)
	require.True(t, e.Decision().IsBlocking)

	require.NoError(t, e.StartPomodoro())
	sched.fire(60)

	assert.False(t, e.Decision().IsBlocking)
}

func TestPomodoro_MeetingInNormalMode(t *testing.T) {
	e, _, _ := newTestEngine(t, newMemStore())
	addMeeting(t, e)

	require.NoError(t, e.StartPomodoro())
	assert.False(t, e.Decision().IsBlocking)
}

func TestPomodoro_MeetingInStrictMode(t *testing.T) {
	e, _, _ := newTestEngine(t, newMemStore())
	addMeeting(t, e)
	require.NoError(t, e.SetUnblockable(true))

	require.NoError(t, e.StartPomodoro())
	assert.True(t, e.Decision().IsBlocking)
}

func TestPomodoro_StopLock(t *testing.T) {
	t.Run("within grace window", func(t *testing.T) {
		e, clock, sched := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetUnblockable(true))
		require.NoError(t, e.StartPomodoro())

		clock.Advance(time.Second)
		require.NoError(t, e.StopPomodoro())
		assert.Equal(t, domain.PomodoroIdle, e.Snapshot().Pomodoro.Status)
		assert.Empty(t, sched.live())
		assert.False(t, e.Decision().IsBlocking)
	})

	t.Run("after grace window", func(t *testing.T) {
		e, clock, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.SetUnblockable(true))
		require.NoError(t, e.StartPomodoro())

		clock.Advance(11 * time.Second)
		assert.True(t, e.Snapshot().PomodoroLocked)
		assert.ErrorIs(t, e.StopPomodoro(), ErrPomodoroLocked)
		assert.ErrorIs(t, e.SkipPomodoroPhase(), ErrPomodoroLocked)
		assert.Equal(t, domain.PomodoroFocusing, e.Snapshot().Pomodoro.Status)
	})

	t.Run("not strict", func(t *testing.T) {
		e, clock, _ := newTestEngine(t, newMemStore())
		require.NoError(t, e.StartPomodoro())

		clock.Advance(time.Hour)
		assert.NoError(t, e.StopPomodoro())
	})
}

func TestPomodoro_Skip(t *testing.T) {
	e, _, _ := newTestEngine(t, newMemStore())

	assert.ErrorIs(t, e.SkipPomodoroPhase(), ErrPomodoroIdle)
	assert.ErrorIs(t, e.StopPomodoro(), ErrPomodoroIdle)

	require.NoError(t, e.StartPomodoro())
	require.NoError(t, e.SkipPomodoroPhase())
	assert.Equal(t, domain.PomodoroOnBreak, e.Snapshot().Pomodoro.Status)
	assert.False(t, e.Decision().IsBlocking)

	require.NoError(t, e.SkipPomodoroPhase())
	assert.Equal(t, domain.PomodoroFocusing, e.Snapshot().Pomodoro.Status)
	assert.True(t, e.Decision().IsBlocking)
}

func TestPomodoro_StartTwiceIsNoop(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())

	require.NoError(t, e.StartPomodoro())
	require.NoError(t, e.StartPomodoro())

	assert.Len(t, sched.live(), 1)
}

func TestSetPomodoroDurations_Invalid(t *testing.T) {
	e, _, _ := newTestEngine(t, newMemStore())

	assert.ErrorIs(t, e.SetPomodoroDurations(0, 5), ErrInvalidDuration)
	assert.ErrorIs(t, e.SetPomodoroDurations(25, -1), ErrInvalidDuration)
	assert.Equal(t, domain.DefaultFocusMinutes, e.Snapshot().Pomodoro.FocusMinutes)
}

func TestClose_CancelsCountdowns(t *testing.T) {
	e, _, sched := newTestEngine(t, newMemStore())
	require.NoError(t, e.SetBlocking(true))
	require.NoError(t, e.StartPause(5))
	require.NoError(t, e.StartPomodoro())
	require.Len(t, sched.live(), 2)

	e.Close()

	assert.Empty(t, sched.live())
}
