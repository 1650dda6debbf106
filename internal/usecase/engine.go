// Package usecase contains application business logic.
package usecase

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Observer is notified after every policy evaluation.
// Implementation: metrics.Metrics.
type Observer interface {
	Evaluated(decision domain.BlockingDecision)
}

// Snapshot is a consistent read of the engine state.
type Snapshot struct {
	Decision        domain.BlockingDecision `json:"decision"`
	Pause           domain.PauseState       `json:"pause"`
	Pomodoro        domain.PomodoroState    `json:"pomodoro"`
	PomodoroLocked  bool                    `json:"pomodoro_locked"`
	IsUnblockable   bool                    `json:"is_unblockable"`
	CalendarEnabled bool                    `json:"calendar_enabled"`
	ActiveRuleSetID string                  `json:"active_rule_set_id"`
	ActiveEvents    []domain.ExternalEvent  `json:"active_events"`
	RulesHash       uint64                  `json:"rules_hash"`
}

// FocusEngine is the policy state machine. It owns every piece of mutable
// focus state; all mutations go through apply, which persists and runs
// exactly one evaluation under the engine lock.
type FocusEngine struct {
	mu sync.Mutex

	settings  *SettingsRepository
	scheduler domain.Scheduler
	clock     domain.Clock
	observer  Observer
	logger    *zap.Logger

	state    Settings
	events   []domain.ExternalEvent
	allowed  []string
	hash     uint64
	pause    domain.PauseState
	pomodoro domain.PomodoroState

	cancelPause    domain.CancelFunc
	cancelPomodoro domain.CancelFunc
}

// NewFocusEngine loads persisted settings and returns an engine.
// Call Evaluate once before serving reads.
func NewFocusEngine(
	settings *SettingsRepository,
	scheduler domain.Scheduler,
	clock domain.Clock,
	logger *zap.Logger,
) *FocusEngine {
	state := settings.Load()
	return &FocusEngine{
		settings:  settings,
		scheduler: scheduler,
		clock:     clock,
		logger:    logger,
		state:     state,
		pomodoro: domain.PomodoroState{
			Status:       domain.PomodoroIdle,
			FocusMinutes: state.FocusMinutes,
			BreakMinutes: state.BreakMinutes,
		},
	}
}

// SetObserver installs an evaluation observer. Pass nil to remove it.
func (e *FocusEngine) SetObserver(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = o
}

// Evaluate recomputes the blocking decision from the current inputs.
func (e *FocusEngine) Evaluate() domain.BlockingDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluateLocked()
	return e.decisionLocked()
}

// Decision returns the last computed decision without re-evaluating.
func (e *FocusEngine) Decision() domain.BlockingDecision {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decisionLocked()
}

// IsPaused reports whether enforcement is suspended by a pause.
func (e *FocusEngine) IsPaused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pause.IsPaused
}

// Snapshot returns the full engine state.
func (e *FocusEngine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	var active []domain.ExternalEvent
	for _, ev := range e.events {
		if ev.IsActive(now) {
			active = append(active, ev)
		}
	}

	return Snapshot{
		Decision:        e.decisionLocked(),
		Pause:           e.pause,
		Pomodoro:        e.pomodoro,
		PomodoroLocked:  e.pomodoro.IsLocked(e.state.IsUnblockable, now),
		IsUnblockable:   e.state.IsUnblockable,
		CalendarEnabled: e.state.CalendarEnabled,
		ActiveRuleSetID: e.state.ActiveRuleSetID,
		ActiveEvents:    active,
		RulesHash:       e.hash,
	}
}

// SetBlocking is the manual toggle. Turning blocking off while strict mode is
// on is refused with ErrStrictMode. Turning it off always cancels a pause.
func (e *FocusEngine) SetBlocking(enabled bool) error {
	return e.apply(func(s *Settings) error {
		return e.setBlockingLocked(s, enabled)
	})
}

// EmergencyUnlock turns blocking off even in strict mode. Strict mode itself
// survives the unlock. A running Pomodoro is stopped, since it would
// otherwise re-block on the next evaluation.
func (e *FocusEngine) EmergencyUnlock() error {
	return e.apply(func(s *Settings) error {
		strict := s.IsUnblockable
		s.IsUnblockable = false
		err := e.setBlockingLocked(s, false)
		s.IsUnblockable = strict
		if err != nil {
			return err
		}
		e.stopPomodoroLocked()
		e.logger.Warn("emergency unlock used", zap.Bool("strict", strict))
		return nil
	})
}

// SetUnblockable toggles strict mode. Leaving strict mode while blocking is
// refused; emergency unlock is the only way out of an active strict session.
func (e *FocusEngine) SetUnblockable(enabled bool) error {
	return e.apply(func(s *Settings) error {
		if !enabled && s.IsUnblockable && s.IsBlocking {
			return ErrStrictMode
		}
		s.IsUnblockable = enabled
		// A pause that could not be started now does not survive either.
		if e.pause.IsPaused && e.pomodoro.IsLocked(enabled, e.clock.Now()) {
			e.logger.Info("pause cancelled by strict mode")
			e.clearPauseLocked()
		}
		return nil
	})
}

// SetExternalEvents replaces the calendar events known to the engine.
func (e *FocusEngine) SetExternalEvents(events []domain.ExternalEvent) {
	_ = e.apply(func(*Settings) error {
		e.events = append([]domain.ExternalEvent(nil), events...)
		return nil
	})
}

// SetCalendarEnabled gates whether calendar events count as meetings.
func (e *FocusEngine) SetCalendarEnabled(enabled bool) error {
	return e.apply(func(s *Settings) error {
		s.CalendarEnabled = enabled
		return nil
	})
}

// CalendarEnabled reports the calendar integration flag.
func (e *FocusEngine) CalendarEnabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.CalendarEnabled
}

// Close cancels the pause and Pomodoro countdowns.
func (e *FocusEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopPauseTimerLocked()
	e.stopPomodoroTimerLocked()
}

// apply runs mutation on a copy of the settings. On success the copy is
// committed, persisted and evaluated once; on error nothing changes.
func (e *FocusEngine) apply(mutation func(s *Settings) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.state
	next.RuleSets = cloneRuleSets(e.state.RuleSets)
	next.Schedules = append([]domain.Schedule(nil), e.state.Schedules...)
	if err := mutation(&next); err != nil {
		return err
	}
	e.state = next
	e.persistLocked()
	e.evaluateLocked()
	return nil
}

func (e *FocusEngine) setBlockingLocked(s *Settings, enabled bool) error {
	if !enabled && s.IsUnblockable && s.IsBlocking {
		return ErrStrictMode
	}
	s.IsBlocking = enabled
	s.WasAutoStarted = false
	if !enabled {
		e.clearPauseLocked()
	}
	return nil
}

// evaluateLocked implements the precedence: break beats focus, meetings
// beat focus unless strict, then the Pomodoro phase overrides both.
// Only auto-started blocking is ever cleared here.
func (e *FocusEngine) evaluateLocked() {
	now := e.clock.Now()
	s := &e.state

	var hasFocus, hasBreak bool
	var focusRuleSets []string
	for _, sch := range s.Schedules {
		if !sch.IsActive(now) {
			continue
		}
		switch sch.Type {
		case domain.ScheduleBreak:
			hasBreak = true
		default:
			hasFocus = true
			if sch.RuleSetID != "" {
				focusRuleSets = append(focusRuleSets, sch.RuleSetID)
			}
		}
	}

	hasMeeting := false
	if s.CalendarEnabled {
		for _, ev := range e.events {
			if ev.IsActive(now) {
				hasMeeting = true
				break
			}
		}
	}

	shouldBlock := hasFocus && !hasBreak && (s.IsUnblockable || !hasMeeting)
	switch e.pomodoro.Status {
	case domain.PomodoroFocusing:
		shouldBlock = s.IsUnblockable || !hasMeeting
	case domain.PomodoroOnBreak:
		shouldBlock = false
	}

	changed := false
	switch {
	case shouldBlock && !s.IsBlocking:
		s.IsBlocking = true
		s.WasAutoStarted = true
		changed = true
	case !shouldBlock && s.IsBlocking && s.WasAutoStarted:
		s.IsBlocking = false
		s.WasAutoStarted = false
		e.clearPauseLocked()
		changed = true
	}

	e.allowed = e.allowedRulesLocked(focusRuleSets)
	hash := rulesHash(e.allowed)
	if changed {
		e.persistLocked()
	}
	if changed || hash != e.hash {
		e.logger.Info("focus decision changed",
			zap.Bool("is_blocking", s.IsBlocking),
			zap.Bool("auto_started", s.WasAutoStarted),
			zap.Int("rules", len(e.allowed)),
			zap.Uint64("rules_hash", hash))
	}
	e.hash = hash

	if e.observer != nil {
		e.observer.Evaluated(e.decisionLocked())
	}
}

func (e *FocusEngine) allowedRulesLocked(focusRuleSets []string) []string {
	s := &e.state
	set := make(map[string]struct{})
	add := func(rs *domain.RuleSet) {
		if rs == nil {
			return
		}
		for _, u := range rs.URLs {
			set[u] = struct{}{}
		}
	}

	for _, id := range focusRuleSets {
		add(findRuleSet(s.RuleSets, id))
	}

	if s.IsBlocking && (!s.WasAutoStarted || e.pomodoro.Status == domain.PomodoroFocusing) {
		add(e.selectedRuleSetLocked())
	}

	if len(set) == 0 && s.IsBlocking && len(s.RuleSets) > 0 {
		add(&s.RuleSets[0])
	}

	rules := make([]string, 0, len(set))
	for u := range set {
		rules = append(rules, u)
	}
	sort.Strings(rules)
	return rules
}

// selectedRuleSetLocked returns the active rule set, falling back to the first one.
func (e *FocusEngine) selectedRuleSetLocked() *domain.RuleSet {
	if rs := findRuleSet(e.state.RuleSets, e.state.ActiveRuleSetID); rs != nil {
		return rs
	}
	if len(e.state.RuleSets) > 0 {
		return &e.state.RuleSets[0]
	}
	return nil
}

func (e *FocusEngine) decisionLocked() domain.BlockingDecision {
	return domain.BlockingDecision{
		IsBlocking:     e.state.IsBlocking,
		AllowedRules:   append([]string(nil), e.allowed...),
		WasAutoStarted: e.state.WasAutoStarted,
	}
}

func (e *FocusEngine) persistLocked() {
	if err := e.settings.Save(e.state); err != nil {
		e.logger.Warn("failed to persist settings", zap.Error(err))
	}
}

func findRuleSet(sets []domain.RuleSet, id string) *domain.RuleSet {
	if id == "" {
		return nil
	}
	for i := range sets {
		if sets[i].ID == id {
			return &sets[i]
		}
	}
	return nil
}

func cloneRuleSets(sets []domain.RuleSet) []domain.RuleSet {
	out := make([]domain.RuleSet, len(sets))
	for i, rs := range sets {
		out[i] = rs
		out[i].URLs = append([]string(nil), rs.URLs...)
	}
	return out
}

// rulesHash fingerprints a sorted allow-list.
func rulesHash(rules []string) uint64 {
	d := xxhash.New()
	for _, r := range rules {
		_, _ = d.WriteString(r)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}
