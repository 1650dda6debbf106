package usecase

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// RuleSets returns a copy of all rule sets.
func (e *FocusEngine) RuleSets() []domain.RuleSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneRuleSets(e.state.RuleSets)
}

// ActiveRuleSet returns the selected rule set, or the first one.
func (e *FocusEngine) ActiveRuleSet() (domain.RuleSet, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rs := e.selectedRuleSetLocked()
	if rs == nil {
		return domain.RuleSet{}, false
	}
	return cloneRuleSets([]domain.RuleSet{*rs})[0], true
}

// CreateRuleSet adds a rule set with a fresh id.
func (e *FocusEngine) CreateRuleSet(name string, urls []string) (domain.RuleSet, error) {
	rs := domain.RuleSet{
		ID:   uuid.NewString(),
		Name: strings.TrimSpace(name),
		URLs: cleanURLs(urls),
	}
	if rs.Name == "" {
		return domain.RuleSet{}, fmt.Errorf("%w: name is required", ErrInvalidRuleSet)
	}

	err := e.apply(func(s *Settings) error {
		s.RuleSets = append(s.RuleSets, rs)
		return nil
	})
	return rs, err
}

// ImportRuleSets upserts rule sets by id. Entries without an id get one.
func (e *FocusEngine) ImportRuleSets(sets []domain.RuleSet) ([]domain.RuleSet, error) {
	imported := make([]domain.RuleSet, 0, len(sets))
	for _, rs := range sets {
		rs.Name = strings.TrimSpace(rs.Name)
		if rs.Name == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidRuleSet)
		}
		if rs.ID == "" {
			rs.ID = uuid.NewString()
		}
		rs.URLs = cleanURLs(rs.URLs)
		imported = append(imported, rs)
	}

	err := e.apply(func(s *Settings) error {
		for _, rs := range imported {
			if existing := findRuleSet(s.RuleSets, rs.ID); existing != nil {
				*existing = rs
				continue
			}
			s.RuleSets = append(s.RuleSets, rs)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return imported, nil
}

// DeleteRuleSet removes a rule set. The last rule set cannot be deleted and
// schedules referencing the deleted set lose their reference.
func (e *FocusEngine) DeleteRuleSet(id string) error {
	return e.apply(func(s *Settings) error {
		idx := -1
		for i := range s.RuleSets {
			if s.RuleSets[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ErrRuleSetNotFound
		}
		if len(s.RuleSets) == 1 {
			return fmt.Errorf("%w: cannot delete the last rule set", ErrInvalidRuleSet)
		}

		s.RuleSets = append(s.RuleSets[:idx], s.RuleSets[idx+1:]...)
		if s.ActiveRuleSetID == id {
			s.ActiveRuleSetID = ""
		}
		for i := range s.Schedules {
			if s.Schedules[i].RuleSetID == id {
				s.Schedules[i].RuleSetID = ""
			}
		}
		return nil
	})
}

// SelectRuleSet makes id the rule set used for manual and Pomodoro sessions.
func (e *FocusEngine) SelectRuleSet(id string) error {
	return e.apply(func(s *Settings) error {
		if findRuleSet(s.RuleSets, id) == nil {
			return ErrRuleSetNotFound
		}
		s.ActiveRuleSetID = id
		return nil
	})
}

// AddURLToActiveRuleSet appends url to the selected rule set unless present.
func (e *FocusEngine) AddURLToActiveRuleSet(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("%w: url is required", ErrInvalidRuleSet)
	}
	return e.apply(func(s *Settings) error {
		rs := findRuleSet(s.RuleSets, s.ActiveRuleSetID)
		if rs == nil {
			if len(s.RuleSets) == 0 {
				return ErrRuleSetNotFound
			}
			rs = &s.RuleSets[0]
		}
		for _, u := range rs.URLs {
			if u == url {
				return nil
			}
		}
		rs.URLs = append(rs.URLs, url)
		return nil
	})
}

// Schedules returns a copy of all schedules.
func (e *FocusEngine) Schedules() []domain.Schedule {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.Schedule(nil), e.state.Schedules...)
}

// AddSchedule validates and stores a schedule, assigning a fresh id.
// For one-off schedules Days is derived from Date.
func (e *FocusEngine) AddSchedule(sch domain.Schedule) (domain.Schedule, error) {
	sch.ID = uuid.NewString()
	if sch.Type == "" {
		sch.Type = domain.ScheduleFocus
	}
	if sch.Date != nil {
		sch.Days = []int{domain.Weekday(*sch.Date)}
	}
	if err := validateSchedule(sch); err != nil {
		return domain.Schedule{}, err
	}

	err := e.apply(func(s *Settings) error {
		if sch.RuleSetID != "" && findRuleSet(s.RuleSets, sch.RuleSetID) == nil {
			return ErrRuleSetNotFound
		}
		s.Schedules = append(s.Schedules, sch)
		return nil
	})
	if err != nil {
		return domain.Schedule{}, err
	}
	return sch, nil
}

// DeleteSchedule removes a schedule by id.
func (e *FocusEngine) DeleteSchedule(id string) error {
	return e.apply(func(s *Settings) error {
		for i := range s.Schedules {
			if s.Schedules[i].ID == id {
				s.Schedules = append(s.Schedules[:i], s.Schedules[i+1:]...)
				return nil
			}
		}
		return ErrScheduleNotFound
	})
}

func validateSchedule(s domain.Schedule) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSchedule)
	}
	if s.Type != domain.ScheduleFocus && s.Type != domain.ScheduleBreak {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, s.Type)
	}
	if len(s.Days) == 0 {
		return fmt.Errorf("%w: at least one day is required", ErrInvalidSchedule)
	}
	for _, d := range s.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: day %d out of range 1..7", ErrInvalidSchedule, d)
		}
	}
	for _, t := range []domain.TimeOfDay{s.Start, s.End} {
		if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("%w: time %02d:%02d out of range", ErrInvalidSchedule, t.Hour, t.Minute)
		}
	}
	if s.Start == s.End {
		return fmt.Errorf("%w: start and end are equal", ErrInvalidSchedule)
	}
	return nil
}

func cleanURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}
