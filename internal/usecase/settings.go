package usecase

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Keys of the logical schema inside the key-value store.
const (
	KeyRuleSets        = "rule_sets"
	KeyActiveRuleSetID = "active_rule_set_id"
	KeySchedules       = "schedules"
	KeyFocusMinutes    = "pomodoro_focus_minutes"
	KeyBreakMinutes    = "pomodoro_break_minutes"
	KeyUnblockable     = "is_unblockable"
	KeyBlocking        = "is_blocking"
	KeyWasAutoStarted  = "was_auto_started"
	KeyCalendarEnabled = "calendar_enabled"
)

// DefaultRuleSetID is the id of the built-in rule set.
const DefaultRuleSetID = "default"

// DefaultRuleSet returns the built-in rule set used when nothing usable is stored.
func DefaultRuleSet() domain.RuleSet {
	return domain.RuleSet{
		ID:   DefaultRuleSetID,
		Name: "Default",
		URLs: []string{
			"google.com",
			"github.com",
			"stackoverflow.com",
			"pkg.go.dev",
			"developer.apple.com",
		},
	}
}

// Settings is everything the engine persists.
type Settings struct {
	RuleSets        []domain.RuleSet
	ActiveRuleSetID string
	Schedules       []domain.Schedule
	FocusMinutes    int
	BreakMinutes    int
	IsUnblockable   bool
	IsBlocking      bool
	WasAutoStarted  bool
	CalendarEnabled bool
}

// SettingsRepository maps Settings onto JSON blobs in a domain.KeyValueStore.
type SettingsRepository struct {
	store  domain.KeyValueStore
	logger *zap.Logger
}

// NewSettingsRepository creates a repository over store.
func NewSettingsRepository(store domain.KeyValueStore, logger *zap.Logger) *SettingsRepository {
	return &SettingsRepository{store: store, logger: logger}
}

// Load reads all settings. It never fails: unreadable or undecodable keys
// fall back to their defaults.
func (r *SettingsRepository) Load() Settings {
	s := Settings{
		FocusMinutes: domain.DefaultFocusMinutes,
		BreakMinutes: domain.DefaultBreakMinutes,
	}

	if !r.get(KeyRuleSets, &s.RuleSets) || !usableRuleSets(s.RuleSets) {
		s.RuleSets = []domain.RuleSet{DefaultRuleSet()}
	}
	r.get(KeyActiveRuleSetID, &s.ActiveRuleSetID)
	if !r.get(KeySchedules, &s.Schedules) {
		s.Schedules = nil
	}

	var minutes int
	if r.get(KeyFocusMinutes, &minutes) && minutes > 0 {
		s.FocusMinutes = minutes
	}
	minutes = 0
	if r.get(KeyBreakMinutes, &minutes) && minutes > 0 {
		s.BreakMinutes = minutes
	}

	r.get(KeyUnblockable, &s.IsUnblockable)
	r.get(KeyBlocking, &s.IsBlocking)
	r.get(KeyWasAutoStarted, &s.WasAutoStarted)
	r.get(KeyCalendarEnabled, &s.CalendarEnabled)

	return s
}

// Save writes all settings. The first failing key aborts the write.
func (r *SettingsRepository) Save(s Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{KeyRuleSets, s.RuleSets},
		{KeyActiveRuleSetID, s.ActiveRuleSetID},
		{KeySchedules, s.Schedules},
		{KeyFocusMinutes, s.FocusMinutes},
		{KeyBreakMinutes, s.BreakMinutes},
		{KeyUnblockable, s.IsUnblockable},
		{KeyBlocking, s.IsBlocking},
		{KeyWasAutoStarted, s.WasAutoStarted},
		{KeyCalendarEnabled, s.CalendarEnabled},
	}

	for _, v := range values {
		data, err := json.Marshal(v.value)
		if err != nil {
			return err
		}
		if err := r.store.Set(v.key, data); err != nil {
			return err
		}
	}
	return nil
}

// get decodes key into dst. It returns false when the key is missing,
// unreadable, or corrupted; dst may then be partially written.
func (r *SettingsRepository) get(key string, dst any) bool {
	data, ok, err := r.store.Get(key)
	if err != nil {
		r.logger.Warn("failed to read setting", zap.String("key", key), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.Warn("corrupted setting, using default", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func usableRuleSets(sets []domain.RuleSet) bool {
	if len(sets) == 0 {
		return false
	}
	for _, rs := range sets {
		if rs.ID == "" {
			return false
		}
	}
	return true
}
