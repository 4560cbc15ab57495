// Package progress provides domain entities for user gamification state.
// It defines the persisted progression record: experience, level, lifetime
// sugar statistics, streaks, and earned badges.
package progress

// GamificationState is the complete progression record for one user.
// Field names match the persisted JSON document, so changing a tag is a
// data migration.
type GamificationState struct {
	Level         int           `json:"level"`
	CurrentXP     float64       `json:"current_xp"`
	LifetimeStats LifetimeStats `json:"lifetime_stats"`
	Streaks       Streaks       `json:"streaks"`
	Badges        []string      `json:"badges"`
}

// LifetimeStats accumulates sugar totals across the account's lifetime.
// DailySugarConsumed resets when LastConsumedDate falls behind today.
type LifetimeStats struct {
	TotalSugarSaved    float64 `json:"total_sugar_saved_g"`
	TotalSugarConsumed float64 `json:"total_sugar_consumed_g"`
	DailySugarConsumed float64 `json:"daily_sugar_consumed_g"`
	LastConsumedDate   string  `json:"last_consumed_date"` // YYYY-MM-DD, empty if never logged
}

// Streaks tracks consecutive-day logging activity
type Streaks struct {
	CurrentStreakDays int    `json:"current_streak_days"`
	LastLogDate       string `json:"last_log_date"` // YYYY-MM-DD, empty if never logged
}

// NewGamificationState returns the starting state for a fresh account
func NewGamificationState() *GamificationState {
	return &GamificationState{
		Level:  1,
		Badges: []string{},
	}
}

// Normalize repairs a state loaded from storage so downstream code can rely
// on its invariants. Accounts created by older revisions may be missing the
// badges array or carry a zero level.
func (s *GamificationState) Normalize() {
	if s.Level < 1 {
		s.Level = 1
	}
	if s.CurrentXP < 0 {
		s.CurrentXP = 0
	}
	if s.Badges == nil {
		s.Badges = []string{}
	}
	if s.Streaks.CurrentStreakDays < 0 {
		s.Streaks.CurrentStreakDays = 0
	}
}

// HasBadge reports whether the user has already earned the named badge
func (s *GamificationState) HasBadge(name string) bool {
	for _, b := range s.Badges {
		if b == name {
			return true
		}
	}
	return false
}

// AwardBadge adds a badge if not already held, returning true when newly earned
func (s *GamificationState) AwardBadge(name string) bool {
	if s.HasBadge(name) {
		return false
	}
	s.Badges = append(s.Badges, name)
	return true
}
