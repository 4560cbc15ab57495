// Package services contains the application services orchestrating the
// SugarSwap domain: progression, product resolution, session lifecycle,
// authentication, and debounced persistence.
package services

import (
	"fmt"
	"math"
	"time"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/domain/nutrition"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

const dateLayout = "2006-01-02"

// Effect cues played by the browser collaborator
const (
	EffectLevelUp     = "jackpot_win.mp3"
	EffectScanSuccess = "scan_success.mp3"
	EffectConfetti    = "confetti"
)

// Outcome collects everything a progression mutation produced: feedback
// items to enqueue and effect cues to push to the client.
type Outcome struct {
	SugarSaved    float64
	SugarConsumed float64
	XPAwarded     float64
	LeveledUp     bool
	NewLevel      int
	Feedback      []*feedback.Item
	Effects       []string
}

// ProgressionService implements the gamification rules: XP and levels,
// streaks, daily and lifetime sugar accounting. All methods mutate a
// GamificationState the caller guards with the session lock.
type ProgressionService struct {
	model             nutrition.Model
	xpPolicy          string
	xpFlatRequirement float64
	streakPolicy      string
	streakDecayFactor float64
	logger            *logging.ChanneledLogger
}

// NewProgressionService creates a progression service from configuration
func NewProgressionService(logger *logging.ChanneledLogger) *ProgressionService {
	return &ProgressionService{
		model:             nutrition.DefaultModel(),
		xpPolicy:          config.XPPolicy,
		xpFlatRequirement: config.XPFlatRequirement,
		streakPolicy:      config.StreakPolicy,
		streakDecayFactor: config.StreakDecayFactor,
		logger:            logger,
	}
}

// NewProgressionServiceWithPolicies creates a progression service with
// explicit policies, used by tests
func NewProgressionServiceWithPolicies(model nutrition.Model, xpPolicy string, xpFlat float64, streakPolicy string, decayFactor float64, logger *logging.ChanneledLogger) *ProgressionService {
	return &ProgressionService{
		model:             model,
		xpPolicy:          xpPolicy,
		xpFlatRequirement: xpFlat,
		streakPolicy:      streakPolicy,
		streakDecayFactor: decayFactor,
		logger:            logger,
	}
}

// Model exposes the sugar model for derived stats
func (s *ProgressionService) Model() nutrition.Model {
	return s.model
}

// XPForLevel returns the XP required to reach the given level
func (s *ProgressionService) XPForLevel(level int) float64 {
	if s.xpPolicy == config.XPPolicyFlat {
		return s.xpFlatRequirement
	}
	return float64(level) * float64(level) * 100
}

// AddXP grants experience and applies at most one level-up, carrying the
// overshoot into the new level. Returns whether a level-up occurred.
func (s *ProgressionService) AddXP(state *progress.GamificationState, amount float64) bool {
	if amount <= 0 {
		return false
	}
	state.CurrentXP += amount

	threshold := s.XPForLevel(state.Level + 1)
	if state.CurrentXP < threshold {
		return false
	}

	state.CurrentXP -= threshold
	state.Level++
	s.logger.Progression().Info("Level up", "level", state.Level, "carriedXp", state.CurrentXP)
	return true
}

// UpdateStreak settles the streak counter for a log on the given day.
// Same-day logs are no-ops; a log the day after the last one extends the
// streak; a gap applies the configured streak policy.
func (s *ProgressionService) UpdateStreak(state *progress.GamificationState, today string) {
	last := state.Streaks.LastLogDate
	if last == today {
		return
	}

	switch {
	case last == yesterdayOf(today):
		state.Streaks.CurrentStreakDays++
	case last == "" && s.streakPolicy == config.StreakPolicyReset:
		state.Streaks.CurrentStreakDays = 1
	case last == "":
		// Decay policy leaves a first-ever log at zero; tomorrow's log
		// starts the count
		state.Streaks.CurrentStreakDays = 0
	case s.streakPolicy == config.StreakPolicyReset:
		state.Streaks.CurrentStreakDays = 1
	default:
		decayed := math.Floor(float64(state.Streaks.CurrentStreakDays) * s.streakDecayFactor)
		state.Streaks.CurrentStreakDays = int(decayed)
	}

	state.Streaks.LastLogDate = today
}

// RolloverDaily resets the daily consumption counter when the calendar day
// has changed since the last consumption. Returns true when a reset
// happened; the caller decides whether to persist.
func (s *ProgressionService) RolloverDaily(state *progress.GamificationState, today string) bool {
	if state.LifetimeStats.LastConsumedDate == today {
		return false
	}
	if state.LifetimeStats.DailySugarConsumed == 0 && state.LifetimeStats.LastConsumedDate == "" {
		return false
	}
	state.LifetimeStats.DailySugarConsumed = 0
	state.LifetimeStats.LastConsumedDate = today
	return true
}

// RecordConsumption adds consumed sugar to the daily and lifetime totals,
// resetting the daily counter first on day rollover
func (s *ProgressionService) RecordConsumption(state *progress.GamificationState, grams float64, today string) {
	if state.LifetimeStats.LastConsumedDate != today {
		state.LifetimeStats.DailySugarConsumed = 0
		state.LifetimeStats.LastConsumedDate = today
	}
	state.LifetimeStats.DailySugarConsumed += grams
	state.LifetimeStats.TotalSugarConsumed += grams
}

// RecordSaving adds avoided sugar to the lifetime total
func (s *ProgressionService) RecordSaving(state *progress.GamificationState, grams float64) {
	state.LifetimeStats.TotalSugarSaved += grams
}

// ProcessProduct settles a confirmed product log: sugar-free products earn
// a saving and XP, sugary products record consumption, and the streak
// advances either way.
func (s *ProgressionService) ProcessProduct(state *progress.GamificationState, product *catalog.Product, today string) *Outcome {
	outcome := &Outcome{}

	saving := s.model.SugarSaving(product)
	if saving > 0 {
		s.RecordSaving(state, saving)
		outcome.SugarSaved = saving
		outcome.XPAwarded = saving
		outcome.LeveledUp = s.AddXP(state, saving)
		outcome.Feedback = append(outcome.Feedback, &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "CRITICAL HIT!",
			Message: fmt.Sprintf("You avoided %.1fg of sugar. +%.0f XP!", saving, saving),
			Icon:    "zap",
		})
		outcome.Effects = append(outcome.Effects, EffectScanSuccess, EffectConfetti)
	} else {
		intake := s.model.SugarIntake(product)
		s.RecordConsumption(state, intake, today)
		outcome.SugarConsumed = intake
		outcome.Feedback = append(outcome.Feedback, &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "Hazard Detected",
			Message: fmt.Sprintf("%s carries %.1fg of sugar (%d cubes).", product.DisplayName(), intake, s.model.SugarCubes(intake)),
			Icon:    "alert-triangle",
		})
	}

	if outcome.LeveledUp {
		outcome.NewLevel = state.Level
		outcome.Feedback = append(outcome.Feedback, &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "LEVEL UP!",
			Message: fmt.Sprintf("You are now Level %d!", state.Level),
			Icon:    "trophy",
		})
		outcome.Effects = append(outcome.Effects, EffectLevelUp)
	}

	s.UpdateStreak(state, today)

	s.logger.Progression().Info("Product processed",
		"product", product.DisplayName(),
		"saved", outcome.SugarSaved,
		"consumed", outcome.SugarConsumed,
		"level", state.Level,
		"streak", state.Streaks.CurrentStreakDays,
	)
	return outcome
}

// LogWater settles a logged glass of water: one default serving of a
// sugar-free drink, with XP and streak credit
func (s *ProgressionService) LogWater(state *progress.GamificationState, today string) *Outcome {
	outcome := &Outcome{}

	saving := s.model.WaterSaving()
	s.RecordSaving(state, saving)
	outcome.SugarSaved = saving
	outcome.XPAwarded = saving
	outcome.LeveledUp = s.AddXP(state, saving)
	outcome.Feedback = append(outcome.Feedback, &feedback.Item{
		Kind:    feedback.KindOK,
		Title:   "Healthy Choice!",
		Message: fmt.Sprintf("Water instead of soda avoids %.1fg of sugar. +%.0f XP!", saving, saving),
		Icon:    "droplet",
	})
	outcome.Effects = append(outcome.Effects, EffectScanSuccess)

	if outcome.LeveledUp {
		outcome.NewLevel = state.Level
		outcome.Feedback = append(outcome.Feedback, &feedback.Item{
			Kind:    feedback.KindOK,
			Title:   "LEVEL UP!",
			Message: fmt.Sprintf("You are now Level %d!", state.Level),
			Icon:    "trophy",
		})
		outcome.Effects = append(outcome.Effects, EffectLevelUp)
	}

	s.UpdateStreak(state, today)
	s.logger.Progression().Info("Water logged", "saved", saving, "level", state.Level)
	return outcome
}

// DailySugarPercent returns today's consumption as a percentage of the
// recommended daily sugar intake
func (s *ProgressionService) DailySugarPercent(state *progress.GamificationState) float64 {
	if s.model.DailyRecommended <= 0 {
		return 0
	}
	return state.LifetimeStats.DailySugarConsumed / s.model.DailyRecommended * 100
}

// StatsSnapshot is the derived dashboard view of a gamification state
type StatsSnapshot struct {
	Level               int      `json:"level"`
	CurrentXP           float64  `json:"current_xp"`
	XPForNextLevel      float64  `json:"xp_for_next_level"`
	StreakDays          int      `json:"streak_days"`
	TotalSugarSavedG    float64  `json:"total_sugar_saved_g"`
	TotalSugarConsumedG float64  `json:"total_sugar_consumed_g"`
	DailySugarConsumedG float64  `json:"daily_sugar_consumed_g"`
	DailySugarPercent   float64  `json:"daily_sugar_percent"`
	DailySugarCubes     int      `json:"daily_sugar_cubes"`
	Badges              []string `json:"badges"`
}

// Snapshot derives the dashboard numbers from a state
func (s *ProgressionService) Snapshot(state *progress.GamificationState) StatsSnapshot {
	return StatsSnapshot{
		Level:               state.Level,
		CurrentXP:           state.CurrentXP,
		XPForNextLevel:      s.XPForLevel(state.Level + 1),
		StreakDays:          state.Streaks.CurrentStreakDays,
		TotalSugarSavedG:    state.LifetimeStats.TotalSugarSaved,
		TotalSugarConsumedG: state.LifetimeStats.TotalSugarConsumed,
		DailySugarConsumedG: state.LifetimeStats.DailySugarConsumed,
		DailySugarPercent:   s.DailySugarPercent(state),
		DailySugarCubes:     s.model.SugarCubes(state.LifetimeStats.DailySugarConsumed),
		Badges:              state.Badges,
	}
}

// Today returns the current local calendar day
func Today() string {
	return time.Now().Format(dateLayout)
}

// yesterdayOf returns the calendar day before the given day. Malformed
// input yields an empty string, which never matches a stored date.
func yesterdayOf(today string) string {
	t, err := time.Parse(dateLayout, today)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(dateLayout)
}
