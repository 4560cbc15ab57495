package services

import (
	"testing"

	"github.com/sugarswap/sugarswap-go/internal/domain/entities/catalog"
	"github.com/sugarswap/sugarswap-go/internal/domain/entities/progress"
	"github.com/sugarswap/sugarswap-go/internal/domain/feedback"
	"github.com/sugarswap/sugarswap-go/internal/domain/nutrition"
	"github.com/sugarswap/sugarswap-go/internal/infrastructure/observability/logging"
	"github.com/sugarswap/sugarswap-go/pkg/config"
)

func testLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	cfg := logging.DefaultLoggerConfig()
	cfg.OutputToFile = false
	cfg.OutputToConsole = false
	logger, err := logging.NewChanneledLogger(cfg)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return logger
}

func testNutritionModel() nutrition.Model {
	return nutrition.Model{
		NemesisSugarPer100ml: 10.6,
		DefaultServingMl:     330,
		SugarFreeThreshold:   0.5,
		SugarCubeGrams:       3,
		DailyRecommended:     75,
	}
}

func quadraticService(t *testing.T) *ProgressionService {
	t.Helper()
	return NewProgressionServiceWithPolicies(
		testNutritionModel(),
		config.XPPolicyQuadratic, 3000,
		config.StreakPolicyDecay, 0.8,
		testLogger(t),
	)
}

func TestXPForLevelQuadratic(t *testing.T) {
	s := quadraticService(t)

	if got := s.XPForLevel(2); got != 400 {
		t.Errorf("XPForLevel(2) = %v, want 400", got)
	}
	if got := s.XPForLevel(10); got != 10000 {
		t.Errorf("XPForLevel(10) = %v, want 10000", got)
	}
}

func TestXPForLevelFlat(t *testing.T) {
	s := NewProgressionServiceWithPolicies(
		testNutritionModel(),
		config.XPPolicyFlat, 3000,
		config.StreakPolicyDecay, 0.8,
		testLogger(t),
	)

	if got := s.XPForLevel(2); got != 3000 {
		t.Errorf("XPForLevel(2) = %v, want 3000", got)
	}
	if got := s.XPForLevel(50); got != 3000 {
		t.Errorf("XPForLevel(50) = %v, want 3000", got)
	}
}

func TestAddXPCarriesOvershootIntoSingleLevelUp(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	state.CurrentXP = 50

	leveledUp := s.AddXP(state, 400)

	if !leveledUp {
		t.Fatal("AddXP should report a level-up")
	}
	if state.Level != 2 {
		t.Errorf("Level = %d, want 2", state.Level)
	}
	if state.CurrentXP != 50 {
		t.Errorf("CurrentXP = %v, want 50 carried over", state.CurrentXP)
	}
}

func TestAddXPBelowThreshold(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()

	if s.AddXP(state, 399) {
		t.Fatal("AddXP below threshold should not level up")
	}
	if state.Level != 1 || state.CurrentXP != 399 {
		t.Errorf("state = level %d xp %v, want level 1 xp 399", state.Level, state.CurrentXP)
	}
}

func TestAddXPAtMostOneLevelPerCall(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()

	// A huge grant still only advances one level; the remainder carries
	s.AddXP(state, 5000)
	if state.Level != 2 {
		t.Errorf("Level = %d, want 2 (single carry per call)", state.Level)
	}
	if state.CurrentXP != 4600 {
		t.Errorf("CurrentXP = %v, want 4600", state.CurrentXP)
	}
}

func TestUpdateStreak(t *testing.T) {
	const today = "2026-08-31"
	const yesterday = "2026-08-30"

	t.Run("first log stays at zero under decay", func(t *testing.T) {
		s := quadraticService(t)
		state := progress.NewGamificationState()

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 0 {
			t.Errorf("streak = %d, want 0", state.Streaks.CurrentStreakDays)
		}
		if state.Streaks.LastLogDate != today {
			t.Errorf("LastLogDate = %q, want %q", state.Streaks.LastLogDate, today)
		}
	})

	t.Run("first log starts at one under reset", func(t *testing.T) {
		s := NewProgressionServiceWithPolicies(testNutritionModel(),
			config.XPPolicyQuadratic, 3000, config.StreakPolicyReset, 0.8, testLogger(t))
		state := progress.NewGamificationState()

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 1 {
			t.Errorf("streak = %d, want 1", state.Streaks.CurrentStreakDays)
		}
	})

	t.Run("consecutive day increments", func(t *testing.T) {
		s := quadraticService(t)
		state := progress.NewGamificationState()
		state.Streaks = progress.Streaks{CurrentStreakDays: 4, LastLogDate: yesterday}

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 5 {
			t.Errorf("streak = %d, want 5", state.Streaks.CurrentStreakDays)
		}
	})

	t.Run("same day is a no-op", func(t *testing.T) {
		s := quadraticService(t)
		state := progress.NewGamificationState()
		state.Streaks = progress.Streaks{CurrentStreakDays: 4, LastLogDate: today}

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 4 {
			t.Errorf("streak = %d, want 4", state.Streaks.CurrentStreakDays)
		}
	})

	t.Run("missed day decays by factor", func(t *testing.T) {
		s := quadraticService(t)
		state := progress.NewGamificationState()
		state.Streaks = progress.Streaks{CurrentStreakDays: 10, LastLogDate: "2026-08-20"}

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 8 {
			t.Errorf("streak = %d, want floor(10*0.8)=8", state.Streaks.CurrentStreakDays)
		}
	})

	t.Run("missed day restarts at one under reset", func(t *testing.T) {
		s := NewProgressionServiceWithPolicies(testNutritionModel(),
			config.XPPolicyQuadratic, 3000, config.StreakPolicyReset, 0.8, testLogger(t))
		state := progress.NewGamificationState()
		state.Streaks = progress.Streaks{CurrentStreakDays: 10, LastLogDate: "2026-08-20"}

		s.UpdateStreak(state, today)
		if state.Streaks.CurrentStreakDays != 1 {
			t.Errorf("streak = %d, want 1", state.Streaks.CurrentStreakDays)
		}
	})
}

func TestRecordConsumptionDayRollover(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()

	s.RecordConsumption(state, 30, "2026-08-30")
	s.RecordConsumption(state, 10, "2026-08-30")
	if state.LifetimeStats.DailySugarConsumed != 40 {
		t.Errorf("daily = %v, want 40", state.LifetimeStats.DailySugarConsumed)
	}

	s.RecordConsumption(state, 5, "2026-08-31")
	if state.LifetimeStats.DailySugarConsumed != 5 {
		t.Errorf("daily after rollover = %v, want 5", state.LifetimeStats.DailySugarConsumed)
	}
	if state.LifetimeStats.TotalSugarConsumed != 45 {
		t.Errorf("total = %v, want 45", state.LifetimeStats.TotalSugarConsumed)
	}
}

func TestRolloverDaily(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	state.LifetimeStats.DailySugarConsumed = 40
	state.LifetimeStats.LastConsumedDate = "2026-08-30"

	if !s.RolloverDaily(state, "2026-08-31") {
		t.Fatal("RolloverDaily should reset on a new day")
	}
	if state.LifetimeStats.DailySugarConsumed != 0 {
		t.Errorf("daily = %v, want 0", state.LifetimeStats.DailySugarConsumed)
	}

	if s.RolloverDaily(state, "2026-08-31") {
		t.Fatal("RolloverDaily on the same day should be a no-op")
	}
}

func TestProcessProductSugarFree(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	product := &catalog.Product{
		ProductName:     "Zero Cola",
		ProductQuantity: 330,
		Nutriments:      catalog.Nutriments{Sugars100g: 0},
	}

	outcome := s.ProcessProduct(state, product, "2026-08-31")

	wantSaving := 330.0 / 100.0 * 10.6
	if outcome.SugarSaved < wantSaving-0.001 || outcome.SugarSaved > wantSaving+0.001 {
		t.Errorf("SugarSaved = %v, want %v", outcome.SugarSaved, wantSaving)
	}
	if state.LifetimeStats.TotalSugarSaved != outcome.SugarSaved {
		t.Error("saving not recorded on state")
	}
	if len(outcome.Feedback) != 1 || outcome.Feedback[0].Title != "CRITICAL HIT!" {
		t.Errorf("feedback = %+v, want single CRITICAL HIT!", outcome.Feedback)
	}
	if state.Streaks.LastLogDate != "2026-08-31" {
		t.Error("streak not settled")
	}
}

func TestProcessProductSugary(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	product := &catalog.Product{
		ProductName: "Full Sugar Cola",
		Nutriments:  catalog.Nutriments{Sugars100g: 10.6, SugarsServing: 25},
	}

	outcome := s.ProcessProduct(state, product, "2026-08-31")

	// Precomputed per-serving figure wins over the derived value
	if outcome.SugarConsumed != 25 {
		t.Errorf("SugarConsumed = %v, want 25", outcome.SugarConsumed)
	}
	if state.LifetimeStats.DailySugarConsumed != 25 {
		t.Errorf("daily = %v, want 25", state.LifetimeStats.DailySugarConsumed)
	}
	if outcome.XPAwarded != 0 {
		t.Errorf("XPAwarded = %v, want 0 for a hazard", outcome.XPAwarded)
	}
	if len(outcome.Feedback) != 1 || outcome.Feedback[0].Title != "Hazard Detected" {
		t.Errorf("feedback = %+v, want single Hazard Detected", outcome.Feedback)
	}
}

func TestProcessProductLevelUpAppendsFeedback(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	state.CurrentXP = 399 // One point below level 2

	product := &catalog.Product{
		ProductQuantity: 330,
		Nutriments:      catalog.Nutriments{Sugars100g: 0},
	}
	outcome := s.ProcessProduct(state, product, "2026-08-31")

	if !outcome.LeveledUp || outcome.NewLevel != 2 {
		t.Fatalf("outcome = %+v, want level-up to 2", outcome)
	}
	if len(outcome.Feedback) != 2 || outcome.Feedback[1].Title != "LEVEL UP!" {
		t.Errorf("feedback = %+v, want CRITICAL HIT! then LEVEL UP!", outcome.Feedback)
	}
	foundCue := false
	for _, e := range outcome.Effects {
		if e == EffectLevelUp {
			foundCue = true
		}
	}
	if !foundCue {
		t.Error("level-up effect cue missing")
	}
}

func TestLogWater(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()

	outcome := s.LogWater(state, "2026-08-31")

	want := 330.0 / 100.0 * 10.6
	if outcome.SugarSaved < want-0.001 || outcome.SugarSaved > want+0.001 {
		t.Errorf("SugarSaved = %v, want %v", outcome.SugarSaved, want)
	}
	if len(outcome.Feedback) == 0 || outcome.Feedback[0].Title != "Healthy Choice!" {
		t.Errorf("feedback = %+v, want Healthy Choice!", outcome.Feedback)
	}
	if outcome.Feedback[0].Kind != feedback.KindOK {
		t.Error("water feedback should be an ok item")
	}
}

func TestDailySugarPercent(t *testing.T) {
	s := quadraticService(t)
	state := progress.NewGamificationState()
	state.LifetimeStats.DailySugarConsumed = 37.5

	if got := s.DailySugarPercent(state); got != 50 {
		t.Errorf("DailySugarPercent = %v, want 50", got)
	}
}
