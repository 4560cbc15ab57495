// Package config provides centralized default values for SugarSwap
package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

var envLoaded sync.Once

func loadEnvFile() {
	envLoaded.Do(func() {
		if err := godotenv.Load(); err == nil {
			log.Println("Loading configuration overrides from .env file...")
		}
	})
}

func getEnvInt(key string, defaultValue int) int {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.Atoi(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%d (default: %d)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := strconv.ParseFloat(valStr, 64); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%g (default: %g)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

func getEnvString(key string, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		if val != defaultValue {
			log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
		}
		return val
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valStr := os.Getenv(key); valStr != "" {
		if val, err := time.ParseDuration(valStr); err == nil {
			if val != defaultValue {
				log.Printf("Config override: %s=%s (default: %s)", key, val, defaultValue)
			}
			return val
		}
	}
	return defaultValue
}

// XP progression policies. The per-level XP requirement changed between
// product revisions; both rules are kept selectable.
const (
	XPPolicyQuadratic = "quadratic"
	XPPolicyFlat      = "flat"
)

// Streak policies for a missed day: hard reset to zero, or multiplicative decay.
const (
	StreakPolicyReset = "reset"
	StreakPolicyDecay = "decay"
)

var (
	// Server Configuration
	Port               string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration
	ServerIdleTimeout  time.Duration

	// Auth Configuration
	JWTSecret        string
	AESKey           string
	SessionTokenTTL  time.Duration
	BcryptCost       int
	SessionCookieAge int

	// Database Configuration
	DBDriver           string
	DBPath             string
	TursoDatabaseURL   string
	TursoAuthToken     string
	SlowQueryThreshold time.Duration

	// Product Lookup
	LookupBaseURL string
	LookupTimeout time.Duration

	// Sugar Model
	NemesisSugarPer100ml  float64
	DefaultServingMl      float64
	SugarFreeThreshold    float64
	SugarCubeGrams        float64
	DailyRecommendedSugar float64

	// Progression
	XPPolicy          string
	XPFlatRequirement float64
	StreakPolicy      string
	StreakDecayFactor float64

	// Feedback Queue
	FeedbackHideWindow time.Duration

	// Persistence Sync
	SaveDebounceWindow time.Duration

	// Offline Gateway
	OfflineGatewayPort     string
	OfflineCacheGeneration string
	OfflineUpstreamURL     string
)

func init() {
	loadEnvFile()

	// Server Configuration
	Port = getEnvString("PORT", "8080")
	ServerReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second)
	ServerWriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second)
	ServerIdleTimeout = getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second)

	// Auth Configuration
	JWTSecret = getEnvString("JWT_SECRET", "")
	AESKey = getEnvString("AES_KEY", "")
	SessionTokenTTL = getEnvDuration("SESSION_TOKEN_TTL", 30*24*time.Hour)
	BcryptCost = getEnvInt("BCRYPT_COST", 10)
	SessionCookieAge = getEnvInt("SESSION_COOKIE_AGE_SECONDS", 30*24*3600)

	// Database Configuration
	DBDriver = getEnvString("DB_DRIVER", "sqlite3")
	DBPath = getEnvString("DB_PATH", "sugarswap.db")
	TursoDatabaseURL = getEnvString("TURSO_DATABASE_URL", "")
	TursoAuthToken = getEnvString("TURSO_AUTH_TOKEN", "")
	SlowQueryThreshold = getEnvDuration("SLOW_QUERY_THRESHOLD", 100*time.Millisecond)

	// Product Lookup
	LookupBaseURL = getEnvString("LOOKUP_BASE_URL", "https://world.openfoodfacts.org/api/v2")
	LookupTimeout = getEnvDuration("LOOKUP_TIMEOUT", 10*time.Second)

	// Sugar Model
	NemesisSugarPer100ml = getEnvFloat("NEMESIS_SUGAR_PER_100ML", 10.6)
	DefaultServingMl = getEnvFloat("DEFAULT_SERVING_ML", 330)
	SugarFreeThreshold = getEnvFloat("SUGAR_FREE_THRESHOLD_G", 0.5)
	SugarCubeGrams = getEnvFloat("SUGAR_CUBE_GRAMS", 3)
	DailyRecommendedSugar = getEnvFloat("DAILY_RECOMMENDED_SUGAR_G", 75)

	// Progression
	XPPolicy = getEnvString("XP_POLICY", XPPolicyQuadratic)
	XPFlatRequirement = getEnvFloat("XP_FLAT_REQUIREMENT", 3000)
	StreakPolicy = getEnvString("STREAK_POLICY", StreakPolicyDecay)
	StreakDecayFactor = getEnvFloat("STREAK_DECAY_FACTOR", 0.8)

	// Feedback Queue
	FeedbackHideWindow = getEnvDuration("FEEDBACK_HIDE_WINDOW", 500*time.Millisecond)

	// Persistence Sync
	SaveDebounceWindow = getEnvDuration("SAVE_DEBOUNCE_WINDOW", 2*time.Second)

	// Offline Gateway
	OfflineGatewayPort = getEnvString("OFFLINE_GATEWAY_PORT", "8081")
	OfflineCacheGeneration = getEnvString("OFFLINE_CACHE_GENERATION", "sugarswap-cache-v1")
	OfflineUpstreamURL = getEnvString("OFFLINE_UPSTREAM_URL", "http://127.0.0.1:8080")
}
