package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"blockademia-progress/services"
	"blockademia-progress/utils"

	"github.com/joho/godotenv"
)

// Store backends selectable with STORE_BACKEND.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type Config struct {
	Port           string
	AllowedOrigins string

	StoreBackend string
	DatabaseURL  string
	RedisAddr    string
	RedisDB      int

	JWTSecret    string
	JWTAudience  string
	ServiceToken string

	WalletServiceURL    string
	WalletSyncTimeout   time.Duration
	WalletRetryInterval time.Duration
	WalletRetryBatch    int

	SessionIdleTimeout time.Duration

	R2 utils.R2Config

	Economy services.Economy
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return fromEnv()
}

func fromEnv() (*Config, error) {
	cfg := &Config{
		Port:           envString("PORT", "5200"),
		AllowedOrigins: envString("ALLOWED_ORIGINS", "http://localhost:3000"),

		StoreBackend: strings.ToLower(envString("STORE_BACKEND", StorePostgres)),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisDB:      int(envInt64("REDIS_DB", 0)),

		JWTSecret:    os.Getenv("SUPABASE_JWT_SECRET"),
		JWTAudience:  envString("SUPABASE_JWT_AUDIENCE", "authenticated"),
		ServiceToken: os.Getenv("GAME_SERVICE_TOKEN"),

		WalletServiceURL:    os.Getenv("WALLET_SERVICE_URL"),
		WalletSyncTimeout:   envDuration("WALLET_SYNC_TIMEOUT", 3*time.Second),
		WalletRetryInterval: envDuration("WALLET_RETRY_INTERVAL", time.Minute),
		WalletRetryBatch:    int(envInt64("WALLET_RETRY_BATCH", 50)),

		SessionIdleTimeout: envDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute),

		R2: utils.R2Config{
			AccountID:       os.Getenv("CLOUDFLARE_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("R2_ACCESS_KEY_SECRET"),
			Bucket:          os.Getenv("R2_BUCKET_NAME"),
			CDNBaseURL:      os.Getenv("CDN_BASE_URL"),
		},

		Economy: loadEconomy(services.DefaultEconomy),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("SUPABASE_JWT_SECRET is not set")
	}
	if cfg.ServiceToken == "" {
		return nil, errors.New("GAME_SERVICE_TOKEN is not set")
	}
	switch cfg.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is not set (required by STORE_BACKEND=postgres)")
		}
	case StoreRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is not set (required by STORE_BACKEND=redis)")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	if cfg.Economy.LevelThreshold <= 0 {
		return nil, errors.New("ECON_LEVEL_THRESHOLD must be positive")
	}
	return cfg, nil
}

// loadEconomy overrides the reward constants from ECON_* variables.
func loadEconomy(e services.Economy) services.Economy {
	e.LevelThreshold = envInt64("ECON_LEVEL_THRESHOLD", e.LevelThreshold)
	e.TokensPerLevel = envInt64("ECON_TOKENS_PER_LEVEL", e.TokensPerLevel)
	e.StartingTokens = envInt64("ECON_STARTING_TOKENS", e.StartingTokens)
	e.XPPerCourse = envInt64("ECON_XP_PER_COURSE", e.XPPerCourse)
	e.CourseCompletionXP = envInt64("ECON_COURSE_COMPLETION_XP", e.CourseCompletionXP)
	e.CourseCompletionTokens = envInt64("ECON_COURSE_COMPLETION_TOKENS", e.CourseCompletionTokens)
	e.DefaultTotalLessons = int(envInt64("ECON_DEFAULT_TOTAL_LESSONS", int64(e.DefaultTotalLessons)))
	e.XPPerLesson = envInt64("ECON_XP_PER_LESSON", e.XPPerLesson)
	e.LessonTierATokens = envInt64("ECON_LESSON_TIER_A_TOKENS", e.LessonTierATokens)
	e.LessonTierBTokens = envInt64("ECON_LESSON_TIER_B_TOKENS", e.LessonTierBTokens)
	e.ProjectBaseBonus = envInt64("ECON_PROJECT_BASE_BONUS", e.ProjectBaseBonus)
	e.EasyMultiplier = envFloat("ECON_EASY_MULTIPLIER", e.EasyMultiplier)
	e.MediumMultiplier = envFloat("ECON_MEDIUM_MULTIPLIER", e.MediumMultiplier)
	e.HardMultiplier = envFloat("ECON_HARD_MULTIPLIER", e.HardMultiplier)
	e.PerfectScoreTokens = envInt64("ECON_PERFECT_SCORE_TOKENS", e.PerfectScoreTokens)
	return e
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f >= 0 {
			return f
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil && d > 0 {
			return d
		}
	}
	return def
}
