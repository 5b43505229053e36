package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	JWTSecret      string

	DatabaseURL string
	DBHost      string
	DBUser      string
	DBPass      string
	DBName      string
	DBPort      string
	RedisURL    string

	LogLevel string
	LogPath  string

	Streak StreakConfig

	RateLimitFreeze   time.Duration
	TimezoneCacheSize int
	TokenTTL          time.Duration
}

// StreakConfig holds the tunables of the streak engine.
type StreakConfig struct {
	DefaultTimezone      string
	FreezeWindow         int // largest gap, in days, a freeze may still cover
	MaxAttempts          int // optimistic concurrency attempts per operation
	ManualCreditCapacity int
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),
		JWTSecret:      os.Getenv("JWT_SECRET"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getEnv("DB_NAME", "kirakira"),
		DBPort:      getEnv("DB_PORT", "5432"),
		RedisURL:    os.Getenv("REDIS_URL"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  os.Getenv("LOG_PATH"),

		Streak: StreakConfig{
			DefaultTimezone: getEnv("STREAK_DEFAULT_TIMEZONE", "UTC"),
		},
	}

	var err error
	if cfg.Streak.FreezeWindow, err = getInt("STREAK_FREEZE_WINDOW", 8); err != nil {
		return nil, err
	}
	if cfg.Streak.MaxAttempts, err = getInt("STREAK_MAX_ATTEMPTS", 3); err != nil {
		return nil, err
	}
	if cfg.Streak.ManualCreditCapacity, err = getInt("FREEZE_MANUAL_CAPACITY", 3); err != nil {
		return nil, err
	}
	if cfg.TimezoneCacheSize, err = getInt("TIMEZONE_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}

	cfg.RateLimitFreeze, err = time.ParseDuration(getEnv("RATE_LIMIT_FREEZE", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_FREEZE: %w", err)
	}

	cfg.TokenTTL, err = time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid TOKEN_TTL: %w", err)
	}

	if _, err := time.LoadLocation(cfg.Streak.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid STREAK_DEFAULT_TIMEZONE: %w", err)
	}
	if cfg.Streak.FreezeWindow < 2 {
		return nil, fmt.Errorf("STREAK_FREEZE_WINDOW must be at least 2, got %d", cfg.Streak.FreezeWindow)
	}
	if cfg.Streak.MaxAttempts < 1 {
		return nil, fmt.Errorf("STREAK_MAX_ATTEMPTS must be positive, got %d", cfg.Streak.MaxAttempts)
	}
	if cfg.Streak.ManualCreditCapacity < 0 {
		return nil, fmt.Errorf("FREEZE_MANUAL_CAPACITY must not be negative, got %d", cfg.Streak.ManualCreditCapacity)
	}

	if cfg.JWTSecret == "" && cfg.AppEnv != "development" {
		return nil, fmt.Errorf("JWT_SECRET is required outside development")
	}

	return cfg, nil
}

// DSN builds the postgres connection string, preferring DATABASE_URL.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
