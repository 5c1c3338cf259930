package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"rps_challenge/internal/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string
	DatabaseURL string
	BotToken    string
	BotEnabled  bool
	JWTSecret   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ChallengeTTL time.Duration
	RetiredTTL   time.Duration

	// per-user action throttle
	ActionRateLimit  int
	ActionRateWindow int

	LogLevel      string
	LogJSON       bool
	AllowedOrigin string
}

// Load reads the environment (and .env when present) and exits on missing keys.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromEnv()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	return cfg
}

// FromEnv builds a Config from the current environment.
func FromEnv() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	botEnabled := envBool("BOT_ENABLED", true)
	botToken := os.Getenv("BOT_TOKEN")
	if botEnabled && botToken == "" {
		return nil, errors.New("BOT_TOKEN is not set")
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		AppPort:          port,
		DatabaseURL:      dbURL,
		BotToken:         botToken,
		BotEnabled:       botEnabled,
		JWTSecret:        jwtSecret,
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          envInt("REDIS_DB", 0),
		ChallengeTTL:     time.Duration(envInt("CHALLENGE_TTL_SECONDS", 300)) * time.Second,
		RetiredTTL:       time.Duration(envInt("RETIRED_TTL_SECONDS", 1800)) * time.Second,
		ActionRateLimit:  envInt("ACTION_RATE_LIMIT", 30),
		ActionRateWindow: envInt("ACTION_RATE_WINDOW", 60),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogJSON:          envBool("LOG_JSON", false),
		AllowedOrigin:    os.Getenv("ALLOWED_ORIGIN"),
	}, nil
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt falls back to def for unset, malformed or negative values.
func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}
