package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rps")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_TOKEN", "123:abc")
	for _, k := range []string{"APP_PORT", "CHALLENGE_TTL_SECONDS", "RETIRED_TTL_SECONDS", "ACTION_RATE_LIMIT", "ACTION_RATE_WINDOW", "LOG_LEVEL", "LOG_JSON", "BOT_ENABLED", "REDIS_DB"} {
		t.Setenv(k, "")
	}

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.AppPort != "8080" || !cfg.BotEnabled || cfg.LogLevel != "info" || cfg.LogJSON {
		t.Fatalf("defaults %+v", cfg)
	}
	if cfg.ChallengeTTL != 5*time.Minute || cfg.RetiredTTL != 30*time.Minute {
		t.Fatalf("ttl %v / %v", cfg.ChallengeTTL, cfg.RetiredTTL)
	}
	if cfg.ActionRateLimit != 30 || cfg.ActionRateWindow != 60 {
		t.Fatalf("rate limit %d/%d", cfg.ActionRateLimit, cfg.ActionRateWindow)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/rps")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("BOT_ENABLED", "false")
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("CHALLENGE_TTL_SECONDS", "30")
	t.Setenv("ACTION_RATE_LIMIT", "bogus")
	t.Setenv("LOG_JSON", "true")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.BotEnabled || cfg.ChallengeTTL != 30*time.Second || !cfg.LogJSON {
		t.Fatalf("overrides %+v", cfg)
	}
	if cfg.ActionRateLimit != 30 {
		t.Fatalf("malformed value should fall back, got %d", cfg.ActionRateLimit)
	}
}

func TestFromEnvMissing(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"no database", map[string]string{"DATABASE_URL": "", "JWT_SECRET": "s", "BOT_TOKEN": "t"}},
		{"no jwt secret", map[string]string{"DATABASE_URL": "d", "JWT_SECRET": "", "BOT_TOKEN": "t"}},
		{"bot without token", map[string]string{"DATABASE_URL": "d", "JWT_SECRET": "s", "BOT_TOKEN": "", "BOT_ENABLED": "true"}},
	}
	for _, tc := range cases {
		for k, v := range tc.env {
			t.Setenv(k, v)
		}
		if _, err := FromEnv(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}
