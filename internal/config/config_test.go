package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.ServerPort == "" {
		t.Fatalf("expected default server port")
	}
	if cfg.PostgresURL == "" {
		t.Fatalf("expected default postgres url")
	}
	if cfg.SessionIdleTTLMin <= 0 {
		t.Fatalf("expected default idle ttl")
	}
	if cfg.ArrivalRadiusFactor <= 0 || cfg.ArrivalRadiusFactor > 1 {
		t.Fatalf("unexpected arrival radius factor: %v", cfg.ArrivalRadiusFactor)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9000")
	t.Setenv("POSTGRES_URL", "postgres://example")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SESSION_IDLE_TTL_MIN", "45")
	t.Setenv("CHANNEL_DEFAULT_TTL_HOURS", "6")

	cfg := Load()
	if cfg.ServerPort != ":9000" {
		t.Fatalf("expected override port")
	}
	if cfg.PostgresURL != "postgres://example" {
		t.Fatalf("expected override postgres")
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("expected override redis")
	}
	if cfg.JWTSecret != "secret" {
		t.Fatalf("expected override secret")
	}
	if cfg.SessionIdleTTLMin != 45 {
		t.Fatalf("expected override idle ttl")
	}
	if cfg.ChannelDefaultTTLHours != 6 {
		t.Fatalf("expected override channel ttl")
	}
}
