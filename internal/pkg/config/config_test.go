package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("mirage-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.DistanceMeters != 50 {
		t.Errorf("distance default = %v, want 50", cfg.Game.DistanceMeters)
	}
	if cfg.Telemetry.ServiceName != "mirage-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Log.BufferSize != 500 {
		t.Errorf("log buffer default = %d, want 500", cfg.Log.BufferSize)
	}
	if cfg.Temporal.TaskQueue != "mirage-scoring" {
		t.Errorf("task queue default = %q, want mirage-scoring", cfg.Temporal.TaskQueue)
	}
	if cfg.Server.RateLimitPerMinute != 600 {
		t.Errorf("rate limit default = %d, want 600", cfg.Server.RateLimitPerMinute)
	}
}

func TestLoad_DistanceFromEnv(t *testing.T) {
	t.Setenv("DISTANCE_METERS", "75")
	cfg, err := Load("mirage-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Game.DistanceMeters != 75 {
		t.Errorf("distance = %v, want 75", cfg.Game.DistanceMeters)
	}
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("MIRAGE_DATABASE_HOST", "db.internal")
	t.Setenv("MIRAGE_GAME_POINTS_PER_FIND", "250")
	cfg, err := Load("mirage-test")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("database host = %q", cfg.Database.Host)
	}
	if cfg.Game.PointsPerFind != 250 {
		t.Errorf("points per find = %d", cfg.Game.PointsPerFind)
	}
}

func TestLoad_RejectsNonPositiveDistance(t *testing.T) {
	t.Setenv("DISTANCE_METERS", "0")
	_, err := Load("mirage-test")
	if err == nil || !strings.Contains(err.Error(), "game.distance_meters") {
		t.Fatalf("expected distance validation error, got %v", err)
	}
}

func TestLoad_RateLimit(t *testing.T) {
	t.Setenv("MIRAGE_SERVER_RATE_LIMIT_PER_MINUTE", "0")
	cfg, err := Load("mirage-test")
	if err != nil {
		t.Fatalf("zero should disable limiting, got %v", err)
	}
	if cfg.Server.RateLimitPerMinute != 0 {
		t.Errorf("rate limit = %d, want 0", cfg.Server.RateLimitPerMinute)
	}

	t.Setenv("MIRAGE_SERVER_RATE_LIMIT_PER_MINUTE", "-1")
	if _, err := Load("mirage-test"); err == nil || !strings.Contains(err.Error(), "server.rate_limit_per_minute") {
		t.Fatalf("expected rate limit validation error, got %v", err)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for empty config")
	}
	for _, field := range []string{"server.port", "database.host", "nats.url", "valkey.addr", "game.distance_meters"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %v", field, err)
		}
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", DBName: "d", SSLMode: "disable"}
	want := "postgres://u:p@h:5432/d?sslmode=disable"
	if got := d.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
