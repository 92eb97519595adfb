package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_DSN", "host=localhost user=test password=test dbname=test port=5432 sslmode=disable")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", cfg.APIPort)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.FeedBackend != "redis" {
		t.Errorf("FeedBackend = %s, want redis", cfg.FeedBackend)
	}
	if cfg.NotificationWindow != 100 {
		t.Errorf("NotificationWindow = %d, want 100", cfg.NotificationWindow)
	}
	if cfg.PollInterval() != 30*time.Second {
		t.Errorf("PollInterval() = %s, want 30s", cfg.PollInterval())
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("FEED_BACKEND", "postgres")
	t.Setenv("POLL_INTERVAL_SEC", "10")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", cfg.APIPort)
	}
	if cfg.FeedBackend != "postgres" {
		t.Errorf("FeedBackend = %s, want postgres", cfg.FeedBackend)
	}
	if cfg.PollInterval() != 10*time.Second {
		t.Errorf("PollInterval() = %s, want 10s", cfg.PollInterval())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DATABASE_DSN", "host=localhost")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required env vars, got nil")
	}
}

func TestPollInterval_FloorsInvalidValues(t *testing.T) {
	t.Parallel()

	cfg := &Config{PollIntervalSec: -5}
	if cfg.PollInterval() != 30*time.Second {
		t.Fatalf("PollInterval() = %s, want 30s fallback", cfg.PollInterval())
	}
}
