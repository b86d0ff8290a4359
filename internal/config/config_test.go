package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DefaultSlotMinutes != 30 {
		t.Errorf("expected default slot size 30, got %d", cfg.DefaultSlotMinutes)
	}
	if cfg.RecurrenceHorizonDays != 365 {
		t.Errorf("expected recurrence horizon 365 days, got %d", cfg.RecurrenceHorizonDays)
	}
	if cfg.InvitationTokenTTL != 24*time.Hour {
		t.Errorf("expected 24h invitation token TTL, got %s", cfg.InvitationTokenTTL)
	}
	if !cfg.AllowCompleteConfirmed {
		t.Error("expected completing from confirmed to be allowed by default")
	}
	if cfg.LogFormat != "json" {
		t.Errorf("expected default log format json, got %s", cfg.LogFormat)
	}
	if cfg.RateLimitPerSecond != 10 || cfg.RateLimitBurst != 20 {
		t.Errorf("unexpected default rate limit: %v/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("DEFAULT_SLOT_MINUTES", "15")
	t.Setenv("INVITATION_TOKEN_TTL", "1h")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("RATE_LIMIT_BURST", "5")

	cfg := Load()

	if cfg.Port != "9999" {
		t.Errorf("expected port 9999, got %s", cfg.Port)
	}
	if cfg.DefaultSlotMinutes != 15 {
		t.Errorf("expected slot size 15, got %d", cfg.DefaultSlotMinutes)
	}
	if cfg.InvitationTokenTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %s", cfg.InvitationTokenTTL)
	}
	if !cfg.RedisTLS {
		t.Error("expected redis TLS enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("expected text log format, got %s", cfg.LogFormat)
	}
	if cfg.RateLimitPerSecond != 2.5 || cfg.RateLimitBurst != 5 {
		t.Errorf("unexpected rate limit: %v/%d", cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("DEFAULT_SLOT_MINUTES", "not-a-number")
	t.Setenv("OUTBOX_POLL_INTERVAL", "soon")

	cfg := Load()

	if cfg.DefaultSlotMinutes != 30 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.DefaultSlotMinutes)
	}
	if cfg.OutboxPollInterval != 5*time.Second {
		t.Errorf("malformed duration should fall back to default, got %s", cfg.OutboxPollInterval)
	}
}
