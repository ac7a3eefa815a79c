package config

import (
	"testing"
	"time"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookup(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("expected :8080, got %s", cfg.Addr)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("expected 24h, got %v", cfg.SessionTTL)
	}
	if cfg.ChatHistoryLimit != 500 {
		t.Errorf("expected 500, got %d", cfg.ChatHistoryLimit)
	}
	if cfg.DatabaseURL != "" || cfg.Redis.Enabled() || cfg.OIDC.Enabled() {
		t.Errorf("expected optional backends disabled, got %+v", cfg)
	}
	if cfg.Redis.ChatKey != "moviejournal:chat" {
		t.Errorf("unexpected chat key %q", cfg.Redis.ChatKey)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"ADDR":               ":9000",
		"DATABASE_URL":       "postgres://localhost/journal",
		"SESSION_TTL":        "90m",
		"CHAT_HISTORY_LIMIT": "50",
		"REDIS_ADDR":         "127.0.0.1:6379",
		"REDIS_DB":           "2",
		"COOKIE_SECURE":      "true",
		"OIDC_ISSUER":        "https://id.example.com",
		"OIDC_CLIENT_ID":     "journal",
		"OIDC_CLIENT_SECRET": "s3cret",
		"OIDC_REDIRECT_URL":  "https://journal.example.com/auth/sso/callback",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.SessionTTL != 90*time.Minute || cfg.ChatHistoryLimit != 50 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config %+v", cfg.Redis)
	}
	if !cfg.CookieSecure || !cfg.OIDC.Enabled() {
		t.Errorf("expected secure cookies and SSO, got %+v", cfg)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []map[string]string{
		{"SESSION_TTL": "forever"},
		{"CHAT_HISTORY_LIMIT": "lots"},
		{"REDIS_DB": "x"},
		{"COOKIE_SECURE": "maybe"},
		{"TRUST_FORWARD_AUTH": "perhaps"},
	}
	for _, env := range tests {
		if _, err := FromEnv(lookup(env)); err == nil {
			t.Errorf("expected error for %v", env)
		}
	}
}
