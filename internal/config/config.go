// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the movie journal.
type Config struct {
	Addr             string
	DatabaseURL      string
	SessionTTL       time.Duration
	CookieSecure     bool
	ChatHistoryLimit int
	TrustForwardAuth bool

	Redis RedisConfig
	Log   LogConfig
	OIDC  OIDCConfig
}

// RedisConfig holds the optional shared chat backend settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ChatKey  string
}

// Enabled reports whether a Redis address was configured.
func (r RedisConfig) Enabled() bool { return r.Addr != "" }

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// OIDCConfig holds single sign-on settings.
type OIDCConfig struct {
	Issuer       string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled reports whether every SSO setting is present.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != "" && o.ClientSecret != "" && o.RedirectURL != ""
}

// Load reads configuration from a .env file, if present, and the environment.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	env := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	ttl, err := time.ParseDuration(env("SESSION_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	limit, err := strconv.Atoi(env("CHAT_HISTORY_LIMIT", "500"))
	if err != nil {
		return nil, fmt.Errorf("CHAT_HISTORY_LIMIT: %w", err)
	}
	redisDB, err := strconv.Atoi(env("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	secure, err := strconv.ParseBool(env("COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	forward, err := strconv.ParseBool(env("TRUST_FORWARD_AUTH", "false"))
	if err != nil {
		return nil, fmt.Errorf("TRUST_FORWARD_AUTH: %w", err)
	}

	return &Config{
		Addr:             env("ADDR", ":8080"),
		DatabaseURL:      getenv("DATABASE_URL"),
		SessionTTL:       ttl,
		CookieSecure:     secure,
		ChatHistoryLimit: limit,
		TrustForwardAuth: forward,
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR"),
			Password: getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			ChatKey:  env("REDIS_CHAT_KEY", "moviejournal:chat"),
		},
		Log: LogConfig{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
		OIDC: OIDCConfig{
			Issuer:       getenv("OIDC_ISSUER"),
			ClientID:     getenv("OIDC_CLIENT_ID"),
			ClientSecret: getenv("OIDC_CLIENT_SECRET"),
			RedirectURL:  getenv("OIDC_REDIRECT_URL"),
		},
	}, nil
}
