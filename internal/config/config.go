package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string // postgres://, sqlite:<path>, a bare path, or empty for fixtures
	RedisURL    string

	// Roster
	FixturesFile string // YAML roster overriding the embedded one

	// Reply simulation
	ReplyMinDelay time.Duration
	ReplyMaxDelay time.Duration

	// Auth
	AuthTokenHash string // bcrypt hash of the bearer token; empty disables auth

	// Rate limiting
	RateLimitWhitelist []string // IPs or CIDRs exempt from rate limiting
	AutoBlockEnabled   bool     // Enable auto-blocking after repeated violations

	// Client settings
	MaarifaURL   string
	MaarifaToken string
}

// Load reads configuration from environment variables.
// In development, it loads from .env file if present.
// In production, it panics on missing required variables.
func Load() *Config {
	// Load .env file if it exists (for development)
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		FixturesFile:     os.Getenv("FIXTURES_FILE"),
		ReplyMinDelay:    getDuration("REPLY_MIN_DELAY", 2*time.Second),
		ReplyMaxDelay:    getDuration("REPLY_MAX_DELAY", 3*time.Second),
		AuthTokenHash:    os.Getenv("AUTH_TOKEN_HASH"),
		AutoBlockEnabled: getEnv("AUTO_BLOCK_ENABLED", "false") == "true",
		MaarifaURL:       getEnv("MAARIFA_URL", "http://localhost:8080"),
		MaarifaToken:     os.Getenv("MAARIFA_TOKEN"),
	}

	// Parse whitelist (comma-separated IPs or CIDRs)
	if whitelist := os.Getenv("RATE_LIMIT_WHITELIST"); whitelist != "" {
		for _, entry := range strings.Split(whitelist, ",") {
			entry = strings.TrimSpace(entry)
			if entry != "" {
				cfg.RateLimitWhitelist = append(cfg.RateLimitWhitelist, entry)
			}
		}
	}

	if cfg.ReplyMaxDelay < cfg.ReplyMinDelay {
		panic(fmt.Sprintf("REPLY_MAX_DELAY (%s) is shorter than REPLY_MIN_DELAY (%s)", cfg.ReplyMaxDelay, cfg.ReplyMinDelay))
	}

	// In production, require a database
	if cfg.Env == "production" && cfg.DatabaseURL == "" {
		panic("DATABASE_URL is required in production")
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// AuthEnabled reports whether mutating routes require a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.AuthTokenHash != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		panic(fmt.Sprintf("%s must be a positive duration, got %q", key, value))
	}
	return d
}
