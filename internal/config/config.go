package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// DefaultAPIBaseURL is the local development backend address
const DefaultAPIBaseURL = "http://127.0.0.1:8000/api"

// Config holds all configuration for the application
type Config struct {
	// API client configuration
	API APIConfig

	// Logging configuration
	Logging LoggingConfig

	// Development backend configuration
	DevServer DevServerConfig
}

// APIConfig holds settings for talking to the Quantrack backend
type APIConfig struct {
	BaseURL        string        `env:"QUANTRACK_API_BASE_URL"`
	StrictRoles    bool          `env:"QUANTRACK_STRICT_ROLES, default=false"`
	Timeout        time.Duration `env:"QUANTRACK_HTTP_TIMEOUT, default=0s"` // 0 = no timeout
	KeyringService string        `env:"QUANTRACK_KEYRING_SERVICE, default=quantrack-cli"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL, default=warn"`
	Format string `env:"LOG_FORMAT, default=console"` // json, console
}

// DevServerConfig holds configuration for the development backend
type DevServerConfig struct {
	Addr          string `env:"DEV_SERVER_ADDR, default=:8000"`
	DatabaseURL   string `env:"DEV_DATABASE_URL, default=file::memory:?cache=shared"`
	JWTSecret     string `env:"DEV_JWT_SECRET, default=quantrack-dev-secret"`
	AllowedOrigin string `env:"DEV_ALLOWED_ORIGIN, default=http://localhost:5173"`

	// Redis for the mail queue. Empty delivers mail inline to the log.
	RedisAddr string `env:"DEV_REDIS_ADDR"`

	// Cron schedule for purging expired reset tokens and stale codes
	CleanupSchedule string `env:"DEV_CLEANUP_SCHEDULE, default=@hourly"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	return LoadFrom(context.Background(), envconfig.OsLookuper())
}

// LoadFrom processes configuration using the given lookuper
func LoadFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return &cfg, nil
}

// ResolveBaseURL picks the API base URL: explicit flag, then environment,
// then the selected profile, then the local default.
func (c *Config) ResolveBaseURL(flagValue, profileValue string) string {
	switch {
	case flagValue != "":
		return flagValue
	case c.API.BaseURL != "":
		return c.API.BaseURL
	case profileValue != "":
		return profileValue
	default:
		return DefaultAPIBaseURL
	}
}
