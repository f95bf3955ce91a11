// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// DefaultAdminPathPrefix is the admin mount point when ADMIN_PATH_PREFIX is unset.
const DefaultAdminPathPrefix = "/studio-7f3a9c"

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public site URL (e.g., https://jane.dev)
	BaseURL  string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	SiteName string `env:"SITE_NAME" envDefault:"Portfolio"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Admin access. An empty AdminSecret locks the admin area entirely.
	AdminSecret     string `env:"ADMIN_SECRET"`
	AdminPathPrefix string `env:"ADMIN_PATH_PREFIX" envDefault:"/studio-7f3a9c"`
	DashboardSecret string `env:"DASHBOARD_SECRET"`

	// Contact form
	ContactRateLimit  int           `env:"CONTACT_RATE_LIMIT" envDefault:"5"`
	ContactRateWindow time.Duration `env:"CONTACT_RATE_WINDOW" envDefault:"1h"`
	ContactRateStore  string        `env:"CONTACT_RATE_STORE" envDefault:"memory"`
	EmailAPIURL       string        `env:"EMAIL_API_URL" envDefault:"https://api.resend.com/emails"`
	EmailAPIKey       string        `env:"EMAIL_API_KEY"`
	ContactFrom       string        `env:"CONTACT_FROM" envDefault:"Portfolio <noreply@localhost>"`
	ContactTo         string        `env:"CONTACT_TO"`

	// Object storage (S3 compatible)
	StorageEndpoint  string `env:"STORAGE_ENDPOINT"`
	StorageAccessKey string `env:"STORAGE_ACCESS_KEY"`
	StorageSecretKey string `env:"STORAGE_SECRET_KEY"`
	StorageBucket    string `env:"STORAGE_BUCKET" envDefault:"portfolio"`
	StorageUseSSL    bool   `env:"STORAGE_USE_SSL" envDefault:"true"`
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL"`
	UploadMaxBytes   int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	// Analytics capture
	AnalyticsAsync     bool `env:"ANALYTICS_ASYNC" envDefault:"true"`
	AnalyticsBatchSize int  `env:"ANALYTICS_BATCH_SIZE" envDefault:"200"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StorageEnabled reports whether object storage credentials are present.
func (c *Config) StorageEnabled() bool {
	return c.StorageEndpoint != "" && c.StorageAccessKey != "" && c.StorageSecretKey != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.normalize()
	if cfg.ContactRateStore != "memory" && cfg.ContactRateStore != "redis" {
		return nil, fmt.Errorf("invalid CONTACT_RATE_STORE %q: want memory or redis", cfg.ContactRateStore)
	}
	return cfg, nil
}

// normalize cleans values that come from hand-edited env files.
func (c *Config) normalize() {
	c.AdminSecret = StripQuotes(c.AdminSecret)
	c.DashboardSecret = StripQuotes(c.DashboardSecret)
	c.AdminPathPrefix = NormalizePathPrefix(c.AdminPathPrefix)
}

// StripQuotes removes one matching pair of single or double quotes that
// wraps the whole value. Quotes inside or at only one end are kept.
// Hosting dashboards often keep the quotes of a pasted KEY="value" line.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// NormalizePathPrefix returns prefix with exactly one leading slash and no trailing slash.
func NormalizePathPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return DefaultAdminPathPrefix
	}
	return "/" + prefix
}
