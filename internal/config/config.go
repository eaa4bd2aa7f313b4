// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cache and audit stream transport (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Public base URL the deployment is reachable at
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Access tokens
	JWTSecret      string        `env:"JWT_SECRET,required"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"ballotbox"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"60m"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting
	RateLimitAPIEnabled   bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitLoginEnabled bool `env:"RATE_LIMIT_LOGIN_ENABLED" envDefault:"true"`
	RateLimitLoginRPS     int  `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"5"`
	RateLimitLoginBurst   int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"10"`

	// Audit event pipeline
	AuditStream           string        `env:"AUDIT_STREAM" envDefault:"audit:events"`
	AuditDeadLetterStream string        `env:"AUDIT_DEAD_LETTER_STREAM" envDefault:"audit:events:deadletter"`
	AuditConsumerGroup    string        `env:"AUDIT_CONSUMER_GROUP" envDefault:"audit-workers"`
	AuditStreamMaxLen     int64         `env:"AUDIT_STREAM_MAX_LEN" envDefault:"1000000"`
	AuditBatchSize        int           `env:"AUDIT_BATCH_SIZE" envDefault:"256"`
	AuditBlockTimeout     time.Duration `env:"AUDIT_BLOCK_TIMEOUT" envDefault:"5s"`
	AuditMaxAttempts      int           `env:"AUDIT_MAX_ATTEMPTS" envDefault:"5"`
	AuditPublishTimeout   time.Duration `env:"AUDIT_PUBLISH_TIMEOUT" envDefault:"100ms"`

	// Candidate photo uploads
	UploadDir      string `env:"UPLOAD_DIR" envDefault:"uploads"`
	UploadMaxBytes int64  `env:"UPLOAD_MAX_BYTES" envDefault:"5242880"`

	// Bootstrap superadmin, ensured at startup when no superadmin exists
	BootstrapSuperadminName      string `env:"BOOTSTRAP_SUPERADMIN_NAME" envDefault:"Super Admin"`
	BootstrapSuperadminEmail     string `env:"BOOTSTRAP_SUPERADMIN_EMAIL" envDefault:"superadmin@ballotbox.local"`
	BootstrapSuperadminPassword  string `env:"BOOTSTRAP_SUPERADMIN_PASSWORD" envDefault:"admin123"`
	BootstrapSuperadminStudentID string `env:"BOOTSTRAP_SUPERADMIN_STUDENT_ID" envDefault:"BALLOT-0000"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB; uploads use their own cap)
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

// Validate rejects configuration values that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes")
	}
	if c.AuditBatchSize <= 0 {
		return fmt.Errorf("AUDIT_BATCH_SIZE must be positive, got %d", c.AuditBatchSize)
	}
	if c.AuditMaxAttempts <= 0 {
		return fmt.Errorf("AUDIT_MAX_ATTEMPTS must be positive, got %d", c.AuditMaxAttempts)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
