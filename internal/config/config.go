// Package config provides centralized configuration management for the
// application. It loads configuration from environment variables with
// sensible defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Pipeline PipelineConfig
	Engage   EngageConfig
	Dispatch DispatchConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 10m,
	// dispatch requests block while the run completes)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"10m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 10m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"10m"`
}

// UploadConfig holds report upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 32MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"33554432"`
}

// PipelineConfig holds record pipeline settings.
type PipelineConfig struct {
	// DatetimeThreshold is the minimum join/leave parse success ratio an
	// attendee file must reach to be accepted (default: 0.8)
	DatetimeThreshold float64 `env:"PIPELINE_DATETIME_THRESHOLD" default:"0.8"`

	// WorkflowFile is an optional YAML file with category rules and
	// conductor mappings; compiled-in defaults apply when unset
	WorkflowFile string `env:"PIPELINE_WORKFLOW_FILE"`
}

// EngageConfig holds WebEngage API settings. Dispatch endpoints are disabled
// until all three are set.
type EngageConfig struct {
	// BaseURL is the API host (default: https://api.webengage.com)
	BaseURL string `env:"ENGAGE_BASE_URL" default:"https://api.webengage.com"`

	// LicenseCode identifies the WebEngage account
	LicenseCode string `env:"ENGAGE_LICENSE_CODE"`

	// APIKey is the bearer token
	APIKey string `env:"ENGAGE_API_KEY"`

	// Timeout is the per-request HTTP timeout (default: 30s)
	Timeout time.Duration `env:"ENGAGE_TIMEOUT" default:"30s"`
}

// DispatchConfig holds delivery pacing and batching settings.
type DispatchConfig struct {
	// Mode is the delivery strategy: per-record or bulk (default: per-record)
	Mode string `env:"DISPATCH_MODE" default:"per-record"`

	// RequestsPerSecond caps outbound call rate in per-record mode (default: 10)
	RequestsPerSecond float64 `env:"DISPATCH_REQUESTS_PER_SECOND" default:"10"`

	// MaxAttempts is calls per record including retries on 429 (default: 3)
	MaxAttempts int `env:"DISPATCH_MAX_ATTEMPTS" default:"3"`

	// BackoffBase is the first retry delay; doubles per attempt (default: 1s)
	BackoffBase time.Duration `env:"DISPATCH_BACKOFF_BASE" default:"1s"`

	// BatchSize is records per bulk call (default: 25)
	BatchSize int `env:"DISPATCH_BATCH_SIZE" default:"25"`

	// MinBatchSize is the halving floor after rate limits (default: 5)
	MinBatchSize int `env:"DISPATCH_MIN_BATCH_SIZE" default:"5"`

	// Cooldown is the wait before retrying a rate-limited batch (default: 30s)
	Cooldown time.Duration `env:"DISPATCH_COOLDOWN" default:"30s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for process endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey protects the dispatch endpoints with X-API-Key auth (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is the comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// DispatchConfigured reports whether the WebEngage credentials are present.
func (c *Config) DispatchConfigured() bool {
	return c.Engage.BaseURL != "" && c.Engage.LicenseCode != "" && c.Engage.APIKey != ""
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + strconv.Itoa(c.Port)
	}
	return c.Host + ":" + strconv.Itoa(c.Port)
}
