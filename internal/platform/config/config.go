// Package config provides configuration loading and validation for the service.
// Configuration is loaded from YAML files with environment variable overrides
// using a layered system: defaults -> base.yaml -> {profile}.yaml -> env vars.
package config

import "time"

// Config holds all configuration for the service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Pipeline  PipelineConfig  `koanf:"pipeline"`
	Limiter   LimiterConfig   `koanf:"limiter"`
	Retry     RetryConfig     `koanf:"retry"`
	Scopes    ScopesConfig    `koanf:"scopes"`
	Store     StoreConfig     `koanf:"store"`
	Notify    NotifyConfig    `koanf:"notify"`
	Dashboard DashboardConfig `koanf:"dashboard"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Exporter    string `koanf:"exporter"`
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// PipelineConfig holds order pipeline settings.
type PipelineConfig struct {
	// QueueCapacity bounds the submission queue. A full queue blocks
	// producers rather than dropping orders.
	QueueCapacity int `koanf:"queue_capacity"`
	// CheckTimeout bounds each per-order verification call.
	CheckTimeout time.Duration `koanf:"check_timeout"`
	// ProgressDelay paces the work between progress milestones.
	ProgressDelay time.Duration `koanf:"progress_delay"`
}

// LimiterConfig holds request limiter settings.
type LimiterConfig struct {
	MaxRequests int           `koanf:"max_requests"`
	Window      time.Duration `koanf:"window"`
}

// RetryConfig holds retry policy settings with deterministic exponential
// backoff.
type RetryConfig struct {
	MaxAttempts    int           `koanf:"max_attempts"`
	InitialDelay   time.Duration `koanf:"initial_delay"`
	MaxDelay       time.Duration `koanf:"max_delay"`
	BackoffFactor  float64       `koanf:"backoff_factor"`
	AttemptTimeout time.Duration `koanf:"attempt_timeout"`
}

// ScopesConfig holds execution domain settings.
type ScopesConfig struct {
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds in-memory store behavior settings.
type StoreConfig struct {
	// Latency is the base simulated latency per store call. LatencyJitter
	// adds up to that much more, uniformly.
	Latency       time.Duration `koanf:"latency"`
	LatencyJitter time.Duration `koanf:"latency_jitter"`
	// FailureRate injects transient failures into store calls. Zero
	// disables injection.
	FailureRate float64 `koanf:"failure_rate"`
}

// NotifyConfig holds outbound notification delivery settings.
type NotifyConfig struct {
	RatePerSecond  float64              `koanf:"rate_per_second"`
	Burst          int                  `koanf:"burst"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
}

// DashboardConfig holds read-side aggregation settings.
type DashboardConfig struct {
	// SectionTimeout independently bounds each dashboard source fetch.
	SectionTimeout time.Duration `koanf:"section_timeout"`
	// CacheTTL is how long an assembled snapshot is served before the
	// sources are consulted again. Zero disables caching.
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"`
	Timeout       time.Duration `koanf:"timeout"`
	HalfOpenLimit int           `koanf:"half_open_limit"`
}
