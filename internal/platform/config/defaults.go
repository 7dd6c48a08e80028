package config

const (
	defaultServerPort = 8080

	defaultQueueCapacity = 10

	defaultLimiterMaxRequests = 5

	defaultRetryMaxAttempts   = 3
	defaultRetryBackoffFactor = 2.0

	defaultNotifyRPS   = 10.0
	defaultNotifyBurst = 5

	defaultCircuitBreakerMaxFailures = 5
	defaultCircuitBreakerHalfOpen    = 1
)

// defaults returns the default configuration values.
// These are loaded first and can be overridden by base.yaml, profile YAML, and env vars.
func defaults() map[string]any {
	return map[string]any{
		"server.host":          "0.0.0.0",
		"server.port":          defaultServerPort,
		"server.read_timeout":  "5s",
		"server.write_timeout": "10s",
		"server.idle_timeout":  "120s",

		"log.level":  "info",
		"log.format": "json",

		"telemetry.enabled":  false,
		"telemetry.exporter": "stdout",
		"telemetry.endpoint": "",

		"pipeline.queue_capacity": defaultQueueCapacity,
		"pipeline.check_timeout":  "2s",
		"pipeline.progress_delay": "100ms",

		"limiter.max_requests": defaultLimiterMaxRequests,
		"limiter.window":       "1s",

		"retry.max_attempts":    defaultRetryMaxAttempts,
		"retry.initial_delay":   "100ms",
		"retry.max_delay":       "5s",
		"retry.backoff_factor":  defaultRetryBackoffFactor,
		"retry.attempt_timeout": "2s",

		"scopes.shutdown_timeout": "5s",

		"store.latency":        "20ms",
		"store.latency_jitter": "30ms",
		"store.failure_rate":   0.0,

		"notify.rate_per_second":                 defaultNotifyRPS,
		"notify.burst":                           defaultNotifyBurst,
		"notify.circuit_breaker.max_failures":    defaultCircuitBreakerMaxFailures,
		"notify.circuit_breaker.timeout":         "30s",
		"notify.circuit_breaker.half_open_limit": defaultCircuitBreakerHalfOpen,

		"dashboard.section_timeout": "1s",
		"dashboard.cache_ttl":       "2s",
	}
}
