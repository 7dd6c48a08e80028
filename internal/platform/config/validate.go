package config

import (
	"errors"
	"fmt"
)

// Validate checks all configuration values and returns aggregated errors.
func (c *Config) Validate() error {
	return errors.Join(
		c.Server.validate(),
		c.Log.validate(),
		c.Telemetry.validate(),
		c.Pipeline.validate(),
		c.Limiter.validate(),
		c.Retry.validate(),
		c.Scopes.validate(),
		c.Store.validate(),
		c.Notify.validate(),
		c.Dashboard.validate(),
	)
}

func (s *ServerConfig) validate() error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port))
	}
	if s.ReadTimeout <= 0 {
		errs = append(errs, errors.New("server.read_timeout must be positive"))
	}
	if s.WriteTimeout <= 0 {
		errs = append(errs, errors.New("server.write_timeout must be positive"))
	}

	return errors.Join(errs...)
}

func (l *LogConfig) validate() error {
	var errs []error

	switch l.Level {
	case "debug", "info", "warn", "error":
		// Valid levels.
	default:
		errs = append(errs, fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", l.Level))
	}

	switch l.Format {
	case "json", "text":
		// Valid formats.
	default:
		errs = append(errs, fmt.Errorf("log.format must be one of: json, text; got %q", l.Format))
	}

	return errors.Join(errs...)
}

func (t *TelemetryConfig) validate() error {
	if !t.Enabled {
		return nil
	}

	var errs []error

	switch t.Exporter {
	case "stdout", "otlp":
		// Valid exporters.
	default:
		errs = append(errs, fmt.Errorf("telemetry.exporter must be one of: stdout, otlp; got %q", t.Exporter))
	}

	if t.Exporter == "otlp" && t.Endpoint == "" {
		errs = append(errs, errors.New("telemetry.endpoint must not be empty when exporter is otlp"))
	}

	return errors.Join(errs...)
}

func (p *PipelineConfig) validate() error {
	var errs []error

	if p.QueueCapacity < 1 {
		errs = append(errs, fmt.Errorf("pipeline.queue_capacity must be >= 1, got %d", p.QueueCapacity))
	}
	if p.CheckTimeout <= 0 {
		errs = append(errs, errors.New("pipeline.check_timeout must be positive"))
	}
	if p.ProgressDelay < 0 {
		errs = append(errs, errors.New("pipeline.progress_delay must not be negative"))
	}

	return errors.Join(errs...)
}

func (l *LimiterConfig) validate() error {
	var errs []error

	if l.MaxRequests < 1 {
		errs = append(errs, fmt.Errorf("limiter.max_requests must be >= 1, got %d", l.MaxRequests))
	}
	if l.Window <= 0 {
		errs = append(errs, errors.New("limiter.window must be positive"))
	}

	return errors.Join(errs...)
}

func (r *RetryConfig) validate() error {
	var errs []error

	if r.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must be >= 1, got %d", r.MaxAttempts))
	}
	if r.InitialDelay <= 0 {
		errs = append(errs, errors.New("retry.initial_delay must be positive"))
	}
	if r.BackoffFactor <= 0 {
		errs = append(errs, fmt.Errorf("retry.backoff_factor must be positive, got %f", r.BackoffFactor))
	}
	if r.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("retry.attempt_timeout must be positive"))
	}

	return errors.Join(errs...)
}

func (s *ScopesConfig) validate() error {
	if s.ShutdownTimeout <= 0 {
		return errors.New("scopes.shutdown_timeout must be positive")
	}
	return nil
}

func (s *StoreConfig) validate() error {
	var errs []error

	if s.Latency < 0 {
		errs = append(errs, errors.New("store.latency must not be negative"))
	}
	if s.LatencyJitter < 0 {
		errs = append(errs, errors.New("store.latency_jitter must not be negative"))
	}
	if s.FailureRate < 0 || s.FailureRate >= 1 {
		errs = append(errs, fmt.Errorf("store.failure_rate must be in [0, 1), got %f", s.FailureRate))
	}

	return errors.Join(errs...)
}

func (n *NotifyConfig) validate() error {
	var errs []error

	if n.RatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("notify.rate_per_second must be positive, got %f", n.RatePerSecond))
	}
	if n.Burst < 1 {
		errs = append(errs, fmt.Errorf("notify.burst must be >= 1, got %d", n.Burst))
	}
	if n.CircuitBreaker.MaxFailures < 1 {
		errs = append(errs, fmt.Errorf("notify.circuit_breaker.max_failures must be >= 1, got %d",
			n.CircuitBreaker.MaxFailures))
	}

	return errors.Join(errs...)
}

func (d *DashboardConfig) validate() error {
	var errs []error

	if d.SectionTimeout <= 0 {
		errs = append(errs, errors.New("dashboard.section_timeout must be positive"))
	}
	if d.CacheTTL < 0 {
		errs = append(errs, errors.New("dashboard.cache_ttl must not be negative"))
	}

	return errors.Join(errs...)
}
