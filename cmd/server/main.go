// Package main is the entry point for the service. It wires all dependencies
// using samber/do v2, starts the background workers and the HTTP server, and
// handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/orderflow/internal/adapters/http"
	"github.com/jsamuelsen11/orderflow/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/orderflow/internal/adapters/http/middleware"

	"github.com/jsamuelsen11/orderflow/internal/adapters/memory"
	"github.com/jsamuelsen11/orderflow/internal/adapters/notify"
	"github.com/jsamuelsen11/orderflow/internal/app"
	"github.com/jsamuelsen11/orderflow/internal/app/bus"
	"github.com/jsamuelsen11/orderflow/internal/app/pipeline"
	"github.com/jsamuelsen11/orderflow/internal/platform/config"
	"github.com/jsamuelsen11/orderflow/internal/platform/health"
	"github.com/jsamuelsen11/orderflow/internal/platform/logging"
	"github.com/jsamuelsen11/orderflow/internal/platform/resilience"
	"github.com/jsamuelsen11/orderflow/internal/platform/scopes"
	"github.com/jsamuelsen11/orderflow/internal/platform/telemetry"
	"github.com/jsamuelsen11/orderflow/internal/ports"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile := os.Getenv("APP_PROFILE")
	if profile == "" {
		return errors.New("APP_PROFILE environment variable is required (e.g. local, dev, qa, prod)")
	}

	// Bootstrap: config, logger, telemetry.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)

	ctx := context.Background()
	otel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)

	registerDependencies(injector, cfg, logger)

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	// Start the background workers: the pipeline consumer and the event
	// consumers. Subscriptions are taken inside Start, before the first
	// request can publish anything.
	registry := do.MustInvoke[*scopes.Registry](injector)
	p := do.MustInvoke[*pipeline.Pipeline](injector)
	p.Start(registry)
	do.MustInvoke[*app.MetricsAggregator](injector).Start(registry)
	do.MustInvoke[*notify.Notifier](injector).Start(registry)

	// Register health checkers after the graph is wired.
	healthRegistry := do.MustInvoke[ports.HealthRegistry](injector)
	healthRegistry.Register(p)
	healthRegistry.Register(do.MustInvoke[*notify.Deliverer](injector))

	// Start server in background.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown: drain HTTP requests first so no new orders arrive.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Wait for Start() goroutine to return.
	<-serverErr

	// Stop admission and let the pipeline drain its queue, then wind down
	// every execution domain.
	p.Shutdown()
	if err := registry.Shutdown(cfg.Scopes.ShutdownTimeout); err != nil {
		logger.Warn("execution domains did not stop cleanly", slog.Any("error", err))
	}

	// Flush telemetry.
	otelCtx, otelCancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer otelCancel()

	if err := otel.Shutdown(otelCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// otelProviders bundles OpenTelemetry provider lifecycle. All fields are nil
// when telemetry is disabled.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes both providers. Nil-safe.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meter != nil {
		if err := o.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	if !cfg.Telemetry.Enabled {
		return &otelProviders{}, nil
	}

	tp, err := telemetry.InitTracer(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	mp, err := telemetry.InitMeter(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	metrics, err := telemetry.NewMetrics(mp, cfg.Telemetry.ServiceName)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &otelProviders{
		tracer:  tp,
		meter:   mp,
		metrics: metrics,
	}, nil
}

// registerDependencies provides the full object graph. Construction order
// mirrors the dependency flow: platform (scopes, bus, limiter) → stores →
// pipeline → consumers → services → handlers → router → server.
func registerDependencies(injector do.Injector, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(_ do.Injector) (*scopes.Registry, error) {
		return scopes.NewRegistry(logger), nil
	})

	do.Provide(injector, func(_ do.Injector) (*bus.Bus, error) {
		return bus.New(), nil
	})

	do.Provide(injector, func(_ do.Injector) (*resilience.Limiter, error) {
		return resilience.NewLimiter(cfg.Limiter.MaxRequests, cfg.Limiter.Window), nil
	})

	do.Provide(injector, func(i do.Injector) (app.Resilience, error) {
		return app.Resilience{
			Limiter: do.MustInvoke[*resilience.Limiter](i),
			Retry: resilience.RetryConfig{
				MaxAttempts:   cfg.Retry.MaxAttempts,
				InitialDelay:  cfg.Retry.InitialDelay,
				MaxDelay:      cfg.Retry.MaxDelay,
				BackoffFactor: cfg.Retry.BackoffFactor,
			},
			AttemptTimeout: cfg.Retry.AttemptTimeout,
			Metrics:        do.MustInvoke[*telemetry.Metrics](i),
		}, nil
	})

	// Stores share the simulated latency/failure profile.
	storeCfg := memory.Config{
		Latency:       cfg.Store.Latency,
		LatencyJitter: cfg.Store.LatencyJitter,
		FailureRate:   cfg.Store.FailureRate,
	}

	do.Provide(injector, func(_ do.Injector) (ports.UserStore, error) {
		return memory.NewUserStore(storeCfg), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.OrderStore, error) {
		return memory.NewOrderStore(storeCfg), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.NotificationStore, error) {
		return memory.NewNotificationStore(storeCfg), nil
	})

	do.Provide(injector, func(i do.Injector) (*pipeline.Pipeline, error) {
		return pipeline.New(
			pipeline.Config{
				QueueCapacity: cfg.Pipeline.QueueCapacity,
				CheckTimeout:  cfg.Pipeline.CheckTimeout,
				ProgressDelay: cfg.Pipeline.ProgressDelay,
			},
			do.MustInvoke[ports.OrderStore](i),
			do.MustInvoke[*bus.Bus](i),
			logger,
			pipeline.WithMetrics(do.MustInvoke[*telemetry.Metrics](i)),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*app.MetricsAggregator, error) {
		return app.NewMetricsAggregator(
			do.MustInvoke[*bus.Bus](i),
			logger,
			do.MustInvoke[*telemetry.Metrics](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*notify.Deliverer, error) {
		gateway := notify.NewGateway(notify.GatewayConfig{
			Latency:       cfg.Store.Latency,
			LatencyJitter: cfg.Store.LatencyJitter,
			FailureRate:   cfg.Store.FailureRate,
		})
		return notify.NewDeliverer(notify.Config{
			RatePerSecond: cfg.Notify.RatePerSecond,
			Burst:         cfg.Notify.Burst,
			Retry: resilience.RetryConfig{
				MaxAttempts:   cfg.Retry.MaxAttempts,
				InitialDelay:  cfg.Retry.InitialDelay,
				MaxDelay:      cfg.Retry.MaxDelay,
				BackoffFactor: cfg.Retry.BackoffFactor,
			},
			BreakerMaxFailures:   cfg.Notify.CircuitBreaker.MaxFailures,
			BreakerTimeout:       cfg.Notify.CircuitBreaker.Timeout,
			BreakerHalfOpenLimit: cfg.Notify.CircuitBreaker.HalfOpenLimit,
		}, gateway, do.MustInvoke[*telemetry.Metrics](i), logger), nil
	})

	do.Provide(injector, func(i do.Injector) (*notify.Notifier, error) {
		return notify.NewNotifier(
			do.MustInvoke[*bus.Bus](i),
			do.MustInvoke[*notify.Deliverer](i),
			do.MustInvoke[ports.NotificationStore](i),
			do.MustInvoke[ports.UserStore](i),
			logger,
		), nil
	})

	do.Provide(injector, func(i do.Injector) (ports.UserService, error) {
		return app.NewUserService(
			do.MustInvoke[ports.UserStore](i),
			do.MustInvoke[*bus.Bus](i),
			do.MustInvoke[app.Resilience](i),
			logger,
		), nil
	})

	do.Provide(injector, func(i do.Injector) (ports.OrderService, error) {
		return app.NewOrderService(
			do.MustInvoke[ports.OrderStore](i),
			do.MustInvoke[*pipeline.Pipeline](i),
			do.MustInvoke[*bus.Bus](i),
			do.MustInvoke[app.Resilience](i),
			logger,
		), nil
	})

	do.Provide(injector, func(i do.Injector) (ports.DashboardService, error) {
		return app.NewDashboardService(
			app.DashboardConfig{
				SectionTimeout: cfg.Dashboard.SectionTimeout,
				CacheTTL:       cfg.Dashboard.CacheTTL,
			},
			do.MustInvoke[ports.UserStore](i),
			do.MustInvoke[ports.OrderStore](i),
			do.MustInvoke[*bus.Bus](i),
			do.MustInvoke[*pipeline.Pipeline](i),
			do.MustInvoke[*resilience.Limiter](i),
			do.MustInvoke[*scopes.Registry](i),
			logger,
		), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.UserHandler, error) {
		return handlers.NewUserHandler(do.MustInvoke[ports.UserService](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.OrderHandler, error) {
		return handlers.NewOrderHandler(do.MustInvoke[ports.OrderService](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.SystemHandler, error) {
		return handlers.NewSystemHandler(
			do.MustInvoke[ports.DashboardService](i),
			do.MustInvoke[ports.NotificationStore](i),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		return handlers.NewHealthHandler(do.MustInvoke[ports.HealthRegistry](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		userH := do.MustInvoke[*handlers.UserHandler](i)
		orderH := do.MustInvoke[*handlers.OrderHandler](i)
		systemH := do.MustInvoke[*handlers.SystemHandler](i)
		healthH := do.MustInvoke[*handlers.HealthHandler](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(userH, orderH, systemH, healthH,
			middleware.Chain(
				middleware.Recovery(logger),
				middleware.RequestID(),
				middleware.CorrelationID(),
				middleware.OpenTelemetry(metrics),
				middleware.Logging(logger),
				middleware.Timeout(cfg.Server.WriteTimeout),
			),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}
