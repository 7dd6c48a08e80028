// Package http provides the inbound HTTP adapter including routing and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/orderflow/internal/adapters/http/handlers"
)

// NewRouter creates an HTTP handler with all application routes registered.
// Middleware is applied globally in the order given.
func NewRouter(
	userHandler *handlers.UserHandler,
	orderHandler *handlers.OrderHandler,
	systemHandler *handlers.SystemHandler,
	healthHandler *handlers.HealthHandler,
	middlewares ...func(http.Handler) http.Handler,
) http.Handler {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	// Health endpoints (outside /api/v1 prefix).
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	// API v1 routes.
	r.Route("/api/v1", func(r chi.Router) {
		// Users.
		r.Get("/users", userHandler.ListUsers)
		r.Post("/users", userHandler.CreateUser)
		r.Get("/users/{id}", userHandler.GetUser)

		// Orders. The static /orders/processing route must be registered
		// before chi matches the {id} pattern.
		r.Get("/orders", orderHandler.ListOrders)
		r.Post("/orders", orderHandler.PlaceOrder)
		r.Get("/orders/processing", orderHandler.Processing)
		r.Get("/orders/{id}", orderHandler.GetOrder)

		// Read-side and operator endpoints.
		r.Get("/dashboard", systemHandler.Dashboard)
		r.Get("/metrics/system", systemHandler.SystemMetrics)
		r.Get("/pipeline/status", systemHandler.PipelineStatus)
		r.Get("/notifications", systemHandler.Notifications)
	})

	return r
}
