package handlers

import (
	"net/http"

	"github.com/jsamuelsen11/orderflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// defaultNotificationLimit caps the notification log page when the caller
// does not ask for a specific size.
const defaultNotificationLimit = 50

// SystemHandler serves the read-side and operator endpoints: the dashboard
// aggregate, the system metrics snapshot, pipeline/limiter status, and the
// notification log.
type SystemHandler struct {
	dashboard     ports.DashboardService
	notifications ports.NotificationStore
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(dashboard ports.DashboardService, notifications ports.NotificationStore) *SystemHandler {
	return &SystemHandler{dashboard: dashboard, notifications: notifications}
}

// Dashboard handles GET /api/v1/dashboard.
func (h *SystemHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.dashboard.Snapshot(r.Context())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDashboardResponse(snap))
}

// SystemMetrics handles GET /api/v1/metrics/system. It reads the live
// metrics cell and never blocks.
func (h *SystemHandler) SystemMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToMetricsResponse(h.dashboard.Metrics()))
}

// PipelineStatus handles GET /api/v1/pipeline/status.
func (h *SystemHandler) PipelineStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.dashboard.SystemStatus(r.Context())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToStatusResponse(status))
}

// Notifications handles GET /api/v1/notifications.
func (h *SystemHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitQuery(r, defaultNotificationLimit)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	recent, err := h.notifications.Recent(r.Context(), limit)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNotificationListResponse(recent))
}
