// Package dto provides HTTP request/response data transfer objects and
// RFC 9457 Problem Details error responses for the inbound HTTP adapter layer.
package dto

import (
	"time"

	"github.com/jsamuelsen11/orderflow/internal/domain"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/domain/user"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// UserResponse represents a single user in HTTP responses.
type UserResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UserListResponse represents a list of users in HTTP responses.
type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// ToUserResponse converts a domain User entity to an HTTP response DTO.
func ToUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
}

// ToUserListResponse converts a slice of domain User entities to an HTTP
// list response DTO.
func ToUserListResponse(users []user.User) UserListResponse {
	items := make([]UserResponse, len(users))
	for i := range users {
		items[i] = ToUserResponse(&users[i])
	}
	return UserListResponse{Users: items, Count: len(items)}
}

// OrderResponse represents a single order in HTTP responses.
type OrderResponse struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	ProductName string  `json:"product_name"`
	Amount      float64 `json:"amount"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// OrderListResponse represents a list of orders in HTTP responses.
type OrderListResponse struct {
	Orders []OrderResponse `json:"orders"`
	Count  int             `json:"count"`
}

// ToOrderResponse converts a domain Order entity to an HTTP response DTO.
func ToOrderResponse(o *order.Order) OrderResponse {
	return OrderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		ProductName: o.ProductName,
		Amount:      o.Amount,
		Status:      o.Status.String(),
		CreatedAt:   o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   o.UpdatedAt.Format(time.RFC3339),
	}
}

// ToOrderListResponse converts a slice of domain Order entities to an HTTP
// list response DTO.
func ToOrderListResponse(orders []order.Order) OrderListResponse {
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return OrderListResponse{Orders: items, Count: len(items)}
}

// ProcessingResponse represents the pipeline's current processing state.
// Only the fields belonging to the tagged phase are populated.
type ProcessingResponse struct {
	Phase    string `json:"phase"`
	OrderID  int64  `json:"order_id,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Success  bool   `json:"success,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// ToProcessingResponse converts a processing state to an HTTP response DTO.
func ToProcessingResponse(s order.ProcessingState) ProcessingResponse {
	resp := ProcessingResponse{
		Phase:    string(s.Phase),
		OrderID:  s.OrderID,
		Progress: s.Progress,
		Success:  s.Success,
		Message:  s.Message,
	}
	if s.Err != nil {
		resp.Error = s.Err.Error()
	}
	return resp
}

// MetricsResponse represents the aggregated system metrics snapshot.
type MetricsResponse struct {
	UsersCreated    int64  `json:"users_created"`
	OrdersCreated   int64  `json:"orders_created"`
	OrdersCompleted int64  `json:"orders_completed"`
	OrdersFailed    int64  `json:"orders_failed"`
	EventsPublished int64  `json:"events_published"`
	UpdatedAt       string `json:"updated_at,omitempty"`
}

// ToMetricsResponse converts a metrics snapshot to an HTTP response DTO.
func ToMetricsResponse(m domain.SystemMetrics) MetricsResponse {
	resp := MetricsResponse{
		UsersCreated:    m.UsersCreated,
		OrdersCreated:   m.OrdersCreated,
		OrdersCompleted: m.OrdersCompleted,
		OrdersFailed:    m.OrdersFailed,
		EventsPublished: m.EventsPublished,
	}
	if !m.UpdatedAt.IsZero() {
		resp.UpdatedAt = m.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// DegradedSection reports a dashboard section that could not be assembled.
type DegradedSection struct {
	Section string `json:"section"`
	Error   string `json:"error"`
}

// DashboardResponse represents the aggregated dashboard view.
type DashboardResponse struct {
	Users       []UserResponse     `json:"users"`
	Orders      []OrderResponse    `json:"orders"`
	Metrics     MetricsResponse    `json:"metrics"`
	Processing  ProcessingResponse `json:"processing"`
	Degraded    []DegradedSection  `json:"degraded,omitempty"`
	GeneratedAt string             `json:"generated_at"`
}

// ToDashboardResponse converts a dashboard snapshot to an HTTP response DTO.
func ToDashboardResponse(snap *ports.DashboardSnapshot) DashboardResponse {
	resp := DashboardResponse{
		Users:       ToUserListResponse(snap.Users).Users,
		Orders:      ToOrderListResponse(snap.Orders).Orders,
		Metrics:     ToMetricsResponse(snap.Metrics),
		Processing:  ToProcessingResponse(snap.Processing),
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
	}
	for _, d := range snap.Degraded {
		resp.Degraded = append(resp.Degraded, DegradedSection{
			Section: d.Section,
			Error:   d.Err.Error(),
		})
	}
	return resp
}

// PipelineStatusResponse describes the order pipeline.
type PipelineStatusResponse struct {
	Running       bool  `json:"running"`
	QueueDepth    int   `json:"queue_depth"`
	QueueCapacity int   `json:"queue_capacity"`
	Processed     int64 `json:"processed"`
	Failed        int64 `json:"failed"`
}

// LimiterStatusResponse describes the request limiter's sliding window.
type LimiterStatusResponse struct {
	CurrentRequests  int `json:"current_requests"`
	MaxRequests      int `json:"max_requests"`
	AvailablePermits int `json:"available_permits"`
}

// DomainStatusResponse describes one supervised execution domain.
type DomainStatusResponse struct {
	Name         string `json:"name"`
	Active       bool   `json:"active"`
	ActiveTasks  int64  `json:"active_tasks"`
	TotalSpawned int64  `json:"total_spawned"`
}

// StatusResponse aggregates operational state for the status endpoint.
type StatusResponse struct {
	Pipeline PipelineStatusResponse `json:"pipeline"`
	Limiter  LimiterStatusResponse  `json:"limiter"`
	Domains  []DomainStatusResponse `json:"domains"`
}

// ToStatusResponse converts a system status to an HTTP response DTO.
func ToStatusResponse(s *ports.SystemStatus) StatusResponse {
	resp := StatusResponse{
		Pipeline: PipelineStatusResponse{
			Running:       s.Pipeline.Running,
			QueueDepth:    s.Pipeline.QueueDepth,
			QueueCapacity: s.Pipeline.QueueCapacity,
			Processed:     s.Pipeline.Processed,
			Failed:        s.Pipeline.Failed,
		},
		Limiter: LimiterStatusResponse{
			CurrentRequests:  s.Limiter.CurrentRequests,
			MaxRequests:      s.Limiter.MaxRequests,
			AvailablePermits: s.Limiter.AvailablePermits,
		},
		Domains: make([]DomainStatusResponse, len(s.Domains)),
	}
	for i, d := range s.Domains {
		resp.Domains[i] = DomainStatusResponse{
			Name:         d.Name,
			Active:       d.Active,
			ActiveTasks:  d.ActiveTasks,
			TotalSpawned: d.TotalSpawned,
		}
	}
	return resp
}

// NotificationResponse represents one entry of the notification log.
type NotificationResponse struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

// NotificationListResponse represents the notification log, newest first.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Count         int                    `json:"count"`
}

// ToNotificationListResponse converts notification log entries to an HTTP
// list response DTO.
func ToNotificationListResponse(notifications []ports.Notification) NotificationListResponse {
	items := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		items[i] = NotificationResponse{
			ID:        n.ID,
			Recipient: n.Recipient,
			Subject:   n.Subject,
			Body:      n.Body,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	return NotificationListResponse{Notifications: items, Count: len(items)}
}
