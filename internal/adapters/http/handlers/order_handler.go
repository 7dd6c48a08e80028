package handlers

import (
	"net/http"

	"github.com/jsamuelsen11/orderflow/internal/adapters/http/dto"
	"github.com/jsamuelsen11/orderflow/internal/domain/order"
	"github.com/jsamuelsen11/orderflow/internal/ports"
)

// OrderHandler handles HTTP requests for placing and inspecting orders.
// Orders are accepted synchronously and processed asynchronously; the
// processing endpoint exposes the pipeline's live state.
type OrderHandler struct {
	svc ports.OrderService
}

// NewOrderHandler creates a new OrderHandler with the given service port.
func NewOrderHandler(svc ports.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// ListOrders handles GET /api/v1/orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListOrders(r.Context())
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToOrderListResponse(orders))
}

// PlaceOrder handles POST /api/v1/orders. The order is persisted and
// enqueued; 202 signals that processing continues in the background.
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	o := &order.Order{
		UserID:      req.UserID,
		ProductName: req.ProductName,
		Amount:      req.Amount,
	}

	placed, err := h.svc.PlaceOrder(r.Context(), o)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, dto.ToOrderResponse(placed))
}

// GetOrder handles GET /api/v1/orders/{id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToOrderResponse(o))
}

// Processing handles GET /api/v1/orders/processing. It reads the live
// processing state cell and never blocks.
func (h *OrderHandler) Processing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ToProcessingResponse(h.svc.ProcessingState()))
}
