package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/httpx"
	"github.com/skm-mango/storefront/internal/services"
)

// OrderHandlers serves customer order placement and history.
type OrderHandlers struct {
	orders      services.OrderService
	idempotency func(http.Handler) http.Handler
}

// OrderOption customises OrderHandlers.
type OrderOption func(*OrderHandlers)

// WithOrderIdempotency guards order placement with the given idempotency middleware.
func WithOrderIdempotency(mw func(http.Handler) http.Handler) OrderOption {
	return func(h *OrderHandlers) {
		h.idempotency = mw
	}
}

// NewOrderHandlers constructs order handlers.
func NewOrderHandlers(orders services.OrderService, opts ...OrderOption) *OrderHandlers {
	h := &OrderHandlers{orders: orders}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the order endpoints relative to /orders.
func (h *OrderHandlers) Routes(r chi.Router) {
	if h.idempotency != nil {
		r.With(h.idempotency).Post("/", h.placeOrder)
	} else {
		r.Post("/", h.placeOrder)
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req placeOrderRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	lines := make([]services.PlaceOrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.PlaceOrderLine{ProductID: item.ProductID, QuantityKg: item.QuantityKg})
	}
	order, err := h.orders.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:    identity.UID,
		AddressID: req.AddressID,
		Items:     lines,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+order.ID)
	writeJSONResponse(w, http.StatusCreated, map[string]any{"order": buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orders, err := h.orders.ListUserOrders(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": buildOrderList(orders)})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	// Other customers' orders are reported as missing.
	if order.UserID != identity.UID && !identity.IsStaff() {
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "Order not found", http.StatusNotFound))
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}
