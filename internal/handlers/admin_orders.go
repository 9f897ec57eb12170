package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cast"

	"github.com/skm-mango/storefront/internal/platform/httpx"
	"github.com/skm-mango/storefront/internal/services"
)

// AdminOrderHandlers serves the staff fulfillment console.
type AdminOrderHandlers struct {
	orders services.OrderService
}

// NewAdminOrderHandlers constructs staff order handlers.
func NewAdminOrderHandlers(orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{orders: orders}
}

// Routes registers the staff order endpoints relative to /admin.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/export", h.exportOrders)
		r.Get("/{orderID}", h.getOrder)
		r.Put("/{orderID}/status", h.updateStatus)
		r.Put("/{orderID}/courier", h.updateCourier)
	})
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	query := r.URL.Query()
	filter := services.OrderListFilter{
		Date:  strings.TrimSpace(query.Get("date")),
		Today: cast.ToBool(strings.TrimSpace(query.Get("today"))),
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status := services.OrderStatus(raw)
		filter.Status = &status
	}

	orders, err := h.orders.ListOrders(ctx, filter)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": buildOrderList(orders)})
}

func (h *AdminOrderHandlers) exportOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	query := r.URL.Query()
	filter := services.ExportFilter{
		Scope: strings.TrimSpace(query.Get("scope")),
		Date:  strings.TrimSpace(query.Get("date")),
		From:  strings.TrimSpace(query.Get("from")),
		To:    strings.TrimSpace(query.Get("to")),
	}

	// Buffered so a failure mid-export still produces a JSON error.
	var buf bytes.Buffer
	count, err := h.orders.ExportOrders(ctx, filter, &buf)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	scope := filter.Scope
	if scope == "" {
		scope = services.ExportScopeAll
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "orders-"+scope+".csv"))
	w.Header().Set("X-Export-Count", strconv.Itoa(count))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(ctx, orderID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	cmd := services.OrderStatusCommand{
		OrderID: orderID,
		Status:  services.OrderStatus(strings.TrimSpace(req.Status)),
		ActorID: identity.UID,
	}
	if expected := strings.TrimSpace(req.ExpectedStatus); expected != "" {
		status := services.OrderStatus(expected)
		cmd.ExpectedStatus = &status
	}
	order, err := h.orders.UpdateStatus(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func (h *AdminOrderHandlers) updateCourier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		writeServiceUnavailable(ctx, w, "order")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(w, r)
	if !ok {
		return
	}
	var req courierRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	order, err := h.orders.UpdateCourier(ctx, services.OrderCourierCommand{
		OrderID:     orderID,
		CourierName: req.CourierName,
		TrackingID:  req.TrackingID,
		ActorID:     identity.UID,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"order": buildOrderPayload(order)})
}

func orderIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return "", false
	}
	return orderID, true
}
