package handlers

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/auth"
	"github.com/skm-mango/storefront/internal/services"
)

func newAdminOrderRouter(svc services.OrderService) chi.Router {
	return NewRouter(WithAdminRoutes(NewAdminHandlers(nil, NewAdminOrderHandlers(svc), nil).Routes))
}

func asStaff(req *http.Request) *http.Request {
	return asUser(req, "staff-1", auth.RoleStaff)
}

func TestAdminListOrdersParsesFilters(t *testing.T) {
	svc := &stubOrderService{listed: []services.Order{sampleOrder("ord_1", "u1")}}
	router := newAdminOrderRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asStaff(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders?status=shipped&today=1&date=2025-05-01", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.filters) != 1 {
		t.Fatalf("expected one listing, got %d", len(svc.filters))
	}
	filter := svc.filters[0]
	if filter.Status == nil || *filter.Status != "shipped" || !filter.Today || filter.Date != "2025-05-01" {
		t.Fatalf("unexpected filter %+v", filter)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asStaff(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)))
	if filter := svc.filters[1]; filter.Status != nil || filter.Today || filter.Date != "" {
		t.Fatalf("expected empty filter, got %+v", filter)
	}
}

func TestAdminExportWritesCSV(t *testing.T) {
	var got services.ExportFilter
	svc := &stubOrderService{exportFn: func(filter services.ExportFilter, w io.Writer) (int, error) {
		got = filter
		_, _ = fmt.Fprint(w, "Order ID,Date\nord_1,2025-05-10T10:00:00\n")
		return 1, nil
	}}

	rec := httptest.NewRecorder()
	newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/export?scope=range&from=2025-05-01&to=2025-05-10", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Scope != services.ExportScopeRange || got.From != "2025-05-01" || got.To != "2025-05-10" {
		t.Fatalf("unexpected export filter %+v", got)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="orders-range.csv"` {
		t.Fatalf("unexpected disposition %q", cd)
	}
	if rec.Header().Get("X-Export-Count") != "1" {
		t.Fatalf("unexpected count %q", rec.Header().Get("X-Export-Count"))
	}
	if rec.Body.String() != "Order ID,Date\nord_1,2025-05-10T10:00:00\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestAdminExportRejectsBadScope(t *testing.T) {
	svc := &stubOrderService{exportFn: func(filter services.ExportFilter, w io.Writer) (int, error) {
		_, _ = fmt.Fprint(w, "partial")
		return 0, userErr(services.ErrOrderInvalidInput, "Unknown export scope: weekly")
	}}

	rec := httptest.NewRecorder()
	newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/export?scope=weekly", nil)))
	assertErrorResponse(t, rec, http.StatusBadRequest, "invalid_request", "Unknown export scope: weekly")
}

func TestAdminUpdateStatus(t *testing.T) {
	var got services.OrderStatusCommand
	svc := &stubOrderService{statusFn: func(cmd services.OrderStatusCommand) (services.Order, error) {
		got = cmd
		order := sampleOrder(cmd.OrderID, "u1")
		order.Status = cmd.Status
		return order, nil
	}}

	body := map[string]any{"status": "SHIPPED", "expected_status": "CONFIRMED"}
	rec := httptest.NewRecorder()
	newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(jsonRequest(t, http.MethodPut, "/api/v1/admin/orders/ord_1/status", body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.OrderID != "ord_1" || got.Status != "SHIPPED" || got.ActorID != "staff-1" {
		t.Fatalf("unexpected command %+v", got)
	}
	if got.ExpectedStatus == nil || *got.ExpectedStatus != "CONFIRMED" {
		t.Fatalf("expected status not forwarded: %+v", got.ExpectedStatus)
	}
	order, _ := decodeResponse(t, rec)["order"].(map[string]any)
	if order["status"] != "SHIPPED" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestAdminUpdateStatusErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stale", userErr(services.ErrOrderConflict, "Order ord_1 is SHIPPED, expected CONFIRMED"), http.StatusConflict, "conflict"},
		{"disallowed", userErr(services.ErrOrderInvalidState, "Cannot move order from DELIVERED to SHIPPED"), http.StatusConflict, "invalid_state"},
		{"unknown status", userErr(services.ErrOrderInvalidInput, "Invalid status: LOST"), http.StatusBadRequest, "invalid_request"},
		{"missing", userErr(services.ErrOrderNotFound, "Order not found"), http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubOrderService{statusFn: func(services.OrderStatusCommand) (services.Order, error) {
				return services.Order{}, tc.err
			}}
			rec := httptest.NewRecorder()
			newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(jsonRequest(t, http.MethodPut, "/api/v1/admin/orders/ord_1/status", map[string]any{"status": "SHIPPED"})))
			assertErrorResponse(t, rec, tc.status, tc.code, tc.err.Error())
		})
	}
}

func TestAdminUpdateCourier(t *testing.T) {
	var got services.OrderCourierCommand
	svc := &stubOrderService{courierFn: func(cmd services.OrderCourierCommand) (services.Order, error) {
		got = cmd
		order := sampleOrder(cmd.OrderID, "u1")
		order.CourierName = cmd.CourierName
		order.TrackingID = cmd.TrackingID
		order.Status = "SHIPPED"
		return order, nil
	}}

	body := map[string]any{"courier_name": "BlueDart", "tracking_id": "BD123"}
	rec := httptest.NewRecorder()
	newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(jsonRequest(t, http.MethodPut, "/api/v1/admin/orders/ord_1/courier", body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.CourierName != "BlueDart" || got.TrackingID != "BD123" || got.ActorID != "staff-1" {
		t.Fatalf("unexpected command %+v", got)
	}
	order, _ := decodeResponse(t, rec)["order"].(map[string]any)
	if order["courier_name"] != "BlueDart" || order["tracking_id"] != "BD123" || order["status"] != "SHIPPED" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestAdminGetOrder(t *testing.T) {
	svc := &stubOrderService{order: sampleOrder("ord_1", "u1")}

	rec := httptest.NewRecorder()
	newAdminOrderRouter(svc).ServeHTTP(rec, asStaff(httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders/ord_1", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	order, _ := decodeResponse(t, rec)["order"].(map[string]any)
	customer, _ := order["customer"].(map[string]any)
	if customer["phone"] != "9876543210" {
		t.Fatalf("unexpected customer %v", customer)
	}
}
