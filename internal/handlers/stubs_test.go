package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/platform/auth"
	"github.com/skm-mango/storefront/internal/services"
)

var errBoom = errors.New("boom")

// messageError mimics the user facing errors returned by services.
type messageError struct {
	kind    error
	message string
}

func (e *messageError) Error() string { return e.message }

func (e *messageError) Unwrap() error { return e.kind }

func userErr(kind error, message string) error {
	return &messageError{kind: kind, message: message}
}

type stubCatalogService struct {
	active   []services.ProductSnapshot
	all      []services.ProductSnapshot
	product  services.ProductSnapshot
	err      error
	getErr   error
	searched string
}

func (s *stubCatalogService) ListActiveProducts(context.Context) ([]services.ProductSnapshot, error) {
	return s.active, s.err
}

func (s *stubCatalogService) GetProduct(_ context.Context, productID string) (services.ProductSnapshot, error) {
	if s.getErr != nil {
		return services.ProductSnapshot{}, s.getErr
	}
	return s.product, nil
}

func (s *stubCatalogService) ListAllProducts(context.Context) ([]services.ProductSnapshot, error) {
	return s.all, s.err
}

func (s *stubCatalogService) SearchProducts(_ context.Context, query string) ([]services.ProductSnapshot, error) {
	s.searched = query
	return s.active, s.err
}

type stubAddressService struct {
	listed    []services.Address
	addFn     func(userID string, fields services.AddressFields) (services.Address, error)
	deleteErr error
	deleted   []string
	userIDs   []string
}

func (s *stubAddressService) ListAddresses(_ context.Context, userID string) ([]services.Address, error) {
	s.userIDs = append(s.userIDs, userID)
	return s.listed, nil
}

func (s *stubAddressService) AddAddress(_ context.Context, userID string, fields services.AddressFields) (services.Address, error) {
	s.userIDs = append(s.userIDs, userID)
	if s.addFn == nil {
		return services.Address{}, errBoom
	}
	return s.addFn(userID, fields)
}

func (s *stubAddressService) DeleteAddress(_ context.Context, userID string, addressID string) error {
	s.userIDs = append(s.userIDs, userID)
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, addressID)
	return nil
}

type stubSettingsService struct {
	public  services.PublicSettings
	values  map[string]string
	updated []services.UpdateSettingsCommand
	err     error
}

func (s *stubSettingsService) IsSeasonActive(context.Context) (bool, error) {
	return s.public.SeasonActive, s.err
}

func (s *stubSettingsService) DeliveryZones(context.Context) ([]string, error) {
	return s.public.DeliveryZones, s.err
}

func (s *stubSettingsService) PublicSettings(context.Context) (services.PublicSettings, error) {
	return s.public, s.err
}

func (s *stubSettingsService) AllSettings(context.Context) (map[string]string, error) {
	return s.values, s.err
}

func (s *stubSettingsService) UpdateSettings(_ context.Context, cmd services.UpdateSettingsCommand) (map[string]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.updated = append(s.updated, cmd)
	if s.values == nil {
		s.values = map[string]string{}
	}
	for k, v := range cmd.Values {
		s.values[k] = v
	}
	return s.values, nil
}

type stubOrderService struct {
	placeFn   func(cmd services.PlaceOrderCommand) (services.Order, error)
	placed    []services.PlaceOrderCommand
	userOrder []services.Order
	order     services.Order
	getErr    error
	listed    []services.Order
	filters   []services.OrderListFilter
	statusFn  func(cmd services.OrderStatusCommand) (services.Order, error)
	courierFn func(cmd services.OrderCourierCommand) (services.Order, error)
	exportFn  func(filter services.ExportFilter, w io.Writer) (int, error)
}

func (s *stubOrderService) PlaceOrder(_ context.Context, cmd services.PlaceOrderCommand) (services.Order, error) {
	s.placed = append(s.placed, cmd)
	if s.placeFn == nil {
		return services.Order{}, errBoom
	}
	return s.placeFn(cmd)
}

func (s *stubOrderService) ListUserOrders(_ context.Context, userID string) ([]services.Order, error) {
	var out []services.Order
	for _, order := range s.userOrder {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (s *stubOrderService) GetOrder(_ context.Context, orderID string) (services.Order, error) {
	if s.getErr != nil {
		return services.Order{}, s.getErr
	}
	return s.order, nil
}

func (s *stubOrderService) ListOrders(_ context.Context, filter services.OrderListFilter) ([]services.Order, error) {
	s.filters = append(s.filters, filter)
	return s.listed, nil
}

func (s *stubOrderService) UpdateStatus(_ context.Context, cmd services.OrderStatusCommand) (services.Order, error) {
	if s.statusFn == nil {
		return services.Order{}, errBoom
	}
	return s.statusFn(cmd)
}

func (s *stubOrderService) UpdateCourier(_ context.Context, cmd services.OrderCourierCommand) (services.Order, error) {
	if s.courierFn == nil {
		return services.Order{}, errBoom
	}
	return s.courierFn(cmd)
}

func (s *stubOrderService) ExportOrders(_ context.Context, filter services.ExportFilter, w io.Writer) (int, error) {
	if s.exportFn == nil {
		return 0, errBoom
	}
	return s.exportFn(filter, w)
}

type stubSystemService struct {
	report services.SystemHealthReport
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.SystemHealthReport, error) {
	return s.report, s.err
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func fixedTime() time.Time {
	return time.Date(2025, 5, 10, 4, 30, 0, 0, time.UTC)
}

func sampleOrder(id, userID string) services.Order {
	return services.Order{
		ID:        id,
		UserID:    userID,
		Customer:  services.OrderCustomer{ID: userID, Name: "Meena", Phone: "9876543210"},
		OrderDate: fixedTime(),
		Status:    services.OrderStatus("CONFIRMED"),
		Items: []services.OrderItem{
			{ProductID: "alphonso", ProductName: "Alphonso", QuantityKg: dec("3"), PricePerKg: dec("250"), LineTotal: dec("750")},
		},
		Address:     services.Address{ID: "adr_1", FullName: "Meena", City: "Pune", State: "Maharashtra", Pincode: "411001"},
		TotalAmount: dec("750"),
		UpdatedAt:   fixedTime(),
	}
}

// asUser attaches an identity the way the auth middleware does.
func asUser(req *http.Request, uid string, roles ...string) *http.Request {
	if len(roles) == 0 {
		roles = []string{auth.RoleUser}
	}
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid, Roles: roles}))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch v := body.(type) {
		case string:
			reader = bytes.NewBufferString(v)
		default:
			data, err := json.Marshal(v)
			if err != nil {
				t.Fatalf("marshal request: %v", err)
			}
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, status int, code, message string) map[string]any {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	payload := decodeResponse(t, rec)
	if payload["error"] != code {
		t.Fatalf("expected error code %q, got %v", code, payload["error"])
	}
	if message != "" && payload["message"] != message {
		t.Fatalf("expected message %q, got %v", message, payload["message"])
	}
	return payload
}
