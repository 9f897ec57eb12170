package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/services"
)

func newAddressRouter(svc services.AddressService) chi.Router {
	return NewRouter(WithMeRoutes(NewAddressHandlers(svc).Routes))
}

func TestAddressesRequireIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	newAddressRouter(&stubAddressService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/me/addresses", nil))
	assertErrorResponse(t, rec, http.StatusUnauthorized, "unauthenticated", "authentication required")
}

func TestAddressListScopedToCaller(t *testing.T) {
	svc := &stubAddressService{listed: []services.Address{
		{ID: "adr_1", FullName: "Meena", IsDefault: true, CreatedAt: fixedTime()},
		{ID: "adr_2", FullName: "Meena"},
	}}

	rec := httptest.NewRecorder()
	newAddressRouter(svc).ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/me/addresses", nil), "u1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(svc.userIDs) != 1 || svc.userIDs[0] != "u1" {
		t.Fatalf("expected lookup for u1, got %v", svc.userIDs)
	}
	items, _ := decodeResponse(t, rec)["items"].([]any)
	first, _ := items[0].(map[string]any)
	if len(items) != 2 || first["is_default"] != true || first["created_at"] != "2025-05-10T04:30:00Z" {
		t.Fatalf("unexpected items %v", items)
	}
}

func TestAddressCreateReturnsLocation(t *testing.T) {
	var got services.AddressFields
	svc := &stubAddressService{addFn: func(_ string, fields services.AddressFields) (services.Address, error) {
		got = fields
		return services.Address{ID: "adr_9", FullName: fields.FullName, Pincode: fields.Pincode, IsDefault: true}, nil
	}}
	body := map[string]any{
		"full_name": "Meena", "phone": "9876543210", "address_line": "12 MG Road",
		"city": "Pune", "state": "Maharashtra", "pincode": "411001",
	}

	rec := httptest.NewRecorder()
	newAddressRouter(svc).ServeHTTP(rec, asUser(jsonRequest(t, http.MethodPost, "/api/v1/me/addresses", body), "u1"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/api/v1/me/addresses/adr_9" {
		t.Fatalf("unexpected location %q", loc)
	}
	if got.AddressLine != "12 MG Road" || got.State != "Maharashtra" {
		t.Fatalf("fields not forwarded: %+v", got)
	}
	address, _ := decodeResponse(t, rec)["address"].(map[string]any)
	if address["id"] != "adr_9" {
		t.Fatalf("unexpected address payload %v", address)
	}
}

func TestAddressCreateErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    any
		err     error
		status  int
		code    string
		message string
		field   string
	}{
		{name: "empty body", body: nil, status: http.StatusBadRequest, code: "invalid_request", message: "request body is required"},
		{name: "unknown field", body: `{"nickname":"home"}`, status: http.StatusBadRequest, code: "invalid_request", message: "request body must be valid JSON"},
		{
			name:    "field error",
			body:    map[string]any{"full_name": "Meena"},
			err:     &services.AddressFieldError{Field: "pincode", Message: "Pincode must be 6 digits"},
			status:  http.StatusBadRequest,
			code:    "invalid_address",
			message: "Pincode must be 6 digits",
			field:   "pincode",
		},
		{
			name:    "outside zone",
			body:    map[string]any{"full_name": "Meena"},
			err:     userErr(services.ErrAddressOutsideZone, "Delivery is available only in: Maharashtra, Goa"),
			status:  http.StatusBadRequest,
			code:    "outside_delivery_zone",
			message: "Delivery is available only in: Maharashtra, Goa",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubAddressService{addFn: func(string, services.AddressFields) (services.Address, error) {
				return services.Address{}, tc.err
			}}
			rec := httptest.NewRecorder()
			newAddressRouter(svc).ServeHTTP(rec, asUser(jsonRequest(t, http.MethodPost, "/api/v1/me/addresses", tc.body), "u1"))
			payload := assertErrorResponse(t, rec, tc.status, tc.code, tc.message)
			if tc.field != "" && payload["field"] != tc.field {
				t.Fatalf("expected field %q, got %v", tc.field, payload["field"])
			}
		})
	}
}

func TestAddressDelete(t *testing.T) {
	svc := &stubAddressService{}
	router := newAddressRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/me/addresses/adr_1", nil), "u1"))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(svc.deleted) != 1 || svc.deleted[0] != "adr_1" {
		t.Fatalf("expected adr_1 deleted, got %v", svc.deleted)
	}

	svc.deleteErr = userErr(services.ErrAddressForbidden, "Address does not belong to the user")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/me/addresses/adr_2", nil), "u1"))
	assertErrorResponse(t, rec, http.StatusForbidden, "address_mismatch", "Address does not belong to the user")
}
