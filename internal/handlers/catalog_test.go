package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/services"
)

func newCatalogRouter(svc services.CatalogService) chi.Router {
	h := NewCatalogHandlers(svc)
	return NewRouter(
		WithPublicRoutes(h.Routes),
		WithAdminRoutes(NewAdminHandlers(h, nil, nil).Routes),
	)
}

func TestCatalogListsActiveProducts(t *testing.T) {
	sale := dec("220")
	svc := &stubCatalogService{active: []services.ProductSnapshot{{
		ID: "alphonso", Name: "Alphonso", OriginalPrice: dec("250"), SalePrice: &sale,
		EffectivePrice: dec("220"), StockKg: dec("40"), MinOrderKg: dec("3"), InStock: true,
	}}}

	rec := httptest.NewRecorder()
	newCatalogRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	items, _ := decodeResponse(t, rec)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one product, got %v", items)
	}
	product, _ := items[0].(map[string]any)
	if product["effective_price"] != "220" || product["sale_price"] != "220" || product["min_order_kg"] != "3" {
		t.Fatalf("unexpected product payload %v", product)
	}
	if product["in_stock"] != true {
		t.Fatalf("expected in_stock true, got %v", product["in_stock"])
	}
}

func TestCatalogEmptyListIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	newCatalogRouter(&stubCatalogService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if body := rec.Body.String(); body != "{\"items\":[]}\n" {
		t.Fatalf("expected empty items array, got %q", body)
	}
}

func TestCatalogSearchRequiresQuery(t *testing.T) {
	svc := &stubCatalogService{}
	router := newCatalogRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/search", nil))
	payload := assertErrorResponse(t, rec, http.StatusBadRequest, "invalid_request", "")
	if payload["field"] != "q" {
		t.Fatalf("expected field q, got %v", payload["field"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/search?q=alph", nil))
	if rec.Code != http.StatusOK || svc.searched != "alph" {
		t.Fatalf("expected search for alph, got status %d query %q", rec.Code, svc.searched)
	}
}

func TestCatalogProductNotFound(t *testing.T) {
	svc := &stubCatalogService{getErr: userErr(services.ErrCatalogProductNotFound, "Product not found")}

	rec := httptest.NewRecorder()
	newCatalogRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products/missing", nil))
	assertErrorResponse(t, rec, http.StatusNotFound, "not_found", "Product not found")
}

func TestCatalogUnavailableAndUnexpectedErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	newCatalogRouter(&stubCatalogService{err: services.ErrCatalogUnavailable}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assertErrorResponse(t, rec, http.StatusServiceUnavailable, "service_unavailable", "service temporarily unavailable")

	rec = httptest.NewRecorder()
	newCatalogRouter(&stubCatalogService{err: errBoom}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil))
	assertErrorResponse(t, rec, http.StatusInternalServerError, "internal_error", "internal server error")
}

func TestCatalogWithoutServiceIs503(t *testing.T) {
	rec := httptest.NewRecorder()
	newCatalogRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	assertErrorResponse(t, rec, http.StatusServiceUnavailable, "catalog_service_unavailable", "")
}
