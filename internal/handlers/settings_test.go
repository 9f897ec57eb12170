package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/auth"
	"github.com/skm-mango/storefront/internal/services"
)

func newSettingsRouter(svc services.SettingsService) chi.Router {
	h := NewSettingsHandlers(svc)
	return NewRouter(
		WithPublicRoutes(h.Routes),
		WithAdminRoutes(NewAdminHandlers(nil, nil, h).Routes),
	)
}

func TestPublicSettings(t *testing.T) {
	svc := &stubSettingsService{public: services.PublicSettings{SeasonActive: true, SeasonBannerText: "Season is live"}}

	rec := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/settings/public", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["season_active"] != true || payload["season_banner_text"] != "Season is live" {
		t.Fatalf("unexpected payload %v", payload)
	}
	zones, ok := payload["delivery_zones"].([]any)
	if !ok || len(zones) != 0 {
		t.Fatalf("expected empty zones array, got %v", payload["delivery_zones"])
	}
}

func TestAdminSettingsRequireAdminRole(t *testing.T) {
	svc := &stubSettingsService{values: map[string]string{"season_active": "false"}}
	router := newSettingsRouter(svc)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil), "staff-1", auth.RoleStaff))
	assertErrorResponse(t, rec, http.StatusForbidden, "forbidden", "insufficient role")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil))
	assertErrorResponse(t, rec, http.StatusUnauthorized, "unauthenticated", "")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, asUser(httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil), "admin-1", auth.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	settings, _ := decodeResponse(t, rec)["settings"].(map[string]any)
	if settings["season_active"] != "false" {
		t.Fatalf("unexpected settings %v", settings)
	}
}

func TestAdminUpdateSettings(t *testing.T) {
	svc := &stubSettingsService{}
	body := map[string]any{"settings": map[string]string{"season_active": "true"}}

	rec := httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(rec, asUser(jsonRequest(t, http.MethodPut, "/api/v1/admin/settings", body), "admin-1", auth.RoleAdmin))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.updated) != 1 || svc.updated[0].ActorID != "admin-1" || svc.updated[0].Values["season_active"] != "true" {
		t.Fatalf("unexpected update %+v", svc.updated)
	}

	svc.err = userErr(services.ErrSettingsInvalidInput, "season_active must be true or false")
	rec = httptest.NewRecorder()
	newSettingsRouter(svc).ServeHTTP(rec, asUser(jsonRequest(t, http.MethodPut, "/api/v1/admin/settings", body), "admin-1", auth.RoleAdmin))
	assertErrorResponse(t, rec, http.StatusBadRequest, "invalid_request", "season_active must be true or false")
}
