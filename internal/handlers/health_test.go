package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/services"
)

func TestHealthzReportsBuildInfo(t *testing.T) {
	started := fixedTime().Add(-90 * time.Second)
	h := NewHealthHandlers(
		WithHealthClock(fixedTime),
		WithHealthBuildInfo(services.BuildInfo{Version: "1.4.0", CommitSHA: "abc123", Environment: "test", StartedAt: started}),
	)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	if payload["version"] != "1.4.0" || payload["commitSha"] != "abc123" || payload["environment"] != "test" {
		t.Fatalf("unexpected build fields %v", payload)
	}
	if payload["uptime"] != "1m30s" {
		t.Fatalf("expected uptime 1m30s, got %v", payload["uptime"])
	}
	if payload["timestamp"] != "2025-05-10T04:30:00Z" {
		t.Fatalf("unexpected timestamp %v", payload["timestamp"])
	}
}

func TestReadyzWithoutSystemServiceIsOK(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandlers(WithHealthClock(fixedTime)).Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestReadyzDegradedReturns503WithDetails(t *testing.T) {
	system := &stubSystemService{report: services.SystemHealthReport{
		Status: domain.HealthStatusDegraded,
		Checks: map[string]domain.SystemHealthCheck{
			"firestore": {Status: domain.HealthStatusOK, Latency: 12 * time.Millisecond},
			"redis":     {Status: domain.HealthStatusError, Error: "connection refused"},
		},
		GeneratedAt: fixedTime(),
	}}
	h := NewHealthHandlers(WithHealthSystemService(system), WithHealthClock(fixedTime))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	payload := decodeResponse(t, rec)
	details, _ := payload["details"].([]any)
	if len(details) != 1 || details[0] != "redis: connection refused" {
		t.Fatalf("unexpected details %v", payload["details"])
	}
	checks, _ := payload["checks"].(map[string]any)
	firestore, _ := checks["firestore"].(map[string]any)
	if firestore["latencyMs"] != float64(12) {
		t.Fatalf("expected firestore latency 12ms, got %v", firestore["latencyMs"])
	}
}

func TestReadyzReportFailure(t *testing.T) {
	h := NewHealthHandlers(WithHealthSystemService(&stubSystemService{err: errBoom}))

	rec := httptest.NewRecorder()
	h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assertErrorResponse(t, rec, http.StatusServiceUnavailable, "health_check_failed", "boom")
}
