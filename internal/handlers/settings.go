package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/auth"
	"github.com/skm-mango/storefront/internal/platform/httpx"
	"github.com/skm-mango/storefront/internal/services"
)

// SettingsHandlers serves the public storefront flags and the admin settings editor.
type SettingsHandlers struct {
	settings services.SettingsService
}

// NewSettingsHandlers constructs settings handlers.
func NewSettingsHandlers(settings services.SettingsService) *SettingsHandlers {
	return &SettingsHandlers{settings: settings}
}

// Routes registers the public settings endpoint.
func (h *SettingsHandlers) Routes(r chi.Router) {
	r.Get("/settings/public", h.publicSettings)
}

// AdminRoutes registers the admin-only settings endpoints.
func (h *SettingsHandlers) AdminRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.Use(requireRole(auth.RoleAdmin))
		r.Get("/", h.allSettings)
		r.Put("/", h.updateSettings)
	})
}

func (h *SettingsHandlers) publicSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}
	public, err := h.settings.PublicSettings(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	zones := public.DeliveryZones
	if zones == nil {
		zones = []string{}
	}
	writeJSONResponse(w, http.StatusOK, publicSettingsPayload{
		SeasonActive:     public.SeasonActive,
		SeasonBannerText: public.SeasonBannerText,
		DeliveryZones:    zones,
	})
}

func (h *SettingsHandlers) allSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}
	values, err := h.settings.AllSettings(ctx)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, settingsPayload{Settings: values})
}

func (h *SettingsHandlers) updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.settings == nil {
		writeServiceUnavailable(ctx, w, "settings")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req settingsPayload
	if !decodeJSONBody(w, r, &req) {
		return
	}
	values, err := h.settings.UpdateSettings(ctx, services.UpdateSettingsCommand{Values: req.Settings, ActorID: identity.UID})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, settingsPayload{Settings: values})
}

// requireRole rejects callers lacking every one of roles with 403. It expects an authenticated request.
func requireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := requireIdentity(w, r)
			if !ok {
				return
			}
			if !identity.HasAnyRole(roles...) {
				httpx.WriteError(r.Context(), w, httpx.NewError("forbidden", "insufficient role", http.StatusForbidden))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
