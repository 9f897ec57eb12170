package handlers

import "github.com/go-chi/chi/v5"

// AdminHandlers composes the staff surfaces mounted under /admin.
type AdminHandlers struct {
	catalog  *CatalogHandlers
	orders   *AdminOrderHandlers
	settings *SettingsHandlers
}

// NewAdminHandlers builds the admin route set. Nil members are skipped.
func NewAdminHandlers(catalog *CatalogHandlers, orders *AdminOrderHandlers, settings *SettingsHandlers) *AdminHandlers {
	return &AdminHandlers{catalog: catalog, orders: orders, settings: settings}
}

// Routes registers every admin endpoint.
func (h *AdminHandlers) Routes(r chi.Router) {
	if h.catalog != nil {
		h.catalog.AdminRoutes(r)
	}
	if h.orders != nil {
		h.orders.Routes(r)
	}
	if h.settings != nil {
		h.settings.AdminRoutes(r)
	}
}
