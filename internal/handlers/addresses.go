package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/httpx"
	"github.com/skm-mango/storefront/internal/services"
)

// AddressHandlers serves the caller's address book under /me/addresses.
type AddressHandlers struct {
	addresses services.AddressService
}

// NewAddressHandlers constructs address handlers.
func NewAddressHandlers(addresses services.AddressService) *AddressHandlers {
	return &AddressHandlers{addresses: addresses}
}

// Routes registers the address endpoints relative to /me.
func (h *AddressHandlers) Routes(r chi.Router) {
	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.listAddresses)
		r.Post("/", h.createAddress)
		r.Delete("/{addressID}", h.deleteAddress)
	})
}

func (h *AddressHandlers) listAddresses(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeServiceUnavailable(ctx, w, "address")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	addresses, err := h.addresses.ListAddresses(ctx, identity.UID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	items := make([]addressPayload, 0, len(addresses))
	for _, addr := range addresses {
		items = append(items, buildAddressPayload(addr))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}

func (h *AddressHandlers) createAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeServiceUnavailable(ctx, w, "address")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	var req addressRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	saved, err := h.addresses.AddAddress(ctx, identity.UID, req.fields())
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.Header().Set("Location", strings.TrimSuffix(r.URL.Path, "/")+"/"+saved.ID)
	writeJSONResponse(w, http.StatusCreated, map[string]any{"address": buildAddressPayload(saved)})
}

func (h *AddressHandlers) deleteAddress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.addresses == nil {
		writeServiceUnavailable(ctx, w, "address")
		return
	}
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	addressID := strings.TrimSpace(chi.URLParam(r, "addressID"))
	if addressID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "address id is required", http.StatusBadRequest))
		return
	}

	if err := h.addresses.DeleteAddress(ctx, identity.UID, addressID); err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
