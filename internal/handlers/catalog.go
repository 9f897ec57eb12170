package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/skm-mango/storefront/internal/platform/httpx"
	"github.com/skm-mango/storefront/internal/services"
)

// CatalogHandlers serves product reads.
type CatalogHandlers struct {
	catalog services.CatalogService
}

// NewCatalogHandlers constructs catalog handlers.
func NewCatalogHandlers(catalog services.CatalogService) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// Routes registers the public product endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Get("/products/search", h.searchProducts)
	r.Get("/products/{productID}", h.getProduct)
}

// AdminRoutes registers the staff product listing.
func (h *CatalogHandlers) AdminRoutes(r chi.Router) {
	r.Get("/products", h.listAllProducts)
}

func (h *CatalogHandlers) listProducts(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeServiceUnavailable(r.Context(), w, "catalog")
		return
	}
	products, err := h.catalog.ListActiveProducts(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeProductList(w, products)
}

func (h *CatalogHandlers) listAllProducts(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		writeServiceUnavailable(r.Context(), w, "catalog")
		return
	}
	products, err := h.catalog.ListAllProducts(r.Context())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeProductList(w, products)
}

func (h *CatalogHandlers) searchProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "query parameter q is required", http.StatusBadRequest).WithField("q"))
		return
	}
	products, err := h.catalog.SearchProducts(ctx, query)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeProductList(w, products)
}

func (h *CatalogHandlers) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		writeServiceUnavailable(ctx, w, "catalog")
		return
	}
	product, err := h.catalog.GetProduct(ctx, chi.URLParam(r, "productID"))
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"product": buildProductPayload(product)})
}

func writeProductList(w http.ResponseWriter, products []services.ProductSnapshot) {
	items := make([]productPayload, 0, len(products))
	for _, product := range products {
		items = append(items, buildProductPayload(product))
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"items": items})
}
