package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/skm-mango/storefront/internal/repositories"
)

var (
	// ErrCatalogInvalidInput signals malformed catalog queries.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogProductNotFound indicates the product is missing or inactive.
	ErrCatalogProductNotFound = errors.New("catalog: product not found")
	// ErrCatalogUnavailable indicates the catalog store could not be reached.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps bundles collaborators required to construct the catalog service.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
}

type catalogService struct {
	products repositories.ProductRepository
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService wires the product repository into a CatalogService.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	return &catalogService{products: deps.Products}, nil
}

func (s *catalogService) ListActiveProducts(ctx context.Context) ([]ProductSnapshot, error) {
	return s.list(ctx, true)
}

func (s *catalogService) ListAllProducts(ctx context.Context) ([]ProductSnapshot, error) {
	return s.list(ctx, false)
}

// GetProduct returns an active product. Inactive products are reported as not found.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (ProductSnapshot, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return ProductSnapshot{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return ProductSnapshot{}, s.mapError(err)
	}
	if !product.Active {
		return ProductSnapshot{}, fmt.Errorf("%w: %s", ErrCatalogProductNotFound, productID)
	}
	return product.Snapshot(), nil
}

// SearchProducts matches active products whose name contains query, ignoring case.
func (s *catalogService) SearchProducts(ctx context.Context, query string) ([]ProductSnapshot, error) {
	needle := foldCase(strings.TrimSpace(query))
	if needle == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrCatalogInvalidInput)
	}
	products, err := s.products.List(ctx, repositories.ProductListFilter{ActiveOnly: true})
	if err != nil {
		return nil, s.mapError(err)
	}
	out := make([]ProductSnapshot, 0, len(products))
	for _, product := range products {
		if strings.Contains(foldCase(product.Name), needle) {
			out = append(out, product.Snapshot())
		}
	}
	return out, nil
}

func (s *catalogService) list(ctx context.Context, activeOnly bool) ([]ProductSnapshot, error) {
	products, err := s.products.List(ctx, repositories.ProductListFilter{ActiveOnly: activeOnly})
	if err != nil {
		return nil, s.mapError(err)
	}
	out := make([]ProductSnapshot, 0, len(products))
	for _, product := range products {
		if activeOnly && !product.Active {
			continue
		}
		out = append(out, product.Snapshot())
	}
	return out, nil
}

// foldCase builds a fresh Caser per call; a Caser is not safe for concurrent use.
func foldCase(value string) string {
	return cases.Fold().String(value)
}

func (s *catalogService) mapError(err error) error {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogProductNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}
