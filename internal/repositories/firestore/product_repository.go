package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

const productCollection = "products"

// ProductRepository reads catalog documents and writes stock levels.
type ProductRepository struct {
	products *pfirestore.Collection[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{products: pfirestore.NewCollection[productDocument](provider, productCollection)}, nil
}

// FindByID loads one product, joining the transaction carried by ctx when present.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	id := strings.TrimSpace(productID)
	doc, err := r.products.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	product := doc.toDomain()
	product.ID = id
	return product, nil
}

// List returns products sorted by name.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	sort.SliceStable(products, func(i, j int) bool {
		return strings.ToLower(products[i].Name) < strings.ToLower(products[j].Name)
	})
	return products, nil
}

// UpdateStock overwrites the stock level. Callers read the product in the same transaction first.
func (r *ProductRepository) UpdateStock(ctx context.Context, productID string, stockKg decimal.Decimal, updatedAt time.Time) error {
	ref, err := r.products.Doc(ctx, strings.TrimSpace(productID))
	if err != nil {
		return err
	}
	updates := []firestore.Update{
		{Path: "stockKg", Value: stockKg.String()},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	}
	if tx, ok := pfirestore.TransactionFromContext(ctx); ok {
		return pfirestore.WrapError("products.updateStock", tx.Update(ref, updates))
	}
	_, err = ref.Update(ctx, updates)
	return pfirestore.WrapError("products.updateStock", err)
}
