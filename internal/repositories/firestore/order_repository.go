package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	"github.com/skm-mango/storefront/internal/domain"
	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

const orderCollection = "orders"

// OrderRepository persists orders. Each document embeds its items and address snapshot.
type OrderRepository struct {
	orders *pfirestore.Collection[orderDocument]
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{orders: pfirestore.NewCollection[orderDocument](provider, orderCollection)}, nil
}

// Insert creates the order document; a duplicate id is a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	return r.orders.Create(ctx, order.ID, newOrderDocument(order))
}

// Update replaces the order document.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if strings.TrimSpace(order.ID) == "" {
		return errors.New("order repository: order id is required")
	}
	return r.orders.Set(ctx, order.ID, newOrderDocument(order))
}

// FindByID loads one order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	id := strings.TrimSpace(orderID)
	doc, err := r.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	order := doc.toDomain()
	order.ID = id
	return order, nil
}

// List returns matching orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	docs, err := r.orders.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(filter.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if filter.Status != nil {
			q = q.Where("status", "==", string(*filter.Status))
		}
		if filter.From != nil {
			q = q.Where("orderDate", ">=", filter.From.UTC())
		}
		if filter.To != nil {
			q = q.Where("orderDate", "<", filter.To.UTC())
		}
		return q.OrderBy("orderDate", firestore.Desc)
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toDomain())
	}
	return out, nil
}
