package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Addresses() AddressRepository
	Orders() OrderRepository
	Users() UserRepository
	Settings() SettingsRepository
	Health() HealthRepository
	UnitOfWork
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork groups repository operations in a transactional boundary. Repositories called with
// the ctx handed to fn join the transaction; all reads must happen before the first write.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	ActiveOnly bool
}

// ProductRepository reads the catalog and adjusts stock.
type ProductRepository interface {
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	UpdateStock(ctx context.Context, productID string, stockKg decimal.Decimal, updatedAt time.Time) error
}

// AddressRepository stores delivery addresses. Addresses are never edited, only inserted or deleted.
type AddressRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Address, error)
	FindByID(ctx context.Context, addressID string) (domain.Address, error)
	Insert(ctx context.Context, address domain.Address) error
	Delete(ctx context.Context, addressID string) error
	SetDefault(ctx context.Context, addressID string, isDefault bool) error
}

// OrderListFilter narrows order listings. Zero values mean no constraint; the range is [From, To).
type OrderListFilter struct {
	UserID string
	Status *domain.OrderStatus
	From   *time.Time
	To     *time.Time
}

// OrderRepository persists orders. Listings are newest first.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) ([]domain.Order, error)
}

// UserRepository reads the accounts maintained by the auth service.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.User, error)
}

// SettingsRepository stores storefront key/value settings.
type SettingsRepository interface {
	All(ctx context.Context) (map[string]string, error)
	Upsert(ctx context.Context, values map[string]string, updatedAt time.Time) error
}

// HealthRepository aggregates dependency probes for readiness checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
