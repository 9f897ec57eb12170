package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/skm-mango/storefront/internal/platform/firestore"
	"github.com/skm-mango/storefront/internal/repositories"
)

// Registry bundles the Firestore repositories behind repositories.Registry.
type Registry struct {
	provider  *pfirestore.Provider
	products  *ProductRepository
	addresses *AddressRepository
	orders    *OrderRepository
	users     *UserRepository
	settings  *SettingsRepository
	health    repositories.HealthRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry builds every repository on provider. Extra checks are probed alongside Firestore by Health.
func NewRegistry(provider *pfirestore.Provider, checks ...repositories.DependencyCheck) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires provider")
	}
	products, err := NewProductRepository(provider)
	if err != nil {
		return nil, err
	}
	addresses, err := NewAddressRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}
	users, err := NewUserRepository(provider)
	if err != nil {
		return nil, err
	}
	settings, err := NewSettingsRepository(provider)
	if err != nil {
		return nil, err
	}

	all := append([]repositories.DependencyCheck{{Name: "firestore", Check: provider.Ping}}, checks...)
	health, err := repositories.NewDependencyHealthRepository(all)
	if err != nil {
		return nil, fmt.Errorf("firestore registry: %w", err)
	}

	return &Registry{
		provider:  provider,
		products:  products,
		addresses: addresses,
		orders:    orders,
		users:     users,
		settings:  settings,
		health:    health,
	}, nil
}

func (r *Registry) Products() repositories.ProductRepository   { return r.products }
func (r *Registry) Addresses() repositories.AddressRepository { return r.addresses }
func (r *Registry) Orders() repositories.OrderRepository       { return r.orders }
func (r *Registry) Users() repositories.UserRepository         { return r.users }
func (r *Registry) Settings() repositories.SettingsRepository  { return r.settings }
func (r *Registry) Health() repositories.HealthRepository      { return r.health }

// RunInTx runs fn in a Firestore transaction. Nested calls join the outer transaction.
func (r *Registry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if fn == nil {
		return errors.New("firestore registry: transaction function is nil")
	}
	if _, ok := pfirestore.TransactionFromContext(ctx); ok {
		return fn(ctx)
	}
	return r.provider.RunTransaction(ctx, func(ctx context.Context, _ *firestore.Transaction) error {
		return fn(ctx)
	})
}

// Close releases the Firestore client.
func (r *Registry) Close(context.Context) error {
	return r.provider.Close()
}
