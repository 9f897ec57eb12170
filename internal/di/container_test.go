package di

import (
	"context"
	"testing"
	"time"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/platform/config"
	"github.com/skm-mango/storefront/internal/repositories"
)

type stubSettings struct {
	values map[string]string
}

func (s stubSettings) All(context.Context) (map[string]string, error) { return s.values, nil }

func (s stubSettings) Upsert(context.Context, map[string]string, time.Time) error { return nil }

type stubHealth struct{}

func (stubHealth) Collect(context.Context) (domain.SystemHealthReport, error) {
	return domain.SystemHealthReport{Status: domain.HealthStatusOK}, nil
}

// stubRegistry embeds the repository interfaces; only the settings and health repositories are exercised.
type stubRegistry struct {
	repositories.ProductRepository
	repositories.AddressRepository
	repositories.OrderRepository
	repositories.UserRepository
	settings repositories.SettingsRepository
	health   repositories.HealthRepository
	closed   bool
}

func (r *stubRegistry) Close(context.Context) error {
	r.closed = true
	return nil
}

func (r *stubRegistry) Products() repositories.ProductRepository   { return r.ProductRepository }
func (r *stubRegistry) Addresses() repositories.AddressRepository { return r.AddressRepository }
func (r *stubRegistry) Orders() repositories.OrderRepository       { return r.OrderRepository }
func (r *stubRegistry) Users() repositories.UserRepository         { return r.UserRepository }
func (r *stubRegistry) Settings() repositories.SettingsRepository  { return r.settings }
func (r *stubRegistry) Health() repositories.HealthRepository      { return r.health }

func (r *stubRegistry) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopProducts struct{ repositories.ProductRepository }
type nopAddresses struct{ repositories.AddressRepository }
type nopOrders struct{ repositories.OrderRepository }
type nopUsers struct{ repositories.UserRepository }

func newStubRegistry() *stubRegistry {
	return &stubRegistry{
		ProductRepository: nopProducts{},
		AddressRepository: nopAddresses{},
		OrderRepository:   nopOrders{},
		UserRepository:    nopUsers{},
		settings:          stubSettings{values: map[string]string{domain.SettingSeasonActive: "TRUE"}},
		health:            stubHealth{},
	}
}

func TestNewContainerRequiresRegistry(t *testing.T) {
	if _, err := NewContainer(context.Background(), config.Config{}, nil); err == nil {
		t.Fatalf("expected error for nil registry")
	}
}

func TestNewContainerWiresServices(t *testing.T) {
	reg := newStubRegistry()
	container, err := NewContainer(context.Background(), config.Config{}, reg)
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	svc := container.Services
	if svc.Catalog == nil || svc.Addresses == nil || svc.Orders == nil || svc.Settings == nil || svc.System == nil {
		t.Fatalf("expected every service wired, got %+v", svc)
	}

	active, err := svc.Settings.IsSeasonActive(context.Background())
	if err != nil || !active {
		t.Fatalf("expected season active, got %v err=%v", active, err)
	}
	report, err := svc.System.HealthReport(context.Background())
	if err != nil || report.Status != domain.HealthStatusOK {
		t.Fatalf("unexpected health report %+v err=%v", report, err)
	}

	if err := container.Close(context.Background()); err != nil || !reg.closed {
		t.Fatalf("expected registry closed, err=%v", err)
	}
}

func TestNewContainerRequiresSettingsRepository(t *testing.T) {
	reg := newStubRegistry()
	reg.settings = nil
	if _, err := NewContainer(context.Background(), config.Config{}, reg); err == nil {
		t.Fatalf("expected settings repository to be required")
	}
}

func TestFulfillmentMachineFollowsConfig(t *testing.T) {
	permissive := FulfillmentMachine(config.OrdersConfig{})
	if !permissive.CanTransition(domain.OrderStatusDelivered, domain.OrderStatusPending) {
		t.Fatalf("permissive machine should allow any move")
	}

	strict := FulfillmentMachine(config.OrdersConfig{StrictTransitions: true})
	if strict.CanTransition(domain.OrderStatusDelivered, domain.OrderStatusPending) {
		t.Fatalf("strict machine must refuse leaving a terminal state")
	}
	if !strict.CanTransition(domain.OrderStatusConfirmed, domain.OrderStatusShipped) {
		t.Fatalf("strict machine should allow CONFIRMED to SHIPPED")
	}

	noSkip := FulfillmentMachine(config.OrdersConfig{StrictTransitions: true, AllowSkipToDelivered: false})
	if noSkip.CanTransition(domain.OrderStatusShipped, domain.OrderStatusDelivered) {
		t.Fatalf("skip to delivered should be refused when disabled")
	}
}
