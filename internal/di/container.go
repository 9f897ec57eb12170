package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/fulfillment"
	"github.com/skm-mango/storefront/internal/platform/config"
	"github.com/skm-mango/storefront/internal/platform/observability"
	"github.com/skm-mango/storefront/internal/repositories"
	"github.com/skm-mango/storefront/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	Catalog   services.CatalogService
	Addresses services.AddressService
	Settings  services.SettingsService
	Orders    services.OrderService
	System    services.SystemService
}

// EventPublisher publishes both order and settings events, as the Pub/Sub publisher does.
type EventPublisher interface {
	services.OrderEventPublisher
	services.SettingsEventPublisher
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

type containerOptions struct {
	events EventPublisher
	logger *zap.Logger
	build  services.BuildInfo
	clock  func() time.Time
}

// Option customises NewContainer.
type Option func(*containerOptions)

// WithEvents sets the domain event publisher. Without one events are dropped.
func WithEvents(events EventPublisher) Option {
	return func(o *containerOptions) {
		o.events = events
	}
}

// WithLogger sets the base logger service events fall back to outside a request.
func WithLogger(logger *zap.Logger) Option {
	return func(o *containerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithBuildInfo sets the metadata reported by the system service.
func WithBuildInfo(info services.BuildInfo) Option {
	return func(o *containerOptions) {
		o.build = info
	}
}

// WithClock overrides the clock shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(o *containerOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewContainer constructs the runtime dependencies over reg. Tests can supply in-memory registries.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, opts ...Option) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}
	options := containerOptions{logger: zap.NewNop(), clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	svc, err := buildServices(ctx, reg, cfg, options)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

// FulfillmentMachine builds the order state machine selected by cfg.
func FulfillmentMachine(cfg config.OrdersConfig) *fulfillment.Machine {
	if !cfg.StrictTransitions {
		return fulfillment.New(fulfillment.Permissive())
	}
	return fulfillment.New(fulfillment.Strict(fulfillment.WithSkipToDelivered(cfg.AllowSkipToDelivered)))
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, opts containerOptions) (Services, error) {
	var svc Services

	catalog, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
	})
	if err != nil {
		return svc, fmt.Errorf("init catalog service: %w", err)
	}
	svc.Catalog = catalog

	var settingsEvents services.SettingsEventPublisher
	var orderEvents services.OrderEventPublisher
	if opts.events != nil {
		settingsEvents = opts.events
		orderEvents = opts.events
	}

	settings, err := services.NewSettingsService(services.SettingsServiceDeps{
		Settings: reg.Settings(),
		Events:   settingsEvents,
		Clock:    opts.clock,
		Logger:   observability.EventLogger(opts.logger.Named("settings")),
	})
	if err != nil {
		return svc, fmt.Errorf("init settings service: %w", err)
	}
	svc.Settings = settings

	addresses, err := services.NewAddressService(services.AddressServiceDeps{
		Addresses:   reg.Addresses(),
		Users:       reg.Users(),
		Zones:       settings,
		EnforceZone: cfg.Addresses.EnforceDeliveryZones,
		UnitOfWork:  reg,
		Clock:       opts.clock,
		Logger:      observability.EventLogger(opts.logger.Named("addresses")),
	})
	if err != nil {
		return svc, fmt.Errorf("init address service: %w", err)
	}
	svc.Addresses = addresses

	location := cfg.Orders.Location
	if location == nil {
		location = time.UTC
	}
	orders, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:     reg.Orders(),
		Products:   reg.Products(),
		Addresses:  reg.Addresses(),
		Users:      reg.Users(),
		Season:     settings,
		UnitOfWork: reg,
		Machine:    FulfillmentMachine(cfg.Orders),
		Location:   location,
		Clock:      opts.clock,
		Events:     orderEvents,
		Logger:     observability.EventLogger(opts.logger.Named("orders")),
	})
	if err != nil {
		return svc, fmt.Errorf("init order service: %w", err)
	}
	svc.Orders = orders

	if health := reg.Health(); health != nil {
		system, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: health,
			Season:           settings,
			Clock:            opts.clock,
			Build:            opts.build,
		})
		if err != nil {
			return svc, fmt.Errorf("init system service: %w", err)
		}
		svc.System = system
	}

	return svc, nil
}
