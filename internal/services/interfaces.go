package services

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	ProductSnapshot    = domain.ProductSnapshot
	Address            = domain.Address
	AddressFields      = domain.AddressFields
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderCustomer      = domain.OrderCustomer
	OrderStatus        = domain.OrderStatus
	User               = domain.User
	SystemHealthReport = domain.SystemHealthReport
)

// CatalogService exposes product reads. Snapshots carry effective price and stock availability.
type CatalogService interface {
	ListActiveProducts(ctx context.Context) ([]ProductSnapshot, error)
	GetProduct(ctx context.Context, productID string) (ProductSnapshot, error)
	ListAllProducts(ctx context.Context) ([]ProductSnapshot, error)
	SearchProducts(ctx context.Context, query string) ([]ProductSnapshot, error)
}

// AddressService manages a customer's address book.
type AddressService interface {
	ListAddresses(ctx context.Context, userID string) ([]Address, error)
	AddAddress(ctx context.Context, userID string, fields AddressFields) (Address, error)
	DeleteAddress(ctx context.Context, userID string, addressID string) error
}

// SettingsService reads and updates storefront settings.
type SettingsService interface {
	IsSeasonActive(ctx context.Context) (bool, error)
	DeliveryZones(ctx context.Context) ([]string, error)
	PublicSettings(ctx context.Context) (PublicSettings, error)
	AllSettings(ctx context.Context) (map[string]string, error)
	UpdateSettings(ctx context.Context, cmd UpdateSettingsCommand) (map[string]string, error)
}

// OrderService owns order placement and the staff fulfillment surface.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error)
	UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error)
	UpdateCourier(ctx context.Context, cmd OrderCourierCommand) (Order, error)
	ExportOrders(ctx context.Context, filter ExportFilter, w io.Writer) (int, error)
}

// SystemService reports dependency health and build metadata.
type SystemService interface {
	HealthReport(ctx context.Context) (SystemHealthReport, error)
}

// PublicSettings is the unauthenticated view of the storefront settings.
type PublicSettings struct {
	SeasonActive     bool
	SeasonBannerText string
	DeliveryZones    []string
}

// UpdateSettingsCommand replaces the given keys.
type UpdateSettingsCommand struct {
	Values  map[string]string
	ActorID string
}

// PlaceOrderLine is one requested product and weight. Prices are never taken from the client.
type PlaceOrderLine struct {
	ProductID  string
	QuantityKg decimal.Decimal
}

// PlaceOrderCommand carries an order submission for an authenticated user.
type PlaceOrderCommand struct {
	UserID    string
	AddressID string
	Items     []PlaceOrderLine
}

// OrderListFilter narrows the staff order listing. Today wins over Date.
type OrderListFilter struct {
	Status *OrderStatus
	// Date is a calendar day in YYYY-MM-DD form, evaluated in the store time zone.
	Date  string
	Today bool
}

// OrderStatusCommand moves an order to Status. ExpectedStatus, when set, must match the stored status.
type OrderStatusCommand struct {
	OrderID        string
	Status         OrderStatus
	ExpectedStatus *OrderStatus
	ActorID        string
}

// OrderCourierCommand records courier and tracking for an order.
type OrderCourierCommand struct {
	OrderID     string
	CourierName string
	TrackingID  string
	ActorID     string
}

// Export scopes understood by ExportOrders.
const (
	ExportScopeAll   = "all"
	ExportScopeToday = "today"
	ExportScopeDate  = "date"
	ExportScopeRange = "range"
)

// ExportFilter selects the orders written by ExportOrders. From and To are inclusive calendar days.
type ExportFilter struct {
	Scope string
	Date  string
	From  string
	To    string
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	UserID         string
	PreviousStatus string
	CurrentStatus  string
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// SettingsEventPublisher publishes settings changes.
type SettingsEventPublisher interface {
	PublishSettingsEvent(ctx context.Context, event SettingsEvent) error
}

// SettingsEvent names the keys changed by an update.
type SettingsEvent struct {
	Type       string
	Keys       []string
	ActorID    string
	OccurredAt time.Time
}

// SeasonGate reports whether ordering is open.
type SeasonGate interface {
	IsSeasonActive(ctx context.Context) (bool, error)
}

// ZoneSource lists the states the store delivers to.
type ZoneSource interface {
	DeliveryZones(ctx context.Context) ([]string, error)
}
