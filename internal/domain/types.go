package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus enumerates the fulfillment lifecycle states of an order.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "PENDING"
	OrderStatusConfirmed      OrderStatus = "CONFIRMED"
	OrderStatusShipped        OrderStatus = "SHIPPED"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// OrderStatuses lists every defined status in pipeline order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// ParseOrderStatus resolves a status name case-insensitively.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	candidate := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	for _, status := range OrderStatuses {
		if status == candidate {
			return status, true
		}
	}
	return "", false
}

// Valid reports whether the status is one of the defined lifecycle states.
func (s OrderStatus) Valid() bool {
	_, ok := ParseOrderStatus(string(s))
	return ok
}

// Terminal reports whether no further transitions are expected from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

func (s OrderStatus) String() string { return string(s) }

// Product is the catalog view of a mango variety sold by weight.
type Product struct {
	ID            string
	Name          string
	Variety       string
	Description   string
	ImageURL      string
	OriginalPrice decimal.Decimal
	SalePrice     *decimal.Decimal
	StockKg       decimal.Decimal
	MinOrderKg    decimal.Decimal
	Active        bool
	Special       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductSnapshot is the read model handed to carts and clients at add-time.
type ProductSnapshot struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Variety        string           `json:"variety,omitempty"`
	ImageURL       string           `json:"imageUrl,omitempty"`
	OriginalPrice  decimal.Decimal  `json:"originalPrice"`
	SalePrice      *decimal.Decimal `json:"salePrice,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effectivePrice"`
	StockKg        decimal.Decimal  `json:"stockKg"`
	MinOrderKg     decimal.Decimal  `json:"minOrderKg"`
	InStock        bool             `json:"inStock"`
	Special        bool             `json:"special,omitempty"`
}

// CartLineItem is one product entry inside a client cart.
type CartLineItem struct {
	ProductID    string          `json:"productId"`
	Name         string          `json:"name"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	MinOrderKg   decimal.Decimal `json:"minOrderKg"`
	StockCeiling decimal.Decimal `json:"stockCeiling"`
	QuantityKg   decimal.Decimal `json:"quantityKg"`
}

// LineTotal returns unitPrice × quantity for the item.
func (i CartLineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(i.QuantityKg)
}

// Address is a saved delivery destination owned by a customer.
type Address struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId,omitempty"`
	FullName    string    `json:"fullName"`
	Phone       string    `json:"phone"`
	AddressLine string    `json:"addressLine"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Pincode     string    `json:"pincode"`
	IsDefault   bool      `json:"isDefault"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// AddressFields carries the user supplied portion of an address.
type AddressFields struct {
	FullName    string `json:"fullName"`
	Phone       string `json:"phone"`
	AddressLine string `json:"addressLine"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	IsDefault   bool   `json:"isDefault"`
}

// User is the customer or staff account referenced by orders.
type User struct {
	ID        string
	Name      string
	Email     string
	Phone     string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// OrderCustomer is the customer reference frozen on an order.
type OrderCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// OrderItem is an immutable line snapshot taken when the order was placed.
type OrderItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	QuantityKg  decimal.Decimal `json:"quantityKg"`
	PricePerKg  decimal.Decimal `json:"pricePerKg"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// Order is the append-only record of a placed order and its fulfillment metadata.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"userId"`
	Customer         OrderCustomer   `json:"customer"`
	OrderDate        time.Time       `json:"orderDate"`
	Status           OrderStatus     `json:"status"`
	Items            []OrderItem     `json:"items"`
	Address          Address         `json:"address"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
	CourierName      string          `json:"courierName,omitempty"`
	TrackingID       string          `json:"trackingId,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
	ShippedAt        *time.Time      `json:"shippedAt,omitempty"`
	OutForDeliveryAt *time.Time      `json:"outForDeliveryAt,omitempty"`
	DeliveredAt      *time.Time      `json:"deliveredAt,omitempty"`
	CancelledAt      *time.Time      `json:"cancelledAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate without aliasing item slices or timestamps.
func (o Order) Clone() Order {
	cloned := o
	if o.Items != nil {
		cloned.Items = make([]OrderItem, len(o.Items))
		copy(cloned.Items, o.Items)
	}
	cloned.ShippedAt = cloneTime(o.ShippedAt)
	cloned.OutForDeliveryAt = cloneTime(o.OutForDeliveryAt)
	cloned.DeliveredAt = cloneTime(o.DeliveredAt)
	cloned.CancelledAt = cloneTime(o.CancelledAt)
	return cloned
}

// OrderLineRequest is the client-side order line: price is never sent.
type OrderLineRequest struct {
	ProductID  string          `json:"productId"`
	QuantityKg decimal.Decimal `json:"quantityKg"`
}

// PlaceOrderRequest is the wire shape of an order submission.
type PlaceOrderRequest struct {
	AddressID string             `json:"addressId"`
	Items     []OrderLineRequest `json:"items"`
}

// Setting keys understood by the storefront.
const (
	SettingSeasonActive     = "season_active"
	SettingSeasonBannerText = "season_banner_text"
	SettingDeliveryZones    = "delivery_zones"
)

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	CommitSHA   string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
