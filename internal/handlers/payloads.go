package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/services"
)

type productPayload struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Variety        string           `json:"variety,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	OriginalPrice  decimal.Decimal  `json:"original_price"`
	SalePrice      *decimal.Decimal `json:"sale_price,omitempty"`
	EffectivePrice decimal.Decimal  `json:"effective_price"`
	StockKg        decimal.Decimal  `json:"stock_kg"`
	MinOrderKg     decimal.Decimal  `json:"min_order_kg"`
	InStock        bool             `json:"in_stock"`
	Special        bool             `json:"special,omitempty"`
}

func buildProductPayload(p services.ProductSnapshot) productPayload {
	return productPayload{
		ID:             p.ID,
		Name:           p.Name,
		Variety:        p.Variety,
		ImageURL:       p.ImageURL,
		OriginalPrice:  p.OriginalPrice,
		SalePrice:      p.SalePrice,
		EffectivePrice: p.EffectivePrice,
		StockKg:        p.StockKg,
		MinOrderKg:     p.MinOrderKg,
		InStock:        p.InStock,
		Special:        p.Special,
	}
}

type addressPayload struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	IsDefault   bool   `json:"is_default"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func buildAddressPayload(a services.Address) addressPayload {
	return addressPayload{
		ID:          a.ID,
		FullName:    a.FullName,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		IsDefault:   a.IsDefault,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

type addressRequest struct {
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	AddressLine string `json:"address_line"`
	City        string `json:"city"`
	State       string `json:"state"`
	Pincode     string `json:"pincode"`
	IsDefault   bool   `json:"is_default"`
}

func (r addressRequest) fields() services.AddressFields {
	return services.AddressFields{
		FullName:    r.FullName,
		Phone:       r.Phone,
		AddressLine: r.AddressLine,
		City:        r.City,
		State:       r.State,
		Pincode:     r.Pincode,
		IsDefault:   r.IsDefault,
	}
}

type orderCustomerPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type orderItemPayload struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	PricePerKg  decimal.Decimal `json:"price_per_kg"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type orderPayload struct {
	ID               string               `json:"id"`
	UserID           string               `json:"user_id"`
	Customer         orderCustomerPayload `json:"customer"`
	OrderDate        string               `json:"order_date"`
	Status           string               `json:"status"`
	Items            []orderItemPayload   `json:"items"`
	Address          addressPayload       `json:"address"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	CourierName      string               `json:"courier_name,omitempty"`
	TrackingID       string               `json:"tracking_id,omitempty"`
	UpdatedAt        string               `json:"updated_at,omitempty"`
	ShippedAt        string               `json:"shipped_at,omitempty"`
	OutForDeliveryAt string               `json:"out_for_delivery_at,omitempty"`
	DeliveredAt      string               `json:"delivered_at,omitempty"`
	CancelledAt      string               `json:"cancelled_at,omitempty"`
}

func buildOrderPayload(o services.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			QuantityKg:  item.QuantityKg,
			PricePerKg:  item.PricePerKg,
			LineTotal:   item.LineTotal,
		})
	}
	return orderPayload{
		ID:     o.ID,
		UserID: o.UserID,
		Customer: orderCustomerPayload{
			ID:    o.Customer.ID,
			Name:  o.Customer.Name,
			Phone: o.Customer.Phone,
			Email: o.Customer.Email,
		},
		OrderDate:        formatTime(o.OrderDate),
		Status:           string(o.Status),
		Items:            items,
		Address:          buildAddressPayload(o.Address),
		TotalAmount:      o.TotalAmount,
		CourierName:      o.CourierName,
		TrackingID:       o.TrackingID,
		UpdatedAt:        formatTime(o.UpdatedAt),
		ShippedAt:        formatTimePtr(o.ShippedAt),
		OutForDeliveryAt: formatTimePtr(o.OutForDeliveryAt),
		DeliveredAt:      formatTimePtr(o.DeliveredAt),
		CancelledAt:      formatTimePtr(o.CancelledAt),
	}
}

func buildOrderList(orders []services.Order) []orderPayload {
	out := make([]orderPayload, 0, len(orders))
	for _, order := range orders {
		out = append(out, buildOrderPayload(order))
	}
	return out
}

type orderLineRequest struct {
	ProductID  string          `json:"product_id"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
}

type placeOrderRequest struct {
	AddressID string             `json:"address_id"`
	Items     []orderLineRequest `json:"items"`
}

type statusRequest struct {
	Status         string `json:"status"`
	ExpectedStatus string `json:"expected_status,omitempty"`
}

type courierRequest struct {
	CourierName string `json:"courier_name"`
	TrackingID  string `json:"tracking_id"`
}

type publicSettingsPayload struct {
	SeasonActive     bool     `json:"season_active"`
	SeasonBannerText string   `json:"season_banner_text"`
	DeliveryZones    []string `json:"delivery_zones"`
}

type settingsPayload struct {
	Settings map[string]string `json:"settings"`
}

type healthCheckPayload struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latencyMs"`
	CheckedAt string `json:"checkedAt,omitempty"`
}

func buildHealthChecks(checks map[string]domain.SystemHealthCheck) map[string]healthCheckPayload {
	out := make(map[string]healthCheckPayload, len(checks))
	for name, check := range checks {
		out[name] = healthCheckPayload{
			Status:    check.Status,
			Detail:    check.Detail,
			Error:     check.Error,
			LatencyMS: check.Latency.Milliseconds(),
			CheckedAt: formatTime(check.CheckedAt),
		}
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}
