package client

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/session"
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

func (p productPayload) snapshot() domain.ProductSnapshot {
	return domain.ProductSnapshot{
		ID:             strings.TrimSpace(p.ID),
		Name:           strings.TrimSpace(p.Name),
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

func (p addressPayload) address() domain.Address {
	return domain.Address{
		ID:          p.ID,
		FullName:    p.FullName,
		Phone:       p.Phone,
		AddressLine: p.AddressLine,
		City:        p.City,
		State:       p.State,
		Pincode:     p.Pincode,
		IsDefault:   p.IsDefault,
		CreatedAt:   parseTime(p.CreatedAt),
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

func (p orderPayload) order() domain.Order {
	status, ok := domain.ParseOrderStatus(p.Status)
	if !ok {
		status = domain.OrderStatus(strings.ToUpper(strings.TrimSpace(p.Status)))
	}
	items := make([]domain.OrderItem, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			QuantityKg:  item.QuantityKg,
			PricePerKg:  item.PricePerKg,
			LineTotal:   item.LineTotal,
		})
	}
	return domain.Order{
		ID:     p.ID,
		UserID: p.UserID,
		Customer: domain.OrderCustomer{
			ID:    p.Customer.ID,
			Name:  p.Customer.Name,
			Phone: p.Customer.Phone,
			Email: p.Customer.Email,
		},
		OrderDate:        parseTime(p.OrderDate),
		Status:           status,
		Items:            items,
		Address:          p.Address.address(),
		TotalAmount:      p.TotalAmount,
		CourierName:      p.CourierName,
		TrackingID:       p.TrackingID,
		UpdatedAt:        parseTime(p.UpdatedAt),
		ShippedAt:        parseTimePtr(p.ShippedAt),
		OutForDeliveryAt: parseTimePtr(p.OutForDeliveryAt),
		DeliveredAt:      parseTimePtr(p.DeliveredAt),
		CancelledAt:      parseTimePtr(p.CancelledAt),
	}
}

type orderLinePayload struct {
	ProductID  string          `json:"product_id"`
	QuantityKg decimal.Decimal `json:"quantity_kg"`
}

type placeOrderRequest struct {
	AddressID string             `json:"address_id"`
	Items     []orderLinePayload `json:"items"`
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

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type profilePayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Role  string `json:"role,omitempty"`
}

type grantPayload struct {
	Token string         `json:"token"`
	User  profilePayload `json:"user"`
}

func (p grantPayload) grant() session.Grant {
	return session.Grant{
		Token: p.Token,
		User: session.Profile{
			ID:    p.User.ID,
			Name:  p.User.Name,
			Email: p.User.Email,
			Phone: p.User.Phone,
			Role:  p.User.Role,
		},
	}
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func parseTimePtr(raw string) *time.Time {
	ts := parseTime(raw)
	if ts.IsZero() {
		return nil
	}
	return &ts
}
