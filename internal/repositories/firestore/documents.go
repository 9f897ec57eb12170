package firestore

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
)

// Decimals are stored as strings so kilogram and rupee values survive the round trip exactly.

type productDocument struct {
	ID            string    `firestore:"id"`
	Name          string    `firestore:"name"`
	Variety       string    `firestore:"variety"`
	Description   string    `firestore:"description"`
	ImageURL      string    `firestore:"imageUrl"`
	OriginalPrice string    `firestore:"originalPrice"`
	SalePrice     *string   `firestore:"salePrice,omitempty"`
	StockKg       string    `firestore:"stockKg"`
	MinOrderKg    string    `firestore:"minOrderKg"`
	Active        bool      `firestore:"active"`
	Special       bool      `firestore:"special"`
	CreatedAt     time.Time `firestore:"createdAt"`
	UpdatedAt     time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain() domain.Product {
	product := domain.Product{
		ID:            d.ID,
		Name:          d.Name,
		Variety:       d.Variety,
		Description:   d.Description,
		ImageURL:      d.ImageURL,
		OriginalPrice: parseDecimal(d.OriginalPrice),
		StockKg:       parseDecimal(d.StockKg),
		MinOrderKg:    parseDecimal(d.MinOrderKg),
		Active:        d.Active,
		Special:       d.Special,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if d.SalePrice != nil && strings.TrimSpace(*d.SalePrice) != "" {
		sale := parseDecimal(*d.SalePrice)
		product.SalePrice = &sale
	}
	return product
}

func newProductDocument(p domain.Product) productDocument {
	doc := productDocument{
		ID:            p.ID,
		Name:          p.Name,
		Variety:       p.Variety,
		Description:   p.Description,
		ImageURL:      p.ImageURL,
		OriginalPrice: p.OriginalPrice.String(),
		StockKg:       p.StockKg.String(),
		MinOrderKg:    p.MinOrderKg.String(),
		Active:        p.Active,
		Special:       p.Special,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
	if p.SalePrice != nil {
		sale := p.SalePrice.String()
		doc.SalePrice = &sale
	}
	return doc
}

type addressDocument struct {
	ID          string    `firestore:"id"`
	UserID      string    `firestore:"userId"`
	FullName    string    `firestore:"fullName"`
	Phone       string    `firestore:"phone"`
	AddressLine string    `firestore:"addressLine"`
	City        string    `firestore:"city"`
	State       string    `firestore:"state"`
	Pincode     string    `firestore:"pincode"`
	IsDefault   bool      `firestore:"isDefault"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

func (d addressDocument) toDomain() domain.Address {
	return domain.Address{
		ID:          d.ID,
		UserID:      d.UserID,
		FullName:    d.FullName,
		Phone:       d.Phone,
		AddressLine: d.AddressLine,
		City:        d.City,
		State:       d.State,
		Pincode:     d.Pincode,
		IsDefault:   d.IsDefault,
		CreatedAt:   d.CreatedAt,
	}
}

func newAddressDocument(a domain.Address) addressDocument {
	return addressDocument{
		ID:          a.ID,
		UserID:      a.UserID,
		FullName:    a.FullName,
		Phone:       a.Phone,
		AddressLine: a.AddressLine,
		City:        a.City,
		State:       a.State,
		Pincode:     a.Pincode,
		IsDefault:   a.IsDefault,
		CreatedAt:   a.CreatedAt.UTC(),
	}
}

type orderItemDocument struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	QuantityKg  string `firestore:"quantityKg"`
	PricePerKg  string `firestore:"pricePerKg"`
	LineTotal   string `firestore:"lineTotal"`
}

type orderCustomerDocument struct {
	ID    string `firestore:"id"`
	Name  string `firestore:"name"`
	Phone string `firestore:"phone"`
	Email string `firestore:"email"`
}

type orderDocument struct {
	ID               string                `firestore:"id"`
	UserID           string                `firestore:"userId"`
	Customer         orderCustomerDocument `firestore:"customer"`
	OrderDate        time.Time             `firestore:"orderDate"`
	Status           string                `firestore:"status"`
	Items            []orderItemDocument   `firestore:"items"`
	Address          addressDocument       `firestore:"address"`
	TotalAmount      string                `firestore:"totalAmount"`
	CourierName      string                `firestore:"courierName,omitempty"`
	TrackingID       string                `firestore:"trackingId,omitempty"`
	UpdatedAt        time.Time             `firestore:"updatedAt"`
	ShippedAt        *time.Time            `firestore:"shippedAt,omitempty"`
	OutForDeliveryAt *time.Time            `firestore:"outForDeliveryAt,omitempty"`
	DeliveredAt      *time.Time            `firestore:"deliveredAt,omitempty"`
	CancelledAt      *time.Time            `firestore:"cancelledAt,omitempty"`
}

func (d orderDocument) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			QuantityKg:  parseDecimal(item.QuantityKg),
			PricePerKg:  parseDecimal(item.PricePerKg),
			LineTotal:   parseDecimal(item.LineTotal),
		})
	}
	status, ok := domain.ParseOrderStatus(d.Status)
	if !ok {
		status = domain.OrderStatus(d.Status)
	}
	return domain.Order{
		ID:     d.ID,
		UserID: d.UserID,
		Customer: domain.OrderCustomer{
			ID:    d.Customer.ID,
			Name:  d.Customer.Name,
			Phone: d.Customer.Phone,
			Email: d.Customer.Email,
		},
		OrderDate:        d.OrderDate,
		Status:           status,
		Items:            items,
		Address:          d.Address.toDomain(),
		TotalAmount:      parseDecimal(d.TotalAmount),
		CourierName:      d.CourierName,
		TrackingID:       d.TrackingID,
		UpdatedAt:        d.UpdatedAt,
		ShippedAt:        d.ShippedAt,
		OutForDeliveryAt: d.OutForDeliveryAt,
		DeliveredAt:      d.DeliveredAt,
		CancelledAt:      d.CancelledAt,
	}
}

func newOrderDocument(o domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, orderItemDocument{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			QuantityKg:  item.QuantityKg.String(),
			PricePerKg:  item.PricePerKg.String(),
			LineTotal:   item.LineTotal.String(),
		})
	}
	return orderDocument{
		ID:     o.ID,
		UserID: o.UserID,
		Customer: orderCustomerDocument{
			ID:    o.Customer.ID,
			Name:  o.Customer.Name,
			Phone: o.Customer.Phone,
			Email: o.Customer.Email,
		},
		OrderDate:        o.OrderDate.UTC(),
		Status:           string(o.Status),
		Items:            items,
		Address:          newAddressDocument(o.Address),
		TotalAmount:      o.TotalAmount.String(),
		CourierName:      o.CourierName,
		TrackingID:       o.TrackingID,
		UpdatedAt:        o.UpdatedAt.UTC(),
		ShippedAt:        utcPtr(o.ShippedAt),
		OutForDeliveryAt: utcPtr(o.OutForDeliveryAt),
		DeliveredAt:      utcPtr(o.DeliveredAt),
		CancelledAt:      utcPtr(o.CancelledAt),
	}
}

type userDocument struct {
	ID        string    `firestore:"id"`
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Phone     string    `firestore:"phone"`
	Role      string    `firestore:"role"`
	Active    *bool     `firestore:"active,omitempty"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d userDocument) toDomain(id string) domain.User {
	active := true
	if d.Active != nil {
		active = *d.Active
	}
	if strings.TrimSpace(d.ID) != "" {
		id = d.ID
	}
	return domain.User{
		ID:        id,
		Name:      strings.TrimSpace(d.Name),
		Email:     strings.TrimSpace(d.Email),
		Phone:     strings.TrimSpace(d.Phone),
		Role:      strings.ToUpper(strings.TrimSpace(d.Role)),
		Active:    active,
		CreatedAt: d.CreatedAt,
	}
}

type settingDocument struct {
	Key       string    `firestore:"key"`
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func parseDecimal(raw string) decimal.Decimal {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return value
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
