package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/session"
)

// ErrIDRequired is returned when a call needs a resource id and none was given.
var ErrIDRequired = errors.New("client: id is required")

// AdminOrderFilter narrows the staff order list.
type AdminOrderFilter struct {
	Status domain.OrderStatus
	// Date is a calendar day in YYYY-MM-DD form, evaluated in the store time zone.
	Date  string
	Today bool
}

// ExportRange selects which orders an export covers. The zero value exports everything.
type ExportRange struct {
	Scope string
	Date  string
	From  string
	To    string
}

// PublicSettings is the unauthenticated storefront configuration.
type PublicSettings struct {
	SeasonActive     bool
	SeasonBannerText string
	DeliveryZones    []string
}

// ListProducts returns the active catalog.
func (c *Client) ListProducts(ctx context.Context) ([]domain.ProductSnapshot, error) {
	var resp struct {
		Items []productPayload `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "products", requestOptions{anonymous: true}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.ProductSnapshot, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.snapshot())
	}
	return out, nil
}

// GetProduct returns one active product.
func (c *Client) GetProduct(ctx context.Context, productID string) (domain.ProductSnapshot, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.ProductSnapshot{}, ErrIDRequired
	}
	var resp struct {
		Product productPayload `json:"product"`
	}
	if err := c.do(ctx, http.MethodGet, "products/"+url.PathEscape(productID), requestOptions{anonymous: true}, &resp); err != nil {
		return domain.ProductSnapshot{}, err
	}
	return resp.Product.snapshot(), nil
}

// ListAddresses returns the caller's saved addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]domain.Address, error) {
	var resp struct {
		Items []addressPayload `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "me/addresses", requestOptions{}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Address, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.address())
	}
	return out, nil
}

// CreateAddress saves a new address for the caller.
func (c *Client) CreateAddress(ctx context.Context, fields domain.AddressFields) (domain.Address, error) {
	body := addressRequest{
		FullName:    fields.FullName,
		Phone:       fields.Phone,
		AddressLine: fields.AddressLine,
		City:        fields.City,
		State:       fields.State,
		Pincode:     fields.Pincode,
		IsDefault:   fields.IsDefault,
	}
	var resp struct {
		Address addressPayload `json:"address"`
	}
	if err := c.do(ctx, http.MethodPost, "me/addresses", requestOptions{body: body}, &resp); err != nil {
		return domain.Address{}, err
	}
	return resp.Address.address(), nil
}

// DeleteAddress removes one of the caller's addresses.
func (c *Client) DeleteAddress(ctx context.Context, addressID string) error {
	addressID = strings.TrimSpace(addressID)
	if addressID == "" {
		return ErrIDRequired
	}
	return c.do(ctx, http.MethodDelete, "me/addresses/"+url.PathEscape(addressID), requestOptions{}, nil)
}

// CreateOrder submits an order. The same idempotency key must be reused when retrying.
func (c *Client) CreateOrder(ctx context.Context, req domain.PlaceOrderRequest, idempotencyKey string) (domain.Order, error) {
	body := placeOrderRequest{AddressID: req.AddressID, Items: make([]orderLinePayload, 0, len(req.Items))}
	for _, line := range req.Items {
		body.Items = append(body.Items, orderLinePayload{ProductID: line.ProductID, QuantityKg: line.QuantityKg})
	}
	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := c.do(ctx, http.MethodPost, "orders", requestOptions{body: body, idempotencyKey: idempotencyKey}, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.order(), nil
}

// ListMyOrders returns the caller's orders, newest first.
func (c *Client) ListMyOrders(ctx context.Context) ([]domain.Order, error) {
	return c.listOrders(ctx, "orders", nil)
}

// GetOrder returns one of the caller's orders.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, ErrIDRequired
	}
	var resp struct {
		Order orderPayload `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "orders/"+url.PathEscape(orderID), requestOptions{}, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.order(), nil
}

// ListOrders returns orders across all customers. Staff only.
func (c *Client) ListOrders(ctx context.Context, filter AdminOrderFilter) ([]domain.Order, error) {
	query := url.Values{}
	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}
	if date := strings.TrimSpace(filter.Date); date != "" {
		query.Set("date", date)
	}
	if filter.Today {
		query.Set("today", "true")
	}
	return c.listOrders(ctx, "admin/orders", query)
}

func (c *Client) listOrders(ctx context.Context, endpoint string, query url.Values) ([]domain.Order, error) {
	var resp struct {
		Items []orderPayload `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, endpoint, requestOptions{query: query}, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, item.order())
	}
	return out, nil
}

// UpdateOrderStatus moves an order to status. Staff only.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, ErrIDRequired
	}
	var resp struct {
		Order orderPayload `json:"order"`
	}
	body := statusRequest{Status: string(status)}
	if err := c.do(ctx, http.MethodPut, "admin/orders/"+url.PathEscape(orderID)+"/status", requestOptions{body: body}, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.order(), nil
}

// UpdateOrderCourier records courier and tracking for an order. Staff only.
func (c *Client) UpdateOrderCourier(ctx context.Context, orderID, courierName, trackingID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, ErrIDRequired
	}
	var resp struct {
		Order orderPayload `json:"order"`
	}
	body := courierRequest{CourierName: courierName, TrackingID: trackingID}
	if err := c.do(ctx, http.MethodPut, "admin/orders/"+url.PathEscape(orderID)+"/courier", requestOptions{body: body}, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.order(), nil
}

// PublicSettings returns the season flag, banner and delivery zones.
func (c *Client) PublicSettings(ctx context.Context) (PublicSettings, error) {
	var resp publicSettingsPayload
	if err := c.do(ctx, http.MethodGet, "settings/public", requestOptions{anonymous: true}, &resp); err != nil {
		return PublicSettings{}, err
	}
	return PublicSettings{
		SeasonActive:     resp.SeasonActive,
		SeasonBannerText: resp.SeasonBannerText,
		DeliveryZones:    resp.DeliveryZones,
	}, nil
}

// GetSeasonFlag reports whether ordering is currently enabled.
func (c *Client) GetSeasonFlag(ctx context.Context) (bool, error) {
	settings, err := c.PublicSettings(ctx)
	if err != nil {
		return false, err
	}
	return settings.SeasonActive, nil
}

// ExportOrdersCSV streams the staff CSV export. The caller closes the reader.
func (c *Client) ExportOrdersCSV(ctx context.Context, rng ExportRange) (io.ReadCloser, error) {
	query := url.Values{}
	for key, value := range map[string]string{"scope": rng.Scope, "date": rng.Date, "from": rng.From, "to": rng.To} {
		if v := strings.TrimSpace(value); v != "" {
			query.Set(key, v)
		}
	}
	resp, err := c.send(ctx, http.MethodGet, "admin/orders/export", requestOptions{query: query})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, creds session.Credentials) (session.Grant, error) {
	var resp grantPayload
	body := loginRequest{Identifier: strings.TrimSpace(creds.Identifier), Password: creds.Password}
	if err := c.do(ctx, http.MethodPost, "auth/login", requestOptions{body: body, anonymous: true}, &resp); err != nil {
		return session.Grant{}, err
	}
	return resp.grant(), nil
}

// Register creates an account and returns its token.
func (c *Client) Register(ctx context.Context, reg session.Registration) (session.Grant, error) {
	var resp grantPayload
	body := registerRequest{
		Name:     strings.TrimSpace(reg.Name),
		Email:    strings.TrimSpace(reg.Email),
		Phone:    strings.TrimSpace(reg.Phone),
		Password: reg.Password,
	}
	if err := c.do(ctx, http.MethodPost, "auth/register", requestOptions{body: body, anonymous: true}, &resp); err != nil {
		return session.Grant{}, err
	}
	return resp.grant(), nil
}
