package services

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/fulfillment"
	"github.com/skm-mango/storefront/internal/repositories"
)

const (
	orderIDPrefix = "ord_"
	dateLayout    = "2006-01-02"

	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventCourier       = "order.courier.updated"
)

var (
	// ErrOrderInvalidInput indicates the caller supplied invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order, or an entity it references, does not exist.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderConflict indicates the stored order changed underneath the caller.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderInvalidState indicates the requested transition is not allowed.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderingDisabled indicates the mango season is closed.
	ErrOrderingDisabled = errors.New("order: ordering disabled")
	// ErrOrderAddressMismatch indicates the address belongs to another user.
	ErrOrderAddressMismatch = errors.New("order: address does not belong to user")
	// ErrOrderProductUnavailable indicates a requested product is inactive.
	ErrOrderProductUnavailable = errors.New("order: product unavailable")
	// ErrOrderBelowMinimum indicates a line is under the product's minimum order.
	ErrOrderBelowMinimum = errors.New("order: below minimum order")
	// ErrOrderInsufficientStock indicates a line exceeds available stock.
	ErrOrderInsufficientStock = errors.New("order: insufficient stock")
	// ErrOrderUnavailable indicates the order store could not be reached.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// OrderServiceDeps bundles the collaborators required to construct an order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Products    repositories.ProductRepository
	Addresses   repositories.AddressRepository
	Users       repositories.UserRepository
	Season      SeasonGate
	UnitOfWork  repositories.UnitOfWork
	Machine     *fulfillment.Machine
	Location    *time.Location
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	products   repositories.ProductRepository
	addresses  repositories.AddressRepository
	users      repositories.UserRepository
	season     SeasonGate
	unitOfWork repositories.UnitOfWork
	machine    *fulfillment.Machine
	location   *time.Location
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	logger     func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService constructs an OrderService enforcing required dependencies.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Products == nil {
		return nil, errors.New("order service: product repository is required")
	}
	if deps.Addresses == nil {
		return nil, errors.New("order service: address repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("order service: user repository is required")
	}
	if deps.Season == nil {
		return nil, errors.New("order service: season gate is required")
	}

	machine := deps.Machine
	if machine == nil {
		machine = fulfillment.New(nil)
	}
	location := deps.Location
	if location == nil {
		location = time.UTC
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		products:   deps.Products,
		addresses:  deps.Addresses,
		users:      deps.Users,
		season:     deps.Season,
		unitOfWork: deps.UnitOfWork,
		machine:    machine,
		location:   location,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

// PlaceOrder validates the request against live catalog data, deducts stock and stores a confirmed order.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	active, err := s.season.IsSeasonActive(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("%w: season lookup: %v", ErrOrderUnavailable, err)
	}
	if !active {
		return Order{}, userFacing(ErrOrderingDisabled, "Ordering is disabled — mango season has not started yet")
	}

	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	addressID := strings.TrimSpace(cmd.AddressID)
	if addressID == "" {
		return Order{}, userFacing(ErrOrderInvalidInput, "Address is required")
	}
	lines, err := mergeOrderLines(cmd.Items)
	if err != nil {
		return Order{}, err
	}

	var placed Order
	err = s.runInTx(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, userID)
		if err != nil {
			if isRepoNotFound(err) {
				return userFacing(ErrOrderNotFound, "User not found")
			}
			return err
		}
		address, err := s.addresses.FindByID(ctx, addressID)
		if err != nil {
			if isRepoNotFound(err) {
				return userFacing(ErrOrderNotFound, "Address not found")
			}
			return err
		}
		if address.UserID != user.ID {
			return userFacing(ErrOrderAddressMismatch, "Address does not belong to the user")
		}

		products := make([]domain.Product, len(lines))
		for i, line := range lines {
			product, err := s.products.FindByID(ctx, line.ProductID)
			if err != nil {
				if isRepoNotFound(err) {
					return userFacing(ErrOrderNotFound, "Product not found: %s", line.ProductID)
				}
				return err
			}
			if err := checkOrderLine(product, line.QuantityKg); err != nil {
				return err
			}
			products[i] = product
		}

		now := s.now()
		order := Order{
			ID:     s.nextOrderID(),
			UserID: user.ID,
			Customer: domain.OrderCustomer{
				ID:    user.ID,
				Name:  user.Name,
				Phone: user.Phone,
				Email: user.Email,
			},
			OrderDate: now,
			Status:    domain.OrderStatusConfirmed,
			Address:   address,
			UpdatedAt: now,
			Items:     make([]OrderItem, 0, len(lines)),
		}
		total := decimal.Zero
		for i, line := range lines {
			product := products[i]
			price := product.EffectivePrice()
			lineTotal := domain.LineTotal(price, line.QuantityKg)
			order.Items = append(order.Items, OrderItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				QuantityKg:  line.QuantityKg,
				PricePerKg:  price,
				LineTotal:   lineTotal,
			})
			total = total.Add(lineTotal)
		}
		order.TotalAmount = total

		for i, line := range lines {
			remaining := products[i].StockKg.Sub(line.QuantityKg)
			if err := s.products.UpdateStock(ctx, products[i].ID, remaining, now); err != nil {
				return err
			}
		}
		if err := s.orders.Insert(ctx, order); err != nil {
			return err
		}
		placed = order
		return nil
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       placed.ID,
		UserID:        placed.UserID,
		CurrentStatus: string(placed.Status),
		ActorID:       placed.UserID,
		OccurredAt:    placed.OrderDate,
		Metadata: map[string]any{
			"items":       len(placed.Items),
			"totalAmount": placed.TotalAmount.StringFixed(2),
		},
	})
	return placed.Clone(), nil
}

// ListUserOrders returns the user's orders newest first.
func (s *orderService) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	orders, err := s.orders.List(ctx, repositories.OrderListFilter{UserID: userID})
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapOrderLookupError(err)
	}
	return order, nil
}

// ListOrders returns the staff listing newest first. Today and Date are calendar days in the store time zone.
func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]Order, error) {
	repoFilter := repositories.OrderListFilter{}
	if filter.Status != nil {
		status, ok := domain.ParseOrderStatus(string(*filter.Status))
		if !ok {
			return nil, userFacing(ErrOrderInvalidInput, "Invalid status: %s", *filter.Status)
		}
		repoFilter.Status = &status
	}

	switch {
	case filter.Today:
		from, to := s.dayBounds(s.now().In(s.location))
		repoFilter.From, repoFilter.To = &from, &to
	case strings.TrimSpace(filter.Date) != "":
		day, err := s.parseDay(filter.Date)
		if err != nil {
			return nil, err
		}
		from, to := s.dayBounds(day)
		repoFilter.From, repoFilter.To = &from, &to
	}

	orders, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return nil, s.mapRepositoryError(err)
	}
	return orders, nil
}

// UpdateStatus moves an order through the fulfillment machine.
func (s *orderService) UpdateStatus(ctx context.Context, cmd OrderStatusCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	target, ok := domain.ParseOrderStatus(string(cmd.Status))
	if !ok {
		return Order{}, userFacing(ErrOrderInvalidInput, "Invalid status: %s", cmd.Status)
	}

	var (
		updated  Order
		previous OrderStatus
	)
	err := s.runInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.mapOrderLookupError(err)
		}
		if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
			return userFacing(ErrOrderConflict, "Order %s is %s, expected %s", order.ID, order.Status, *cmd.ExpectedStatus)
		}
		prev, err := s.machine.Transition(&order, target, s.now())
		if err != nil {
			return s.mapMachineError(err)
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		updated, previous = order, prev
		return nil
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        updated.ID,
		UserID:         updated.UserID,
		PreviousStatus: string(previous),
		CurrentStatus:  string(updated.Status),
		ActorID:        strings.TrimSpace(cmd.ActorID),
		OccurredAt:     updated.UpdatedAt,
	})
	return updated, nil
}

// UpdateCourier records courier and tracking. PENDING and CONFIRMED orders advance to SHIPPED.
func (s *orderService) UpdateCourier(ctx context.Context, cmd OrderCourierCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	var (
		updated  Order
		previous OrderStatus
	)
	err := s.runInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return s.mapOrderLookupError(err)
		}
		previous = order.Status
		now := s.now()
		advance := (order.Status == domain.OrderStatusPending || order.Status == domain.OrderStatusConfirmed) &&
			s.machine.CanTransition(order.Status, domain.OrderStatusShipped)
		if advance {
			_, err = s.machine.Dispatch(&order, cmd.CourierName, cmd.TrackingID, now)
		} else {
			err = s.machine.AttachCourier(&order, cmd.CourierName, cmd.TrackingID, now)
		}
		if err != nil {
			return s.mapMachineError(err)
		}
		if err := s.orders.Update(ctx, order); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	actor := strings.TrimSpace(cmd.ActorID)
	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCourier,
		OrderID:       updated.ID,
		UserID:        updated.UserID,
		CurrentStatus: string(updated.Status),
		ActorID:       actor,
		OccurredAt:    updated.UpdatedAt,
		Metadata: map[string]any{
			"courierName": updated.CourierName,
			"trackingId":  updated.TrackingID,
		},
	})
	if updated.Status != previous {
		s.publishEvent(ctx, OrderEvent{
			Type:           orderEventStatusChanged,
			OrderID:        updated.ID,
			UserID:         updated.UserID,
			PreviousStatus: string(previous),
			CurrentStatus:  string(updated.Status),
			ActorID:        actor,
			OccurredAt:     updated.UpdatedAt,
		})
	}
	return updated, nil
}

func checkOrderLine(product domain.Product, quantity decimal.Decimal) error {
	if !product.Active {
		return userFacing(ErrOrderProductUnavailable, "Product is not available: %s", product.Name)
	}
	minOrder := domain.NormaliseMinOrder(product.MinOrderKg)
	if quantity.LessThan(minOrder) {
		return userFacing(ErrOrderBelowMinimum, "Minimum order for %s is %s KG", product.Name, minOrder.StringFixed(2))
	}
	if product.StockKg.LessThan(quantity) {
		return userFacing(ErrOrderInsufficientStock, "Insufficient stock for %s. Available: %s KG", product.Name, product.StockKg.StringFixed(2))
	}
	return nil
}

// mergeOrderLines folds repeated products into one line so stock is checked against the combined weight.
func mergeOrderLines(items []PlaceOrderLine) ([]PlaceOrderLine, error) {
	if len(items) == 0 {
		return nil, userFacing(ErrOrderInvalidInput, "Order must contain at least one item")
	}
	merged := make([]PlaceOrderLine, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" {
			return nil, userFacing(ErrOrderInvalidInput, "Product is required")
		}
		if !item.QuantityKg.IsPositive() {
			return nil, userFacing(ErrOrderInvalidInput, "Quantity must be positive")
		}
		if i, ok := index[id]; ok {
			merged[i].QuantityKg = merged[i].QuantityKg.Add(item.QuantityKg)
			continue
		}
		index[id] = len(merged)
		merged = append(merged, PlaceOrderLine{ProductID: id, QuantityKg: item.QuantityKg})
	}
	return merged, nil
}

func (s *orderService) parseDay(raw string) (time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(raw), s.location)
	if err != nil {
		return time.Time{}, userFacing(ErrOrderInvalidInput, "Invalid date: %s", strings.TrimSpace(raw))
	}
	return day, nil
}

// dayBounds returns [midnight, next midnight) of the calendar day containing t, in UTC.
func (s *orderService) dayBounds(t time.Time) (time.Time, time.Time) {
	local := t.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

func (s *orderService) mapMachineError(err error) error {
	var vErr *fulfillment.ValidationError
	switch {
	case errors.As(err, &vErr):
		return fmt.Errorf("%w: %s", ErrOrderInvalidInput, vErr.Message)
	case errors.Is(err, fulfillment.ErrUnknownStatus):
		return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
	case errors.Is(err, fulfillment.ErrTransitionNotAllowed):
		return fmt.Errorf("%w: %v", ErrOrderInvalidState, err)
	}
	return err
}

func (s *orderService) mapOrderLookupError(err error) error {
	if isRepoNotFound(err) {
		return userFacing(ErrOrderNotFound, "Order not found")
	}
	return s.mapRepositoryError(err)
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var uErr *userError
	if errors.As(err, &uErr) {
		return uErr
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if event.Metadata != nil {
		event.Metadata = maps.Clone(event.Metadata)
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   event.Type,
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": event.CurrentStatus,
		})
	}
}
