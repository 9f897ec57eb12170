package fulfillment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skm-mango/storefront/internal/domain"
)

var (
	// ErrUnknownStatus indicates the requested target is not a defined order status.
	ErrUnknownStatus = errors.New("fulfillment: unknown order status")
	// ErrTransitionNotAllowed indicates the policy rejected the status change.
	ErrTransitionNotAllowed = errors.New("fulfillment: transition not allowed")
	// ErrNilOrder is returned when no order is supplied.
	ErrNilOrder = errors.New("fulfillment: order is required")
)

// TransitionError reports a rejected source→target pair.
type TransitionError struct {
	From domain.OrderStatus
	To   domain.OrderStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("fulfillment: cannot move order from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error {
	return ErrTransitionNotAllowed
}

// ValidationError reports missing courier data.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("fulfillment: %s: %s", e.Field, e.Message)
}

// Machine applies status changes and courier metadata to orders.
type Machine struct {
	policy Policy
}

// New returns a machine enforcing policy. A nil policy means Permissive.
func New(policy Policy) *Machine {
	if policy == nil {
		policy = Permissive()
	}
	return &Machine{policy: policy}
}

// Allowed lists the statuses an order in from may move to.
func (m *Machine) Allowed(from domain.OrderStatus) []domain.OrderStatus {
	return m.policy.Targets(from)
}

// CanTransition reports whether the policy accepts from → to.
func (m *Machine) CanTransition(from, to domain.OrderStatus) bool {
	return m.policy.Allows(from, to)
}

// Transition validates the target, checks the policy, then applies the status and stamps timestamps.
// It returns the status the order held before the change.
func (m *Machine) Transition(order *domain.Order, target domain.OrderStatus, now time.Time) (domain.OrderStatus, error) {
	if order == nil {
		return "", ErrNilOrder
	}
	normalized, ok := domain.ParseOrderStatus(string(target))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, target)
	}
	previous := order.Status
	if !m.policy.Allows(previous, normalized) {
		return previous, &TransitionError{From: previous, To: normalized}
	}

	now = now.UTC()
	order.Status = normalized
	order.UpdatedAt = now
	stampStatus(order, normalized, now)
	return previous, nil
}

// AttachCourier records courier and tracking on the order. The status is not changed.
func (m *Machine) AttachCourier(order *domain.Order, courierName, trackingID string, now time.Time) error {
	if order == nil {
		return ErrNilOrder
	}
	courierName, trackingID, err := validateCourier(courierName, trackingID)
	if err != nil {
		return err
	}
	order.CourierName = courierName
	order.TrackingID = trackingID
	order.UpdatedAt = now.UTC()
	return nil
}

// Dispatch attaches courier data and moves the order to SHIPPED. Nothing is applied when either step would fail.
func (m *Machine) Dispatch(order *domain.Order, courierName, trackingID string, now time.Time) (domain.OrderStatus, error) {
	if order == nil {
		return "", ErrNilOrder
	}
	if _, _, err := validateCourier(courierName, trackingID); err != nil {
		return order.Status, err
	}
	if !m.policy.Allows(order.Status, domain.OrderStatusShipped) {
		return order.Status, &TransitionError{From: order.Status, To: domain.OrderStatusShipped}
	}
	if err := m.AttachCourier(order, courierName, trackingID, now); err != nil {
		return order.Status, err
	}
	return m.Transition(order, domain.OrderStatusShipped, now)
}

func validateCourier(courierName, trackingID string) (string, string, error) {
	courierName = strings.TrimSpace(courierName)
	trackingID = strings.TrimSpace(trackingID)
	if courierName == "" {
		return "", "", &ValidationError{Field: "courierName", Message: "courier name is required"}
	}
	if trackingID == "" {
		return "", "", &ValidationError{Field: "trackingId", Message: "tracking id is required"}
	}
	return courierName, trackingID, nil
}

func stampStatus(order *domain.Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusShipped:
		order.ShippedAt = &now
	case domain.OrderStatusOutForDelivery:
		order.OutForDeliveryAt = &now
	case domain.OrderStatusDelivered:
		order.DeliveredAt = &now
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	}
}
