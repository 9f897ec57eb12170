package fulfillment

import (
	"slices"

	"github.com/skm-mango/storefront/internal/domain"
)

// Policy decides which status changes the machine accepts.
type Policy interface {
	Allows(from, to domain.OrderStatus) bool
	Targets(from domain.OrderStatus) []domain.OrderStatus
}

type permissivePolicy struct{}

// Permissive accepts any defined status from any status.
func Permissive() Policy {
	return permissivePolicy{}
}

func (permissivePolicy) Allows(_, to domain.OrderStatus) bool {
	return to.Valid()
}

func (permissivePolicy) Targets(from domain.OrderStatus) []domain.OrderStatus {
	targets := make([]domain.OrderStatus, 0, len(domain.OrderStatuses))
	for _, status := range domain.OrderStatuses {
		if status != from {
			targets = append(targets, status)
		}
	}
	return targets
}

// StrictOption customises the strict transition table.
type StrictOption func(*strictConfig)

type strictConfig struct {
	skipToDelivered bool
}

// WithSkipToDelivered controls whether CONFIRMED and SHIPPED orders may be marked DELIVERED directly.
func WithSkipToDelivered(allow bool) StrictOption {
	return func(cfg *strictConfig) {
		cfg.skipToDelivered = allow
	}
}

type strictPolicy struct {
	table map[domain.OrderStatus][]domain.OrderStatus
}

// Strict only accepts forward steps of the pipeline plus cancellation of non-terminal orders.
func Strict(opts ...StrictOption) Policy {
	cfg := strictConfig{skipToDelivered: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	table := map[domain.OrderStatus][]domain.OrderStatus{
		domain.OrderStatusPending:        {domain.OrderStatusConfirmed},
		domain.OrderStatusConfirmed:      {domain.OrderStatusShipped},
		domain.OrderStatusShipped:        {domain.OrderStatusOutForDelivery},
		domain.OrderStatusOutForDelivery: {domain.OrderStatusDelivered},
	}
	if cfg.skipToDelivered {
		table[domain.OrderStatusConfirmed] = append(table[domain.OrderStatusConfirmed], domain.OrderStatusDelivered)
		table[domain.OrderStatusShipped] = append(table[domain.OrderStatusShipped], domain.OrderStatusDelivered)
	}
	for _, status := range domain.OrderStatuses {
		if !status.Terminal() {
			table[status] = append(table[status], domain.OrderStatusCancelled)
		}
	}
	return strictPolicy{table: table}
}

func (p strictPolicy) Allows(from, to domain.OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	return slices.Contains(p.table[from], to)
}

func (p strictPolicy) Targets(from domain.OrderStatus) []domain.OrderStatus {
	return slices.Clone(p.table[from])
}
