package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/session"
)

const defaultStorageKey = "cart"

var (
	// ErrItemNotFound is returned when a quantity change targets a product that is not in the cart.
	ErrItemNotFound = errors.New("cart: item not found")

	defaultStep = decimal.NewFromInt(1)
)

// ValidationError reports a rejected cart mutation. The cart is left unchanged.
type ValidationError struct {
	ProductID string
	Field     string
	Message   string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("cart: %s: %s", e.Field, e.Message)
}

// Storage persists the serialised cart between sessions.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

// Notifier is the subscription surface of the auth session.
type Notifier interface {
	Subscribe(observer session.Observer) (unsubscribe func())
}

// Option customises a Store.
type Option func(*Store)

// WithLogger attaches a logger for persistence warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStorageKey overrides the key the cart is stored under.
func WithStorageKey(key string) Option {
	return func(s *Store) {
		if trimmed := strings.TrimSpace(key); trimmed != "" {
			s.key = trimmed
		}
	}
}

// Store owns the working set of cart line items for one client session.
type Store struct {
	mu      sync.RWMutex
	items   []domain.CartLineItem
	storage Storage
	key     string
	logger  *zap.Logger
}

type persistedCart struct {
	Items []domain.CartLineItem `json:"items"`
}

// New constructs an empty Store. Call Load to rehydrate persisted state.
func New(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     defaultStorageKey,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load replaces the in-memory cart with the persisted snapshot. Absent or corrupt data yields an empty cart.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	if s.storage == nil {
		return
	}

	raw, ok, err := s.storage.Get(s.key)
	if err != nil {
		s.logger.Warn("cart load failed", zap.Error(err))
		return
	}
	if !ok || len(raw) == 0 {
		return
	}

	var stored persistedCart
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("discarding corrupt cart", zap.Error(err))
		if err := s.storage.Delete(s.key); err != nil {
			s.logger.Warn("cart delete failed", zap.Error(err))
		}
		return
	}

	seen := make(map[string]struct{}, len(stored.Items))
	for _, item := range stored.Items {
		id := strings.TrimSpace(item.ProductID)
		if id == "" || !item.UnitPrice.IsPositive() || item.QuantityKg.LessThan(domain.NormaliseMinOrder(item.MinOrderKg)) {
			s.logger.Warn("dropping invalid persisted cart item", zap.String("product_id", id))
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		item.ProductID = id
		item.MinOrderKg = domain.NormaliseMinOrder(item.MinOrderKg)
		s.items = append(s.items, item)
	}
}

// Bind registers the store with the auth session so any login, registration or logout clears it.
func (s *Store) Bind(n Notifier) (unsubscribe func()) {
	if n == nil {
		return func() {}
	}
	return n.Subscribe(s)
}

// OnAuthChange implements session.Observer.
func (s *Store) OnAuthChange(_ context.Context, event session.Event) {
	s.logger.Debug("clearing cart on auth change", zap.String("event", string(event.Kind)))
	s.Clear()
}

// AddItem adds one minimum order of the product, or increments an existing line by that amount.
func (s *Store) AddItem(product domain.ProductSnapshot) bool {
	return s.add(product, domain.NormaliseMinOrder(product.MinOrderKg))
}

// AddItemQuantity adds quantity kg of the product. Malformed snapshots and non-positive quantities are ignored.
func (s *Store) AddItemQuantity(product domain.ProductSnapshot, quantity decimal.Decimal) bool {
	if !quantity.IsPositive() {
		return false
	}
	return s.add(product, quantity)
}

func (s *Store) add(product domain.ProductSnapshot, quantity decimal.Decimal) bool {
	if !product.Valid() {
		s.logger.Debug("ignoring malformed product snapshot", zap.String("product_id", product.ID))
		return false
	}
	id := strings.TrimSpace(product.ID)
	minOrder := domain.NormaliseMinOrder(product.MinOrderKg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexOf(id); idx >= 0 {
		s.items[idx].QuantityKg = s.items[idx].QuantityKg.Add(quantity)
		s.persistLocked()
		return true
	}

	if quantity.LessThan(minOrder) {
		// A fresh line below its floor would violate the cart invariant.
		quantity = minOrder
	}
	s.items = append(s.items, domain.CartLineItem{
		ProductID:    id,
		Name:         strings.TrimSpace(product.Name),
		UnitPrice:    product.Price(),
		MinOrderKg:   minOrder,
		StockCeiling: product.StockKg,
		QuantityKg:   quantity,
	})
	s.persistLocked()
	return true
}

// SetQuantity sets an explicit quantity. Zero or negative removes the item; values under the floor are rejected.
func (s *Store) SetQuantity(productID string, quantity decimal.Decimal) error {
	productID = strings.TrimSpace(productID)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	if !quantity.IsPositive() {
		s.removeLocked(idx)
		s.persistLocked()
		return nil
	}
	item := s.items[idx]
	if quantity.LessThan(item.MinOrderKg) {
		return &ValidationError{
			ProductID: productID,
			Field:     "quantityKg",
			Message:   fmt.Sprintf("minimum order for %s is %s kg", item.Name, domain.FormatKg(item.MinOrderKg)),
		}
	}
	s.items[idx].QuantityKg = quantity
	s.persistLocked()
	return nil
}

// Increment raises the line quantity by step (1 kg when step is not positive).
func (s *Store) Increment(productID string, step decimal.Decimal) error {
	if !step.IsPositive() {
		step = defaultStep
	}
	productID = strings.TrimSpace(productID)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	s.items[idx].QuantityKg = s.items[idx].QuantityKg.Add(step)
	s.persistLocked()
	return nil
}

// Decrement lowers the line quantity by step; dropping under the floor removes the line.
func (s *Store) Decrement(productID string, step decimal.Decimal) error {
	if !step.IsPositive() {
		step = defaultStep
	}
	productID = strings.TrimSpace(productID)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return ErrItemNotFound
	}
	next := s.items[idx].QuantityKg.Sub(step)
	if next.LessThan(s.items[idx].MinOrderKg) {
		s.removeLocked(idx)
	} else {
		s.items[idx].QuantityKg = next
	}
	s.persistLocked()
	return nil
}

// RemoveItem drops the product from the cart. Removing an absent product is a no-op.
func (s *Store) RemoveItem(productID string) {
	productID = strings.TrimSpace(productID)

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(productID)
	if idx < 0 {
		return
	}
	s.removeLocked(idx)
	s.persistLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persistLocked()
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.CartLineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CartLineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Item returns the line for productID when present.
func (s *Store) Item(productID string) (domain.CartLineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.indexOf(strings.TrimSpace(productID))
	if idx < 0 {
		return domain.CartLineItem{}, false
	}
	return s.items[idx], true
}

// Len returns the number of distinct products.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// IsEmpty reports whether the cart has no items.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// TotalItems is the sum of line quantities in kg.
func (s *Store) TotalItems() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.QuantityKg)
	}
	return total
}

// TotalPrice is the sum of unitPrice × quantity over all lines.
func (s *Store) TotalPrice() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, item := range s.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// OrderLines converts the cart into the price-free lines sent to order creation.
func (s *Store) OrderLines() []domain.OrderLineRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := make([]domain.OrderLineRequest, 0, len(s.items))
	for _, item := range s.items {
		lines = append(lines, domain.OrderLineRequest{
			ProductID:  item.ProductID,
			QuantityKg: item.QuantityKg,
		})
	}
	return lines
}

func (s *Store) indexOf(productID string) int {
	if productID == "" {
		return -1
	}
	for i, item := range s.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *Store) removeLocked(idx int) {
	s.items = append(s.items[:idx], s.items[idx+1:]...)
	if len(s.items) == 0 {
		s.items = nil
	}
}

func (s *Store) persistLocked() {
	if s.storage == nil {
		return
	}
	items := s.items
	if items == nil {
		items = []domain.CartLineItem{}
	}
	payload, err := json.Marshal(persistedCart{Items: items})
	if err != nil {
		s.logger.Warn("cart encode failed", zap.Error(err))
		return
	}
	if err := s.storage.Put(s.key, payload); err != nil {
		s.logger.Warn("cart persist failed", zap.Error(err))
	}
}
