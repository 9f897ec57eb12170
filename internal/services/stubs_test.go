package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/skm-mango/storefront/internal/domain"
	"github.com/skm-mango/storefront/internal/repositories"
)

type stubRepoError struct {
	msg         string
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e stubRepoError) Error() string       { return e.msg }
func (e stubRepoError) IsNotFound() bool    { return e.notFound }
func (e stubRepoError) IsConflict() bool    { return e.conflict }
func (e stubRepoError) IsUnavailable() bool { return e.unavailable }

func notFoundErr() error    { return stubRepoError{msg: "not found", notFound: true} }
func unavailableErr() error { return stubRepoError{msg: "backend down", unavailable: true} }

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func ptrDec(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func fixedNow() time.Time { return time.Date(2025, 5, 10, 4, 30, 0, 0, time.UTC) }

type stubProducts struct {
	mu       sync.Mutex
	items    map[string]domain.Product
	listErr  error
	findErr  error
	stockErr error
	updates  map[string]decimal.Decimal
}

func newStubProducts(products ...domain.Product) *stubProducts {
	s := &stubProducts{items: map[string]domain.Product{}, updates: map[string]decimal.Decimal{}}
	for _, p := range products {
		s.items[p.ID] = p
	}
	return s
}

func (s *stubProducts) FindByID(_ context.Context, id string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return domain.Product{}, s.findErr
	}
	p, ok := s.items[id]
	if !ok {
		return domain.Product{}, notFoundErr()
	}
	return p, nil
}

func (s *stubProducts) List(_ context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]domain.Product, 0, len(s.items))
	for _, p := range s.items {
		if filter.ActiveOnly && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *stubProducts) UpdateStock(_ context.Context, id string, stock decimal.Decimal, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stockErr != nil {
		return s.stockErr
	}
	p := s.items[id]
	p.StockKg = stock
	p.UpdatedAt = updatedAt
	s.items[id] = p
	s.updates[id] = stock
	return nil
}

type stubAddresses struct {
	mu       sync.Mutex
	items    map[string]domain.Address
	inserted []domain.Address
	deleted  []string
	defaults map[string]bool
	listErr  error
}

func newStubAddresses(addresses ...domain.Address) *stubAddresses {
	s := &stubAddresses{items: map[string]domain.Address{}, defaults: map[string]bool{}}
	for _, a := range addresses {
		s.items[a.ID] = a
	}
	return s
}

func (s *stubAddresses) ListByUser(_ context.Context, userID string) ([]domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []domain.Address
	for _, a := range s.items {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubAddresses) FindByID(_ context.Context, id string) (domain.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return domain.Address{}, notFoundErr()
	}
	return a, nil
}

func (s *stubAddresses) Insert(_ context.Context, address domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[address.ID] = address
	s.inserted = append(s.inserted, address)
	return nil
}

func (s *stubAddresses) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubAddresses) SetDefault(_ context.Context, id string, isDefault bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return notFoundErr()
	}
	a.IsDefault = isDefault
	s.items[id] = a
	s.defaults[id] = isDefault
	return nil
}

type stubOrders struct {
	mu        sync.Mutex
	items     map[string]domain.Order
	inserted  []domain.Order
	updated   []domain.Order
	filters   []repositories.OrderListFilter
	insertErr error
	listFn    func(repositories.OrderListFilter) ([]domain.Order, error)
}

func newStubOrders(orders ...domain.Order) *stubOrders {
	s := &stubOrders{items: map[string]domain.Order{}}
	for _, o := range orders {
		s.items[o.ID] = o
	}
	return s
}

func (s *stubOrders) Insert(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	s.items[order.ID] = order.Clone()
	s.inserted = append(s.inserted, order.Clone())
	return nil
}

func (s *stubOrders) Update(_ context.Context, order domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[order.ID] = order.Clone()
	s.updated = append(s.updated, order.Clone())
	return nil
}

func (s *stubOrders) FindByID(_ context.Context, id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.items[id]
	if !ok {
		return domain.Order{}, notFoundErr()
	}
	return o.Clone(), nil
}

func (s *stubOrders) List(_ context.Context, filter repositories.OrderListFilter) ([]domain.Order, error) {
	s.mu.Lock()
	s.filters = append(s.filters, filter)
	listFn := s.listFn
	s.mu.Unlock()
	if listFn != nil {
		return listFn(filter)
	}
	return nil, nil
}

type stubUsers struct {
	items map[string]domain.User
}

func (s stubUsers) FindByID(_ context.Context, id string) (domain.User, error) {
	u, ok := s.items[id]
	if !ok {
		return domain.User{}, notFoundErr()
	}
	return u, nil
}

type stubSettingsRepo struct {
	values    map[string]string
	upserted  []map[string]string
	allErr    error
	upsertErr error
}

func (s *stubSettingsRepo) All(context.Context) (map[string]string, error) {
	if s.allErr != nil {
		return nil, s.allErr
	}
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}

func (s *stubSettingsRepo) Upsert(_ context.Context, values map[string]string, _ time.Time) error {
	if s.upsertErr != nil {
		return s.upsertErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	for k, v := range values {
		s.values[k] = v
	}
	s.upserted = append(s.upserted, values)
	return nil
}

type stubSeason struct {
	active bool
	err    error
}

func (s stubSeason) IsSeasonActive(context.Context) (bool, error) { return s.active, s.err }

type stubZones []string

func (z stubZones) DeliveryZones(context.Context) ([]string, error) { return z, nil }

type recordingOrderEvents struct {
	mu     sync.Mutex
	events []OrderEvent
	err    error
}

func (r *recordingOrderEvents) PublishOrderEvent(_ context.Context, event OrderEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingOrderEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingSettingsEvents struct {
	events []SettingsEvent
	err    error
}

func (r *recordingSettingsEvents) PublishSettingsEvent(_ context.Context, event SettingsEvent) error {
	r.events = append(r.events, event)
	return r.err
}

type countingUnitOfWork struct {
	calls int
}

func (u *countingUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	u.calls++
	return fn(ctx)
}

type stubHealthRepo struct {
	report domain.SystemHealthReport
	err    error
}

func (s stubHealthRepo) Collect(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

var errBoom = errors.New("boom")
