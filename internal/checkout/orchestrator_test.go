package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/skm-mango/storefront/internal/cart"
	"github.com/skm-mango/storefront/internal/domain"
)

type remoteError struct{ message string }

func (e remoteError) Error() string         { return "api: " + e.message }
func (e remoteError) PublicMessage() string { return e.message }

type stubRemote struct {
	seasonActive   bool
	seasonErr      error
	addresses      []domain.Address
	addressesErr   error
	createAddrFn   func(fields domain.AddressFields) (domain.Address, error)
	createOrderFn  func(req domain.PlaceOrderRequest, key string) (domain.Order, error)
	seasonCalls    int
	addressCalls   int
	orderCalls     int
	idempotencyLog []string
}

func (s *stubRemote) GetSeasonFlag(context.Context) (bool, error) {
	s.seasonCalls++
	return s.seasonActive, s.seasonErr
}

func (s *stubRemote) ListAddresses(context.Context) ([]domain.Address, error) {
	s.addressCalls++
	return s.addresses, s.addressesErr
}

func (s *stubRemote) CreateAddress(_ context.Context, fields domain.AddressFields) (domain.Address, error) {
	if s.createAddrFn == nil {
		return domain.Address{ID: "addr_new", FullName: fields.FullName, IsDefault: fields.IsDefault}, nil
	}
	return s.createAddrFn(fields)
}

func (s *stubRemote) CreateOrder(_ context.Context, req domain.PlaceOrderRequest, key string) (domain.Order, error) {
	s.orderCalls++
	s.idempotencyLog = append(s.idempotencyLog, key)
	if s.createOrderFn == nil {
		return domain.Order{ID: "ord_1", Status: domain.OrderStatusConfirmed}, nil
	}
	return s.createOrderFn(req, key)
}

func filledCart() *cart.Store {
	store := cart.New(nil)
	store.AddItem(domain.ProductSnapshot{
		ID:             "alphonso",
		Name:           "Alphonso",
		OriginalPrice:  decimal.NewFromInt(250),
		EffectivePrice: decimal.NewFromInt(250),
		StockKg:        decimal.NewFromInt(40),
		MinOrderKg:     decimal.NewFromInt(3),
		InStock:        true,
	})
	return store
}

func sequentialKeys(keys ...string) func() string {
	i := 0
	return func() string {
		key := keys[i]
		i++
		return key
	}
}

func TestEnterEmptyCartMakesNoCalls(t *testing.T) {
	remote := &stubRemote{seasonActive: true}
	o := New(cart.New(nil), remote)

	_, err := o.Enter(context.Background())
	var pErr *PreconditionError
	require.True(t, errors.As(err, &pErr))
	require.Equal(t, ReasonEmptyCart, pErr.Reason)
	require.Equal(t, "/cart", pErr.Redirect)
	require.Zero(t, remote.seasonCalls)
	require.Zero(t, remote.addressCalls)
}

func TestEnterInactiveSeasonStopsAfterFlag(t *testing.T) {
	remote := &stubRemote{seasonActive: false}
	o := New(filledCart(), remote)

	_, err := o.Enter(context.Background())
	var pErr *PreconditionError
	require.True(t, errors.As(err, &pErr))
	require.Equal(t, ReasonSeasonInactive, pErr.Reason)
	require.Equal(t, "/cart", pErr.Redirect)
	require.Equal(t, 1, remote.seasonCalls)
	require.Zero(t, remote.addressCalls)
}

func TestEnterPreselectsDefault(t *testing.T) {
	remote := &stubRemote{seasonActive: true, addresses: []domain.Address{
		{ID: "a1"}, {ID: "a2", IsDefault: true},
	}}
	o := New(filledCart(), remote)

	addrs, err := o.Enter(context.Background())
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	selected, ok := o.SelectedAddress()
	require.True(t, ok)
	require.Equal(t, "a2", selected.ID)
	require.True(t, o.CanSubmit())

	remote.addresses = []domain.Address{{ID: "b1"}, {ID: "b2"}}
	_, err = o.Enter(context.Background())
	require.NoError(t, err)
	selected, _ = o.SelectedAddress()
	require.Equal(t, "b1", selected.ID)
}

func TestEnterAddressFailureIsRejection(t *testing.T) {
	remote := &stubRemote{seasonActive: true, addressesErr: errors.New("dial tcp: refused")}
	o := New(filledCart(), remote)

	_, err := o.Enter(context.Background())
	var rej *RemoteRejection
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "Failed to load addresses. Please try again.", rej.Message)
}

func TestSelectAddressMustBeLoaded(t *testing.T) {
	remote := &stubRemote{seasonActive: true, addresses: []domain.Address{{ID: "a1"}}}
	o := New(filledCart(), remote)
	_, err := o.Enter(context.Background())
	require.NoError(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(o.SelectAddress("other"), &vErr))
	require.Equal(t, "addressId", vErr.Field)
	require.NoError(t, o.SelectAddress("a1"))
}

func TestCreateAddressValidatesAndSelects(t *testing.T) {
	remote := &stubRemote{seasonActive: true}
	o := New(filledCart(), remote)
	_, err := o.Enter(context.Background())
	require.NoError(t, err)
	require.False(t, o.CanSubmit())

	fields := domain.AddressFields{FullName: "Meena", Phone: "98765", AddressLine: "1 Beach Rd", City: "Chennai", State: "Tamil Nadu", Pincode: "600001"}
	_, err = o.CreateAddress(context.Background(), fields)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "phone", vErr.Field)

	fields.Phone = "9876543210"
	fields.Pincode = "6000"
	_, err = o.CreateAddress(context.Background(), fields)
	require.True(t, errors.As(err, &vErr))
	require.Equal(t, "pincode", vErr.Field)

	fields.Pincode = " 600001 "
	created, err := o.CreateAddress(context.Background(), fields)
	require.NoError(t, err)
	require.Equal(t, "addr_new", created.ID)
	selected, ok := o.SelectedAddress()
	require.True(t, ok)
	require.Equal(t, "addr_new", selected.ID)
	require.True(t, o.CanSubmit())
}

func TestSubmitOrderSuccessClearsCartAndKey(t *testing.T) {
	var sent domain.PlaceOrderRequest
	remote := &stubRemote{
		seasonActive: true,
		addresses:    []domain.Address{{ID: "a1", IsDefault: true}},
		createOrderFn: func(req domain.PlaceOrderRequest, _ string) (domain.Order, error) {
			sent = req
			return domain.Order{ID: "ord_9", Status: domain.OrderStatusConfirmed}, nil
		},
	}
	shop := filledCart()
	o := New(shop, remote, WithKeyGenerator(sequentialKeys("k1", "k2")))
	_, err := o.Enter(context.Background())
	require.NoError(t, err)

	result, err := o.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ord_9", result.Order.ID)
	require.Equal(t, "/orders", result.Redirect)
	require.Equal(t, "a1", sent.AddressID)
	require.Len(t, sent.Items, 1)
	require.Equal(t, "alphonso", sent.Items[0].ProductID)
	require.True(t, sent.Items[0].QuantityKg.Equal(decimal.NewFromInt(3)))
	require.True(t, shop.IsEmpty())
	require.Empty(t, o.PendingKey())
}

func TestSubmitOrderTransportFailureKeepsCartAndKey(t *testing.T) {
	attempts := 0
	remote := &stubRemote{
		seasonActive: true,
		addresses:    []domain.Address{{ID: "a1"}},
		createOrderFn: func(domain.PlaceOrderRequest, string) (domain.Order, error) {
			attempts++
			if attempts == 1 {
				return domain.Order{}, errors.New("connection reset by peer")
			}
			return domain.Order{ID: "ord_2"}, nil
		},
	}
	shop := filledCart()
	o := New(shop, remote, WithKeyGenerator(sequentialKeys("k1", "k2")))
	_, err := o.Enter(context.Background())
	require.NoError(t, err)

	_, err = o.SubmitOrder(context.Background())
	var rej *RemoteRejection
	require.True(t, errors.As(err, &rej))
	require.Equal(t, "Failed to place order", rej.Message)
	require.False(t, shop.IsEmpty())
	require.Equal(t, "k1", o.PendingKey())

	_, err = o.SubmitOrder(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"k1", "k1"}, remote.idempotencyLog)
}

type answeredError struct {
	remoteError
	retryable bool
}

func (e answeredError) Retryable() bool { return e.retryable }

func TestSubmitOrderKeyLifecycle(t *testing.T) {
	cases := []struct {
		name    string
		first   error
		edit    func(*cart.Store)
		keys    []string
		pending string
	}{
		{
			name:    "server error keeps key",
			first:   answeredError{remoteError: remoteError{message: "service temporarily unavailable"}, retryable: true},
			keys:    []string{"k1", "k1"},
			pending: "k1",
		},
		{
			name:  "definitive rejection rotates key",
			first: answeredError{remoteError: remoteError{message: "Insufficient stock for Alphonso. Available: 2 KG"}},
			keys:  []string{"k1", "k2"},
		},
		{
			name:    "edited cart rotates key",
			first:   errors.New("timeout"),
			edit:    func(c *cart.Store) { _ = c.SetQuantity("alphonso", decimal.NewFromInt(5)) },
			keys:    []string{"k1", "k2"},
			pending: "k1",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			attempts := 0
			remote := &stubRemote{
				seasonActive: true,
				addresses:    []domain.Address{{ID: "a1"}},
				createOrderFn: func(domain.PlaceOrderRequest, string) (domain.Order, error) {
					attempts++
					if attempts == 1 {
						return domain.Order{}, tc.first
					}
					return domain.Order{ID: "ord_2"}, nil
				},
			}
			shop := filledCart()
			o := New(shop, remote, WithKeyGenerator(sequentialKeys("k1", "k2", "k3")))
			_, err := o.Enter(context.Background())
			require.NoError(t, err)

			_, err = o.SubmitOrder(context.Background())
			require.Error(t, err)
			require.False(t, shop.IsEmpty())
			require.Equal(t, tc.pending, o.PendingKey())

			if tc.edit != nil {
				tc.edit(shop)
			}
			_, err = o.SubmitOrder(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.keys, remote.idempotencyLog)
			require.True(t, shop.IsEmpty())
			require.Empty(t, o.PendingKey())
		})
	}
}

func TestSubmitOrderRequiresAddress(t *testing.T) {
	remote := &stubRemote{seasonActive: true}
	o := New(filledCart(), remote)
	_, err := o.Enter(context.Background())
	require.NoError(t, err)

	_, err = o.SubmitOrder(context.Background())
	var pErr *PreconditionError
	require.True(t, errors.As(err, &pErr))
	require.Equal(t, ReasonNoAddress, pErr.Reason)
	require.Zero(t, remote.orderCalls)
}
