package checkout

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/domain"
)

const (
	cartPath   = "/cart"
	ordersPath = "/orders"
)

var (
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	phonePattern   = regexp.MustCompile(`^\d{10}$`)
)

// Reason identifies why checkout cannot proceed.
type Reason string

const (
	ReasonEmptyCart      Reason = "empty_cart"
	ReasonSeasonInactive Reason = "season_inactive"
	ReasonNoAddress      Reason = "no_address"
)

// PreconditionError means checkout cannot proceed and the user should be sent to Redirect.
type PreconditionError struct {
	Reason   Reason
	Redirect string
	Message  string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("checkout: %s", e.Message)
}

// ValidationError reports a field the user must correct.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout: %s: %s", e.Field, e.Message)
}

// RemoteRejection carries a collaborator failure. Message is shown to the user as-is.
type RemoteRejection struct {
	Message string
	Err     error
}

func (e *RemoteRejection) Error() string {
	return e.Message
}

func (e *RemoteRejection) Unwrap() error {
	return e.Err
}

// Cart is the part of the cart store checkout relies on.
type Cart interface {
	IsEmpty() bool
	OrderLines() []domain.OrderLineRequest
	Clear()
}

// Remote is the storefront API used at checkout.
type Remote interface {
	GetSeasonFlag(ctx context.Context) (bool, error)
	ListAddresses(ctx context.Context) ([]domain.Address, error)
	CreateAddress(ctx context.Context, fields domain.AddressFields) (domain.Address, error)
	CreateOrder(ctx context.Context, req domain.PlaceOrderRequest, idempotencyKey string) (domain.Order, error)
}

// Result is returned after a successful submission.
type Result struct {
	Order    domain.Order
	Redirect string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithKeyGenerator overrides how idempotency keys are generated.
func WithKeyGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newKey = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Orchestrator binds a cart and a delivery address into an order submission.
type Orchestrator struct {
	cart   Cart
	remote Remote
	newKey func() string
	logger *zap.Logger

	mu         sync.Mutex
	addresses  []domain.Address
	selectedID string
	pendingKey string
	pendingReq domain.PlaceOrderRequest
	submitting bool
}

// New constructs an orchestrator over cart and remote.
func New(cart Cart, remote Remote, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cart:   cart,
		remote: remote,
		newKey: func() string { return uuid.NewString() },
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Enter checks the cart and the season flag once, then loads saved addresses and preselects one.
func (o *Orchestrator) Enter(ctx context.Context) ([]domain.Address, error) {
	if o.cart == nil || o.cart.IsEmpty() {
		return nil, &PreconditionError{Reason: ReasonEmptyCart, Redirect: cartPath, Message: "cart is empty"}
	}

	active, err := o.remote.GetSeasonFlag(ctx)
	if err != nil {
		return nil, rejection(err, "Failed to check ordering status. Please try again.")
	}
	if !active {
		return nil, &PreconditionError{Reason: ReasonSeasonInactive, Redirect: cartPath, Message: "ordering is disabled for the season"}
	}

	addresses, err := o.remote.ListAddresses(ctx)
	if err != nil {
		o.logger.Warn("address load failed", zap.Error(err))
		return nil, rejection(err, "Failed to load addresses. Please try again.")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.addresses = append([]domain.Address(nil), addresses...)
	o.selectedID = preselect(o.addresses)
	return append([]domain.Address(nil), o.addresses...), nil
}

// Addresses returns the addresses loaded by Enter plus any created since.
func (o *Orchestrator) Addresses() []domain.Address {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]domain.Address(nil), o.addresses...)
}

// SelectAddress chooses one of the loaded addresses.
func (o *Orchestrator) SelectAddress(addressID string) error {
	addressID = strings.TrimSpace(addressID)
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, addr := range o.addresses {
		if addr.ID == addressID {
			o.selectedID = addressID
			return nil
		}
	}
	return &ValidationError{Field: "addressId", Message: "Please select a delivery address"}
}

// SelectedAddress returns the current choice.
func (o *Orchestrator) SelectedAddress() (domain.Address, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, addr := range o.addresses {
		if addr.ID == o.selectedID {
			return addr, true
		}
	}
	return domain.Address{}, false
}

// CreateAddress validates the quick form, saves it remotely, and selects the result.
func (o *Orchestrator) CreateAddress(ctx context.Context, fields domain.AddressFields) (domain.Address, error) {
	fields = normaliseFields(fields)
	if err := ValidateAddress(fields); err != nil {
		return domain.Address{}, err
	}
	created, err := o.remote.CreateAddress(ctx, fields)
	if err != nil {
		return domain.Address{}, rejection(err, "Failed to save address")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if created.IsDefault {
		for i := range o.addresses {
			o.addresses[i].IsDefault = false
		}
	}
	o.addresses = append(o.addresses, created)
	o.selectedID = created.ID
	return created, nil
}

// CanSubmit reports whether an address is selected and the cart has items.
func (o *Orchestrator) CanSubmit() bool {
	if o.cart == nil || o.cart.IsEmpty() {
		return false
	}
	_, ok := o.SelectedAddress()
	return ok
}

// PendingKey returns the idempotency key held for the next retry, empty when none is pending.
func (o *Orchestrator) PendingKey() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pendingKey
}

// SubmitOrder sends the cart lines with the selected address. Prices are never sent.
// On failure the cart is kept. The idempotency key is kept only when the outcome is unknown
// (transport error, timeout, 5xx, request still in flight) and the request is unchanged; a
// definitive rejection or an edited cart or address gets a fresh key on the next attempt.
func (o *Orchestrator) SubmitOrder(ctx context.Context) (Result, error) {
	if o.cart == nil || o.cart.IsEmpty() {
		return Result{}, &PreconditionError{Reason: ReasonEmptyCart, Redirect: cartPath, Message: "cart is empty"}
	}
	lines := o.cart.OrderLines()

	o.mu.Lock()
	if o.submitting {
		o.mu.Unlock()
		return Result{}, errors.New("checkout: submission already in progress")
	}
	addressID := ""
	for _, addr := range o.addresses {
		if addr.ID == o.selectedID {
			addressID = addr.ID
			break
		}
	}
	if addressID == "" {
		o.mu.Unlock()
		return Result{}, &PreconditionError{Reason: ReasonNoAddress, Message: "Please select a delivery address"}
	}
	req := domain.PlaceOrderRequest{AddressID: addressID, Items: lines}
	if o.pendingKey == "" || !sameRequest(o.pendingReq, req) {
		o.pendingKey = o.newKey()
		o.pendingReq = req
	}
	key := o.pendingKey
	o.submitting = true
	o.mu.Unlock()

	order, err := o.remote.CreateOrder(ctx, req, key)

	o.mu.Lock()
	o.submitting = false
	if err == nil || !retrySameKey(err) {
		o.pendingKey = ""
		o.pendingReq = domain.PlaceOrderRequest{}
	}
	o.mu.Unlock()

	if err != nil {
		o.logger.Info("order submission rejected", zap.String("idempotency_key", key), zap.Error(err))
		return Result{}, rejection(err, "Failed to place order")
	}
	o.cart.Clear()
	return Result{Order: order, Redirect: ordersPath}, nil
}

type retryable interface {
	Retryable() bool
}

// retrySameKey reports whether the next attempt must reuse the key. Errors that do not describe
// a server answer (network failures, deadlines) keep it.
func retrySameKey(err error) bool {
	var r retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}

func sameRequest(a, b domain.PlaceOrderRequest) bool {
	if a.AddressID != b.AddressID || len(a.Items) != len(b.Items) {
		return false
	}
	for i := range a.Items {
		if a.Items[i].ProductID != b.Items[i].ProductID || !a.Items[i].QuantityKg.Equal(b.Items[i].QuantityKg) {
			return false
		}
	}
	return true
}

// ValidateAddress applies the quick-form checks.
func ValidateAddress(fields domain.AddressFields) error {
	required := []struct {
		field, value, message string
	}{
		{"fullName", fields.FullName, "Full name is required"},
		{"phone", fields.Phone, "Phone is required"},
		{"addressLine", fields.AddressLine, "Address line is required"},
		{"city", fields.City, "City is required"},
		{"state", fields.State, "State is required"},
		{"pincode", fields.Pincode, "Pincode is required"},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return &ValidationError{Field: r.field, Message: r.message}
		}
	}
	if !phonePattern.MatchString(strings.TrimSpace(fields.Phone)) {
		return &ValidationError{Field: "phone", Message: "Phone must be 10 digits"}
	}
	if !pincodePattern.MatchString(strings.TrimSpace(fields.Pincode)) {
		return &ValidationError{Field: "pincode", Message: "Pincode must be 6 digits"}
	}
	return nil
}

func normaliseFields(fields domain.AddressFields) domain.AddressFields {
	fields.FullName = strings.TrimSpace(fields.FullName)
	fields.Phone = strings.TrimSpace(fields.Phone)
	fields.AddressLine = strings.TrimSpace(fields.AddressLine)
	fields.City = strings.TrimSpace(fields.City)
	fields.State = strings.TrimSpace(fields.State)
	fields.Pincode = strings.TrimSpace(fields.Pincode)
	return fields
}

func preselect(addresses []domain.Address) string {
	for _, addr := range addresses {
		if addr.IsDefault {
			return addr.ID
		}
	}
	if len(addresses) > 0 {
		return addresses[0].ID
	}
	return ""
}

type publicMessager interface {
	PublicMessage() string
}

func rejection(err error, fallback string) *RemoteRejection {
	message := fallback
	var pm publicMessager
	if errors.As(err, &pm) {
		if msg := strings.TrimSpace(pm.PublicMessage()); msg != "" {
			message = msg
		}
	}
	return &RemoteRejection{Message: message, Err: err}
}
