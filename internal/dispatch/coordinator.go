package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/skm-mango/storefront/internal/domain"
)

const defaultOrderTimeout = 15 * time.Second

var (
	// ErrNothingSelected is returned by DispatchBatch when no order is selected.
	ErrNothingSelected = errors.New("dispatch: no orders selected")
	// ErrUnknownOrder is returned when an operation targets an order that was not loaded.
	ErrUnknownOrder = errors.New("dispatch: order not loaded")
)

// IncompleteSelectionError aborts a batch before any remote call when selected orders lack courier data.
type IncompleteSelectionError struct {
	Count    int
	OrderIDs []string
}

func (e *IncompleteSelectionError) Error() string {
	return fmt.Sprintf("dispatch: %d selected order(s) missing courier name or tracking id: %s", e.Count, strings.Join(e.OrderIDs, ", "))
}

// Remote is the order API used to ship orders.
type Remote interface {
	UpdateOrderCourier(ctx context.Context, orderID, courierName, trackingID string) (domain.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.Order, error)
}

// Stage names the remote call an outcome stopped at.
type Stage string

const (
	StageCourier Stage = "courier"
	StageStatus  Stage = "status"
	StageDone    Stage = "done"
)

// Outcome is the per-order result of a batch.
type Outcome struct {
	OrderID string
	Stage   Stage
	Err     error
	Order   domain.Order
}

// Success reports whether the order reached SHIPPED remotely.
func (o Outcome) Success() bool {
	return o.Err == nil
}

// Summary aggregates a batch run. Outcomes follow selection order.
type Summary struct {
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

// Selection is the staff-edited dispatch state for one CONFIRMED order.
type Selection struct {
	Order       domain.Order
	Selected    bool
	CourierName string
	TrackingID  string

	selectedSeq int
}

// Ready reports whether courier and tracking are both filled in.
func (s Selection) Ready() bool {
	return strings.TrimSpace(s.CourierName) != "" && strings.TrimSpace(s.TrackingID) != ""
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithOrderTimeout bounds the remote calls made for a single order.
func WithOrderTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.orderTimeout = timeout
		}
	}
}

// WithConcurrency processes up to n orders at once on a worker pool.
func WithConcurrency(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Coordinator turns a staff selection of CONFIRMED orders into courier and SHIPPED updates.
type Coordinator struct {
	remote       Remote
	orderTimeout time.Duration
	concurrency  int
	logger       *zap.Logger

	mu      sync.Mutex
	entries []*Selection
	index   map[string]*Selection
	seq     int
}

// NewCoordinator constructs a coordinator over remote.
func NewCoordinator(remote Remote, opts ...Option) *Coordinator {
	c := &Coordinator{
		remote:       remote,
		orderTimeout: defaultOrderTimeout,
		concurrency:  1,
		logger:       zap.NewNop(),
		index:        map[string]*Selection{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Load replaces the working set with the CONFIRMED orders in input order. It returns how many were kept.
func (c *Coordinator) Load(orders []domain.Order) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = c.entries[:0]
	c.index = make(map[string]*Selection, len(orders))
	c.seq = 0
	for _, order := range orders {
		if order.Status != domain.OrderStatusConfirmed {
			continue
		}
		id := strings.TrimSpace(order.ID)
		if id == "" {
			continue
		}
		if _, dup := c.index[id]; dup {
			continue
		}
		entry := &Selection{Order: order.Clone(), CourierName: order.CourierName, TrackingID: order.TrackingID}
		entry.Order.ID = id
		c.entries = append(c.entries, entry)
		c.index[id] = entry
	}
	return len(c.entries)
}

// Entries returns a copy of every loaded entry in load order.
func (c *Coordinator) Entries() []Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Selection, 0, len(c.entries))
	for _, entry := range c.entries {
		out = append(out, *entry)
	}
	return out
}

// Select toggles whether an order takes part in the next batch.
func (c *Coordinator) Select(orderID string, selected bool) error {
	return c.update(orderID, func(entry *Selection) {
		if selected && !entry.Selected {
			c.seq++
			entry.selectedSeq = c.seq
		}
		entry.Selected = selected
	})
}

// SetCourier sets the courier name typed for an order.
func (c *Coordinator) SetCourier(orderID, courierName string) error {
	return c.update(orderID, func(entry *Selection) {
		entry.CourierName = courierName
	})
}

// SetTracking sets the tracking id typed for an order.
func (c *Coordinator) SetTracking(orderID, trackingID string) error {
	return c.update(orderID, func(entry *Selection) {
		entry.TrackingID = trackingID
	})
}

// Selected returns the selected entries in the order they were selected.
func (c *Coordinator) Selected() []Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	selected := c.selectedLocked()
	out := make([]Selection, 0, len(selected))
	for _, entry := range selected {
		out = append(out, *entry)
	}
	return out
}

// ApplyQuickFill overwrites the courier name on selected entries only and returns how many were touched.
func (c *Coordinator) ApplyQuickFill(courierName string) int {
	courierName = strings.TrimSpace(courierName)
	if courierName == "" {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	touched := 0
	for _, entry := range c.entries {
		if entry.Selected {
			entry.CourierName = courierName
			touched++
		}
	}
	return touched
}

// DispatchBatch ships every selected order. Incomplete selections abort before any remote call.
// Successful orders are refreshed from the remote result and deselected; failed ones stay selected.
func (c *Coordinator) DispatchBatch(ctx context.Context) (Summary, error) {
	if c.remote == nil {
		return Summary{}, errors.New("dispatch: remote is not configured")
	}

	c.mu.Lock()
	selected := c.selectedLocked()
	if len(selected) == 0 {
		c.mu.Unlock()
		return Summary{}, ErrNothingSelected
	}
	var incomplete []string
	jobs := make([]Selection, 0, len(selected))
	for _, entry := range selected {
		if !entry.Ready() {
			incomplete = append(incomplete, entry.Order.ID)
			continue
		}
		jobs = append(jobs, *entry)
	}
	c.mu.Unlock()

	if len(incomplete) > 0 {
		return Summary{}, &IncompleteSelectionError{Count: len(incomplete), OrderIDs: incomplete}
	}

	outcomes, err := c.run(ctx, jobs)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Outcomes: outcomes}
	c.mu.Lock()
	for _, outcome := range outcomes {
		if !outcome.Success() {
			summary.Failed++
			continue
		}
		summary.Succeeded++
		if entry, ok := c.index[outcome.OrderID]; ok {
			entry.Order = outcome.Order.Clone()
			entry.Selected = false
			entry.selectedSeq = 0
		}
	}
	c.mu.Unlock()

	c.logger.Info("dispatch batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

func (c *Coordinator) run(ctx context.Context, jobs []Selection) ([]Outcome, error) {
	outcomes := make([]Outcome, len(jobs))
	if c.concurrency <= 1 || len(jobs) == 1 {
		for i, job := range jobs {
			outcomes[i] = c.dispatchOne(ctx, job)
		}
		return outcomes, nil
	}

	pool, err := ants.NewPool(c.concurrency)
	if err != nil {
		return nil, fmt.Errorf("dispatch: create worker pool: %w", err)
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			outcomes[i] = c.dispatchOne(ctx, job)
		}); err != nil {
			wg.Done()
			outcomes[i] = Outcome{OrderID: job.Order.ID, Stage: StageCourier, Err: fmt.Errorf("dispatch: submit: %w", err)}
		}
	}
	wg.Wait()
	return outcomes, nil
}

func (c *Coordinator) dispatchOne(parent context.Context, job Selection) Outcome {
	orderID := job.Order.ID
	outcome := Outcome{OrderID: orderID, Stage: StageCourier}
	if err := parent.Err(); err != nil {
		outcome.Err = err
		return outcome
	}

	ctx, cancel := context.WithTimeout(parent, c.orderTimeout)
	defer cancel()

	if _, err := c.remote.UpdateOrderCourier(ctx, orderID, strings.TrimSpace(job.CourierName), strings.TrimSpace(job.TrackingID)); err != nil {
		outcome.Err = err
		c.logger.Warn("courier update failed", zap.String("order_id", orderID), zap.Error(err))
		return outcome
	}

	outcome.Stage = StageStatus
	updated, err := c.remote.UpdateOrderStatus(ctx, orderID, domain.OrderStatusShipped)
	if err != nil {
		outcome.Err = err
		c.logger.Warn("status update failed", zap.String("order_id", orderID), zap.Error(err))
		return outcome
	}

	outcome.Stage = StageDone
	outcome.Order = updated
	return outcome
}

func (c *Coordinator) update(orderID string, fn func(*Selection)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.index[strings.TrimSpace(orderID)]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	fn(entry)
	return nil
}

func (c *Coordinator) selectedLocked() []*Selection {
	selected := make([]*Selection, 0, len(c.entries))
	for _, entry := range c.entries {
		if entry.Selected {
			selected = append(selected, entry)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].selectedSeq < selected[j].selectedSeq
	})
	return selected
}
