package service

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"stx_nexus/internal/domain"

	"github.com/shopspring/decimal"
)

// OrderHook is notified with a copy of an order after a state change.
// Hooks run outside the registry lock.
type OrderHook func(order domain.Order)

// RegistryStats is a point-in-time view of the registry.
type RegistryStats struct {
	Pending int    `json:"pending"`
	History int    `json:"history"`
	NextSeq uint64 `json:"next_seq"`
}

// OrderRegistry owns the pending and history sets and the sequence counter.
// Every mutation (Create, Submit, Complete, Tick) holds the write lock, so
// an order is always in exactly one of the two sets.
type OrderRegistry struct {
	mu sync.RWMutex

	pending     []*domain.Order
	pendingByID map[string]*domain.Order
	history     []*domain.Order
	historyByID map[string]*domain.Order
	nextSeq     uint64
	factory     *OrderFactory
	feed        domain.PriceFeed
	onCreated   []OrderHook
	onCompleted []OrderHook
}

// NewOrderRegistry creates an empty registry whose first order will be STX109.
func NewOrderRegistry(factory *OrderFactory, feed domain.PriceFeed) *OrderRegistry {
	return &OrderRegistry{
		pendingByID: make(map[string]*domain.Order),
		historyByID: make(map[string]*domain.Order),
		nextSeq:     domain.FirstSequence,
		factory:     factory,
		feed:        feed,
	}
}

// OnCreated registers a hook for successfully created orders.
// Register hooks before the registry is shared between goroutines.
func (r *OrderRegistry) OnCreated(h OrderHook) {
	r.onCreated = append(r.onCreated, h)
}

// OnCompleted registers a hook for completed orders.
func (r *OrderRegistry) OnCompleted(h OrderHook) {
	r.onCompleted = append(r.onCompleted, h)
}

// Create snapshots the current price, builds an order with the next sequence
// number and submits it. The counter only advances on success.
func (r *OrderRegistry) Create(req domain.OrderRequest) (domain.Order, error) {
	r.mu.Lock()

	price := decimal.Zero
	if r.feed != nil {
		if p, ok := r.feed.CurrentPrice(); ok {
			price = p
		}
	}

	order, next, err := r.factory.Create(req, price, r.nextSeq)
	if err != nil {
		r.mu.Unlock()
		return domain.Order{}, err
	}
	if err := r.submitLocked(order); err != nil {
		r.mu.Unlock()
		return domain.Order{}, err
	}
	r.nextSeq = next
	created := *order
	r.mu.Unlock()

	slog.Info("Order created",
		slog.String("id", created.ID),
		slog.String("network", created.Network),
		slog.String("price", created.PriceAtCreation.String()),
		slog.String("total", created.TotalToTransfer.StringFixed(2)),
	)
	for _, h := range r.onCreated {
		h(created)
	}
	return created, nil
}

// Submit inserts an externally built order into the pending set.
// An "STX<n>" id at or past the counter moves the counter to n+1.
func (r *OrderRegistry) Submit(order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.submitLocked(order)
}

// submitLocked must be called with the write lock held
func (r *OrderRegistry) submitLocked(order *domain.Order) error {
	if _, ok := r.pendingByID[order.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, order.ID)
	}
	if _, ok := r.historyByID[order.ID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, order.ID)
	}

	stored := *order
	stored.Status = domain.OrderStatusPending
	r.pending = append(r.pending, &stored)
	r.pendingByID[stored.ID] = &stored

	// Keep the counter ahead of every id it could otherwise collide with
	if seq, ok := domain.ParseOrderID(stored.ID); ok && seq >= r.nextSeq && seq < math.MaxUint64 {
		r.nextSeq = seq + 1
	}
	return nil
}

// Complete moves a pending order into history. Completing an unknown or
// already completed id fails with ErrNotFound.
func (r *OrderRegistry) Complete(id string) (domain.Order, error) {
	r.mu.Lock()

	order, ok := r.pendingByID[id]
	if !ok {
		r.mu.Unlock()
		return domain.Order{}, fmt.Errorf("%w: %s is not pending", domain.ErrNotFound, id)
	}

	for i, p := range r.pending {
		if p.ID == id {
			r.pending = append(r.pending[:i], r.pending[i+1:]...)
			break
		}
	}
	delete(r.pendingByID, id)

	order.Status = domain.OrderStatusCompleted
	order.CompletedAt = r.factory.clock.Now()
	r.history = append(r.history, order)
	r.historyByID[id] = order
	completed := *order
	r.mu.Unlock()

	slog.Info("Order completed",
		slog.String("id", completed.ID),
		slog.Int("remaining_seconds", completed.RemainingSeconds),
	)
	for _, h := range r.onCompleted {
		h(completed)
	}
	return completed, nil
}

// Tick decrements the countdown of every pending order by one second,
// floored at zero. It returns the ids that reached zero on this tick.
func (r *OrderRegistry) Tick() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []string
	for _, o := range r.pending {
		if o.RemainingSeconds <= 0 {
			o.RemainingSeconds = 0
			continue
		}
		o.RemainingSeconds--
		if o.RemainingSeconds == 0 {
			expired = append(expired, o.ID)
		}
	}
	return expired
}

// Get returns a copy of an order from either set.
func (r *OrderRegistry) Get(id string) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if o, ok := r.pendingByID[id]; ok {
		return *o, nil
	}
	if o, ok := r.historyByID[id]; ok {
		return *o, nil
	}
	return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// ListPending returns pending orders in creation order.
func (r *OrderRegistry) ListPending() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return snapshot(r.pending)
}

// ListHistory returns completed orders in completion order.
func (r *OrderRegistry) ListHistory() []domain.Order {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return snapshot(r.history)
}

// Stats returns set sizes and the next sequence number.
func (r *OrderRegistry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		Pending: len(r.pending),
		History: len(r.history),
		NextSeq: r.nextSeq,
	}
}

func snapshot(orders []*domain.Order) []domain.Order {
	result := make([]domain.Order, len(orders))
	for i, o := range orders {
		result[i] = *o
	}
	return result
}
