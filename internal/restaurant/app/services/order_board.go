package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

type BoardOptions struct {
	// BoardID names this replica in status notifications.
	BoardID string
	// PatchUpdates applies UPDATE events in place instead of reloading.
	PatchUpdates bool
	Timeout      time.Duration
}

type patchField int

const (
	statusField patchField = iota
	paymentField
)

type patchKey struct {
	orderID string
	field   patchField
}

// patch is one optimistic field change not yet known to be reflected by a
// load. Status and payment writes on the same order are tracked apart.
type patch struct {
	seq   uint64
	apply func(o *models.Order)
	// confirmedAt is the last load generation started before the store
	// acknowledged the write; zero while the write is in flight.
	confirmedAt uint64
	confirmed   bool
}

// OrderBoard mirrors orders joined with their items. It is refreshed by change
// events, by the poller and by its own optimistic writes.
//
// Every load takes a generation when it starts and is applied only when newer
// than the applied one. Optimistic patches survive loads started before their
// write was confirmed.
type OrderBoard struct {
	repo      core.IOrderRepo
	publisher core.IPublisher
	notifier  core.INotifier
	opts      BoardOptions
	mylog     logger.Logger

	mu      sync.RWMutex
	orders  []models.Order
	gen     uint64
	applied uint64
	seq     uint64
	patches map[patchKey]*patch

	watchers *broadcaster
}

func NewOrderBoard(
	repo core.IOrderRepo,
	publisher core.IPublisher,
	notifier core.INotifier,
	opts BoardOptions,
	mylog logger.Logger,
) *OrderBoard {
	return &OrderBoard{
		repo:      repo,
		publisher: publisher,
		notifier:  notifier,
		opts:      opts,
		mylog:     mylog,
		patches:   make(map[patchKey]*patch),
		watchers:  newBroadcaster(),
	}
}

// Load replaces the cached orders with the store's. On error the previous set
// is kept.
func (ob *OrderBoard) Load(ctx context.Context) error {
	log := ob.mylog.Action("orders_load")

	ob.mu.Lock()
	ob.gen++
	gen := ob.gen
	ob.mu.Unlock()

	ctx, cancel := withTimeout(ctx, ob.opts.Timeout)
	defer cancel()

	orders, err := ob.repo.LoadAll(ctx)
	if err != nil {
		log.Error("Failed to load orders", err)
		return fmt.Errorf("load orders: %w", err)
	}

	ob.mu.Lock()
	if gen <= ob.applied {
		ob.mu.Unlock()
		log.Debug("discarding stale orders load", "generation", gen)
		return nil
	}
	ob.applied = gen

	for key, p := range ob.patches {
		if p.confirmed && gen > p.confirmedAt {
			delete(ob.patches, key)
		}
	}
	for i := range orders {
		ob.applyPatchesLocked(&orders[i], false)
	}
	ob.orders = orders
	ob.mu.Unlock()

	ob.watchers.signal()
	log.Debug("orders loaded", "orders", len(orders), "generation", gen)
	return nil
}

// HandleEvent applies one change from the orders feed.
func (ob *OrderBoard) HandleEvent(ctx context.Context, ev dto.ChangeEvent) error {
	if ev.Type == dto.EventUpdate && ob.opts.PatchUpdates && ob.patchFromEvent(ev) {
		return nil
	}
	return ob.Load(ctx)
}

// patchFromEvent copies the mutable header fields of an UPDATE into the cached
// order. It reports false when the order is unknown and a load is needed.
func (ob *OrderBoard) patchFromEvent(ev dto.ChangeEvent) bool {
	id := ev.String("id")
	if id == "" {
		return false
	}

	ob.mu.Lock()
	idx := ob.indexLocked(id)
	if idx < 0 {
		ob.mu.Unlock()
		return false
	}

	o := ob.orders[idx].Clone()
	if ev.Has("status") {
		o.Status = models.ParseOrderStatus(ev.String("status"))
	}
	if ev.Has("customer_name") {
		o.CustomerName = ev.String("customer_name")
		if o.CustomerName == "" {
			o.CustomerName = models.DefaultCustomerName
		}
	}
	if ev.Has("payment_method") {
		o.PaymentMethod = ev.String("payment_method")
		if o.PaymentMethod == "" {
			o.PaymentMethod = models.DefaultPaymentMethod
		}
	}
	if ev.Has("payment_status") {
		o.PaymentStatus = models.ParsePaymentStatus(ev.String("payment_status"))
	}
	ob.applyPatchesLocked(&o, true)
	ob.orders[idx] = o

	// Confirmed row data: loads that started earlier must not undo it.
	ob.gen++
	ob.applied = ob.gen
	ob.mu.Unlock()

	ob.watchers.signal()
	ob.mylog.Action("order_patched").Debug("order patched from change event", "order_id", id)
	return true
}

// UpdateStatus moves an order one step forward. The cache is patched first and
// the store written second. Store failures are logged and reconciled with a
// reload; only unknown orders and illegal transitions are returned.
func (ob *OrderBoard) UpdateStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	log := ob.mylog.Action("status_update").With("order_id", orderID, "status", status.String())

	ob.mu.Lock()
	idx := ob.indexLocked(orderID)
	if idx < 0 {
		ob.mu.Unlock()
		return core.ErrOrderNotFound
	}
	prev := ob.orders[idx]
	if !prev.Status.CanTransitionTo(status) {
		ob.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", core.ErrInvalidTransition, prev.Status, status)
	}
	seq := ob.patchLocked(idx, statusField, func(o *models.Order) { o.Status = status })
	ob.mu.Unlock()
	ob.watchers.signal()

	wctx, cancel := withTimeout(ctx, ob.opts.Timeout)
	defer cancel()

	if err := ob.repo.SetStatus(wctx, orderID, status); err != nil {
		log.Error("Failed to update status, reloading", err)
		ob.dropPatch(patchKey{orderID, statusField}, seq)
		if err := ob.Load(ctx); err != nil {
			log.Error("Failed to reconcile after status update", err)
		}
		return nil
	}
	ob.confirmPatch(patchKey{orderID, statusField}, seq)

	announce(ctx, ob.publisher, ob.mylog, core.OrdersTable, dto.EventUpdate, map[string]any{
		"id":     orderID,
		"status": status.Wire(),
	})
	ob.notify(ctx, prev, status)
	log.Info("order status updated", "old_status", prev.Status.String())
	return nil
}

// Advance moves an order to the next status.
func (ob *OrderBoard) Advance(ctx context.Context, orderID string) (models.OrderStatus, error) {
	o, ok := ob.Order(orderID)
	if !ok {
		return 0, core.ErrOrderNotFound
	}
	next, ok := o.Status.Next()
	if !ok {
		return o.Status, fmt.Errorf("%w: %s is final", core.ErrInvalidTransition, o.Status)
	}
	return next, ob.UpdateStatus(ctx, orderID, next)
}

// UpdatePaymentStatus patches the payment status optimistically and writes it.
// It reports whether the store accepted the write.
func (ob *OrderBoard) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) bool {
	log := ob.mylog.Action("payment_update").With("order_id", orderID, "payment_status", status.Wire())

	ob.mu.Lock()
	seq := uint64(0)
	if idx := ob.indexLocked(orderID); idx >= 0 {
		seq = ob.patchLocked(idx, paymentField, func(o *models.Order) { o.PaymentStatus = status })
	}
	ob.mu.Unlock()
	if seq != 0 {
		ob.watchers.signal()
	}

	wctx, cancel := withTimeout(ctx, ob.opts.Timeout)
	defer cancel()

	if err := ob.repo.SetPaymentStatus(wctx, orderID, status); err != nil {
		log.Error("Failed to update payment status", err)
		if seq != 0 {
			ob.dropPatch(patchKey{orderID, paymentField}, seq)
			if err := ob.Load(ctx); err != nil {
				log.Error("Failed to reconcile after payment update", err)
			}
		}
		return false
	}
	if seq != 0 {
		ob.confirmPatch(patchKey{orderID, paymentField}, seq)
	}

	announce(ctx, ob.publisher, ob.mylog, core.OrdersTable, dto.EventUpdate, map[string]any{
		"id":             orderID,
		"payment_status": status.Wire(),
	})
	log.Info("payment status updated")
	return true
}

func (ob *OrderBoard) notify(ctx context.Context, prev models.Order, status models.OrderStatus) {
	if ob.notifier == nil {
		return
	}
	n := dto.StatusNotification{
		OrderID:   prev.ID,
		Table:     prev.TableID,
		OldStatus: prev.Status.String(),
		NewStatus: status.String(),
		ChangedBy: ob.opts.BoardID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := ob.notifier.Notify(ctx, n); err != nil {
		ob.mylog.Action("notification_failed").Error("Failed to publish status notification", err, "order_id", prev.ID)
	}
}

// patchLocked records a new optimistic change to one field of orders[idx] and
// applies it. Any earlier patch of the same field is replaced.
func (ob *OrderBoard) patchLocked(idx int, field patchField, apply func(o *models.Order)) uint64 {
	o := ob.orders[idx].Clone()
	ob.seq++
	ob.patches[patchKey{o.ID, field}] = &patch{seq: ob.seq, apply: apply}
	apply(&o)
	ob.orders[idx] = o
	return ob.seq
}

// applyPatchesLocked re-applies the patches recorded for o. With inFlight set
// only writes the store has not acknowledged yet are applied.
func (ob *OrderBoard) applyPatchesLocked(o *models.Order, inFlight bool) {
	for _, field := range []patchField{statusField, paymentField} {
		p, ok := ob.patches[patchKey{o.ID, field}]
		if !ok || (inFlight && p.confirmed) {
			continue
		}
		p.apply(o)
	}
}

func (ob *OrderBoard) confirmPatch(key patchKey, seq uint64) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if p, ok := ob.patches[key]; ok && p.seq == seq {
		p.confirmed = true
		p.confirmedAt = ob.gen
	}
}

func (ob *OrderBoard) dropPatch(key patchKey, seq uint64) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	if p, ok := ob.patches[key]; ok && p.seq == seq {
		delete(ob.patches, key)
	}
}

func (ob *OrderBoard) indexLocked(orderID string) int {
	for i := range ob.orders {
		if ob.orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

// Orders returns a copy of every cached order, newest first.
func (ob *OrderBoard) Orders() []models.Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	out := make([]models.Order, len(ob.orders))
	for i, o := range ob.orders {
		out[i] = o.Clone()
	}
	return out
}

func (ob *OrderBoard) Order(orderID string) (models.Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	if idx := ob.indexLocked(orderID); idx >= 0 {
		return ob.orders[idx].Clone(), true
	}
	return models.Order{}, false
}

// ByStatus filters the cached orders without touching the store. Cache order
// is preserved.
func (ob *OrderBoard) ByStatus(statuses ...models.OrderStatus) []models.Order {
	want := make(map[models.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}

	ob.mu.RLock()
	defer ob.mu.RUnlock()
	var out []models.Order
	for _, o := range ob.orders {
		if want[o.Status] {
			out = append(out, o.Clone())
		}
	}
	return out
}

// Watch ticks after every change to the cached orders until ctx is done.
func (ob *OrderBoard) Watch(ctx context.Context) <-chan struct{} {
	return ob.watchers.watch(ctx)
}
