package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

func testLogger(t *testing.T) logger.Logger {
	return logger.FromZap(zaptest.NewLogger(t))
}

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// fakeOrderRepo keeps orders newest first, like the store query does.
type fakeOrderRepo struct {
	mu     sync.Mutex
	orders []models.Order
	nextID int

	loadCalls   int
	createCalls int
	statusCalls int
	// loadHook runs after the snapshot is taken, outside the lock.
	loadHook func(call int)
	// statusHook and paymentHook run before a write, outside the lock.
	statusHook  func()
	paymentHook func()

	createErr  error
	statusErr  error
	paymentErr error
	deleteErr  error
}

func (r *fakeOrderRepo) LoadAll(ctx context.Context) ([]models.Order, error) {
	r.mu.Lock()
	r.loadCalls++
	call := r.loadCalls
	out := make([]models.Order, len(r.orders))
	for i, o := range r.orders {
		out[i] = o.Clone()
	}
	hook := r.loadHook
	r.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return out, nil
}

func (r *fakeOrderRepo) Create(ctx context.Context, order models.Order) (models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	if r.createErr != nil {
		return models.Order{}, r.createErr
	}
	r.nextID++
	order.ID = fmt.Sprintf("order-%d", r.nextID)
	order.Timestamp = time.Date(2024, 1, 1, 12, r.nextID, 0, 0, time.UTC)
	r.orders = append([]models.Order{order.Clone()}, r.orders...)
	return order, nil
}

func (r *fakeOrderRepo) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) error {
	r.mu.Lock()
	hook := r.statusHook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusCalls++
	if r.statusErr != nil {
		return r.statusErr
	}
	for i := range r.orders {
		if r.orders[i].ID == orderID {
			r.orders[i].Status = status
			return nil
		}
	}
	return core.ErrOrderNotFound
}

func (r *fakeOrderRepo) SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error {
	r.mu.Lock()
	hook := r.paymentHook
	r.mu.Unlock()
	if hook != nil {
		hook()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paymentErr != nil {
		return r.paymentErr
	}
	for i := range r.orders {
		if r.orders[i].ID == orderID {
			r.orders[i].PaymentStatus = status
			return nil
		}
	}
	return core.ErrOrderNotFound
}

func (r *fakeOrderRepo) Delete(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	for i := range r.orders {
		if r.orders[i].ID == orderID {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return core.ErrOrderNotFound
}

func (r *fakeOrderRepo) order(orderID string) models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == orderID {
			return o.Clone()
		}
	}
	return models.Order{}
}

func (r *fakeOrderRepo) status(orderID string) models.OrderStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ID == orderID {
			return o.Status
		}
	}
	return -1
}

type fakeMenuRepo struct {
	mu    sync.Mutex
	items []models.MenuItem
	seq   int

	insertManyCalls int
	err             error
}

func (r *fakeMenuRepo) List(context.Context) ([]models.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]models.MenuItem, len(r.items))
	copy(out, r.items)
	return out, nil
}

func (r *fakeMenuRepo) Count(context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	return len(r.items), nil
}

func (r *fakeMenuRepo) Insert(_ context.Context, item models.MenuItem) (models.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return models.MenuItem{}, r.err
	}
	r.seq++
	item.ID = fmt.Sprintf("dish-%d", r.seq)
	r.items = append([]models.MenuItem{item}, r.items...)
	return item, nil
}

func (r *fakeMenuRepo) InsertMany(_ context.Context, items []models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertManyCalls++
	if r.err != nil {
		return r.err
	}
	for _, item := range items {
		r.seq++
		item.ID = fmt.Sprintf("dish-%d", r.seq)
		r.items = append([]models.MenuItem{item}, r.items...)
	}
	return nil
}

func (r *fakeMenuRepo) Update(_ context.Context, item models.MenuItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.items {
		if r.items[i].ID == item.ID {
			r.items[i] = item
			return nil
		}
	}
	return core.ErrMenuItemNotFound
}

func (r *fakeMenuRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for i := range r.items {
		if r.items[i].ID == id {
			r.items = append(r.items[:i], r.items[i+1:]...)
			return nil
		}
	}
	return core.ErrMenuItemNotFound
}

type fakePublisher struct {
	mu     sync.Mutex
	events []dto.ChangeEvent
}

func (p *fakePublisher) Publish(_ context.Context, ev dto.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePublisher) published() []dto.ChangeEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]dto.ChangeEvent(nil), p.events...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []dto.StatusNotification
	closed bool
}

func (n *fakeNotifier) Notify(_ context.Context, s dto.StatusNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, s)
	return nil
}

func (n *fakeNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = true
	return nil
}

// fakeFeed hands out one channel per table; tests push events into them.
type fakeFeed struct {
	mu     sync.Mutex
	chans  map[string]chan dto.ChangeEvent
	closed bool
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{chans: make(map[string]chan dto.ChangeEvent)}
}

func (f *fakeFeed) Subscribe(ctx context.Context, table string) (<-chan dto.ChangeEvent, error) {
	in := make(chan dto.ChangeEvent)
	out := make(chan dto.ChangeEvent)
	f.mu.Lock()
	f.chans[table] = in
	f.mu.Unlock()

	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-in:
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeFeed) send(t *testing.T, table string, ev dto.ChangeEvent) {
	t.Helper()
	f.mu.Lock()
	ch := f.chans[table]
	f.mu.Unlock()
	if ch == nil {
		t.Fatalf("no subscription for %s", table)
	}
	select {
	case ch <- ev:
	case <-time.After(time.Second):
		t.Fatalf("feed consumer for %s is not reading", table)
	}
}

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeDB struct{ closed bool }

func (d *fakeDB) Close() error   { d.closed = true; return nil }
func (d *fakeDB) IsAlive() error { return nil }

func seedOrders() []models.Order {
	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return []models.Order{
		{
			ID: "o3", TableID: "3", Status: models.StatusReady, PaymentMethod: "UPI",
			PaymentStatus: models.PaymentPaid, TotalAmount: dec(118), Timestamp: ts.Add(3 * time.Minute),
			CustomerName: "Asha", Items: []models.OrderItem{{ID: "i3", Name: "Pista", Quantity: 1, Price: dec(100)}},
		},
		{
			ID: "o2", TableID: "2", Status: models.StatusCooking, PaymentMethod: "CASH",
			PaymentStatus: models.PaymentPending, TotalAmount: dec(271), Timestamp: ts.Add(2 * time.Minute),
			CustomerName: "Ravi", Items: []models.OrderItem{
				{ID: "i2a", Name: "Vennila", Quantity: 2, Price: dec(75)},
				{ID: "i2b", Name: "Chocolate", Quantity: 1, Price: dec(80)},
			},
		},
		{
			ID: "o1", TableID: "12", Status: models.StatusPending, PaymentMethod: "CASH",
			PaymentStatus: models.PaymentPending, TotalAmount: dec(18), Timestamp: ts.Add(time.Minute),
			CustomerName: "Guest", Items: []models.OrderItem{{ID: "i1", Name: "Parotta", Quantity: 1, Price: dec(15)}},
		},
		{
			ID: "o0", TableID: "1", Status: models.StatusPaid, PaymentMethod: "CASH",
			PaymentStatus: models.PaymentPaid, TotalAmount: dec(30), Timestamp: ts,
			CustomerName: "Meena", Items: []models.OrderItem{{ID: "i0", Name: "Soda Limes", Quantity: 1, Price: dec(25)}},
		},
	}
}

func newTestBoard(t *testing.T, repo *fakeOrderRepo) *OrderBoard {
	t.Helper()
	return NewOrderBoard(repo, nil, nil, BoardOptions{BoardID: "test-board", Timeout: time.Second}, testLogger(t))
}
