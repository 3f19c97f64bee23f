package services

import (
	"context"
	"testing"
	"time"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSessionLifecycle(t *testing.T) {
	orders := &fakeOrderRepo{orders: seedOrders()}
	menu := &fakeMenuRepo{items: testMenu()}
	feed := newFakeFeed()
	notifier := &fakeNotifier{}
	db := &fakeDB{}

	s := NewSession(SessionDeps{
		DB:        db,
		MenuRepo:  menu,
		OrderRepo: orders,
		Feed:      feed,
		Notifier:  notifier,
	}, SessionOptions{
		Board:        BoardOptions{BoardID: "b1", Timeout: time.Second},
		PollInterval: time.Hour,
	}, testLogger(t))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(s.Orders.Orders()) != 4 || len(s.Menu.Items()) != 4 {
		t.Fatalf("initial load: orders=%d menu=%d", len(s.Orders.Orders()), len(s.Menu.Items()))
	}

	// Another replica adds an order; the push reloads it in.
	if _, err := orders.Create(context.Background(), models.Order{TableID: "9", Status: models.StatusPending}); err != nil {
		t.Fatal(err)
	}
	feed.send(t, core.OrdersTable, dto.ChangeEvent{Table: core.OrdersTable, Type: dto.EventInsert})
	waitFor(t, "pushed order", func() bool { return len(s.Orders.Orders()) == 5 })

	menu.mu.Lock()
	menu.items = menu.items[1:]
	menu.mu.Unlock()
	feed.send(t, core.MenuTable, dto.ChangeEvent{Table: core.MenuTable, Type: dto.EventDelete})
	waitFor(t, "menu reload", func() bool { return len(s.Menu.Items()) == 3 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if !feed.closed || !db.closed || !notifier.closed {
		t.Errorf("resources not released: feed=%v db=%v notifier=%v", feed.closed, db.closed, notifier.closed)
	}
	if err := s.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestSessionPolls(t *testing.T) {
	orders := &fakeOrderRepo{orders: seedOrders()}
	menu := &fakeMenuRepo{}

	s := NewSession(SessionDeps{
		MenuRepo:  menu,
		OrderRepo: orders,
	}, SessionOptions{
		PollInterval: core.MinPollInterval,
		PollMenu:     true,
	}, testLogger(t))

	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	// Nothing announces this change; only the poller can pick it up.
	if err := orders.Delete(context.Background(), "o0"); err != nil {
		t.Fatal(err)
	}
	menu.mu.Lock()
	menu.items = testMenu()
	menu.mu.Unlock()

	deadline := time.Now().Add(3 * core.MinPollInterval)
	for time.Now().Before(deadline) {
		if len(s.Orders.Orders()) == 3 && len(s.Menu.Items()) == 4 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("poll did not refresh: orders=%d menu=%d", len(s.Orders.Orders()), len(s.Menu.Items()))
}

func TestSessionClampsPollInterval(t *testing.T) {
	s := NewSession(SessionDeps{OrderRepo: &fakeOrderRepo{}, MenuRepo: &fakeMenuRepo{}}, SessionOptions{PollInterval: time.Millisecond}, testLogger(t))
	if s.opts.PollInterval != core.MinPollInterval {
		t.Errorf("interval = %s, want %s", s.opts.PollInterval, core.MinPollInterval)
	}
	s = NewSession(SessionDeps{OrderRepo: &fakeOrderRepo{}, MenuRepo: &fakeMenuRepo{}}, SessionOptions{PollInterval: time.Hour}, testLogger(t))
	if s.opts.PollInterval != core.MaxPollInterval {
		t.Errorf("interval = %s, want %s", s.opts.PollInterval, core.MaxPollInterval)
	}
}
