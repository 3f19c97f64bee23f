package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
)

func ids(orders []models.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ID)
	}
	return out
}

func TestLoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)

	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := board.Orders()
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	second := board.Orders()

	if !reflect.DeepEqual(first, second) {
		t.Errorf("second load changed the cache:\n%+v\n%+v", first, second)
	}
	if got, want := ids(first), []string{"o3", "o2", "o1", "o0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestByStatus(t *testing.T) {
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name     string
		statuses []models.OrderStatus
		want     []string
	}{
		{"pending and cooking", []models.OrderStatus{models.StatusPending, models.StatusCooking}, []string{"o2", "o1"}},
		{"paid", []models.OrderStatus{models.StatusPaid}, []string{"o0"}},
		{"served", []models.OrderStatus{models.StatusServed}, []string{}},
		{"none", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(board.ByStatus(tt.statuses...))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ByStatus = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestByStatusReturnsCopies(t *testing.T) {
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := board.ByStatus(models.StatusCooking)
	got[0].Items[0].Name = "changed"

	o, _ := board.Order("o2")
	if o.Items[0].Name != "Vennila" {
		t.Errorf("cache was mutated through ByStatus result: %q", o.Items[0].Name)
	}
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	pub := &fakePublisher{}
	notifier := &fakeNotifier{}
	board := NewOrderBoard(repo, pub, notifier, BoardOptions{BoardID: "kitchen-1"}, testLogger(t))
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := board.UpdateStatus(ctx, "o1", models.StatusCooking); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	o, _ := board.Order("o1")
	if o.Status != models.StatusCooking {
		t.Errorf("cached status = %s, want cooking", o.Status)
	}
	if got := repo.status("o1"); got != models.StatusCooking {
		t.Errorf("stored status = %s, want cooking", got)
	}

	events := pub.published()
	if len(events) != 1 || events[0].Type != dto.EventUpdate || events[0].String("status") != "COOKING" {
		t.Errorf("published = %+v, want one UPDATE with status COOKING", events)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.sent))
	}
	n := notifier.sent[0]
	if n.OldStatus != "pending" || n.NewStatus != "cooking" || n.ChangedBy != "kitchen-1" || n.Table != "12" {
		t.Errorf("notification = %+v", n)
	}
}

func TestUpdateStatusRejectedBeforeStore(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name   string
		id     string
		status models.OrderStatus
		want   error
	}{
		{"unknown order", "missing", models.StatusCooking, core.ErrOrderNotFound},
		{"skip a step", "o1", models.StatusReady, core.ErrInvalidTransition},
		{"backwards", "o2", models.StatusPending, core.ErrInvalidTransition},
		{"same status", "o2", models.StatusCooking, core.ErrInvalidTransition},
		{"after paid", "o0", models.StatusPaid, core.ErrInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := board.UpdateStatus(ctx, tt.id, tt.status)
			if !errors.Is(err, tt.want) {
				t.Errorf("UpdateStatus err = %v, want %v", err, tt.want)
			}
		})
	}
	if repo.statusCalls != 0 {
		t.Errorf("store was called %d times", repo.statusCalls)
	}
}

func TestUpdateStatusFailureReconciles(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders(), statusErr: errors.New("connection reset")}
	pub := &fakePublisher{}
	board := NewOrderBoard(repo, pub, nil, BoardOptions{}, testLogger(t))
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	loads := repo.loadCalls

	if err := board.UpdateStatus(ctx, "o2", models.StatusReady); err != nil {
		t.Fatalf("store failure must not surface, got %v", err)
	}

	o, _ := board.Order("o2")
	if o.Status != models.StatusCooking {
		t.Errorf("cached status = %s, want store state cooking", o.Status)
	}
	if repo.loadCalls != loads+1 {
		t.Errorf("reconciling loads = %d, want 1", repo.loadCalls-loads)
	}
	if len(pub.published()) != 0 {
		t.Errorf("failed write was announced")
	}

	// A later load must not resurrect the dropped patch.
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o, _ := board.Order("o2"); o.Status != models.StatusCooking {
		t.Errorf("status after reload = %s, want cooking", o.Status)
	}
}

func TestAdvance(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	next, err := board.Advance(ctx, "o3")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if next != models.StatusServed {
		t.Errorf("next = %s, want served", next)
	}
	if _, err := board.Advance(ctx, "o0"); !errors.Is(err, core.ErrInvalidTransition) {
		t.Errorf("advancing a paid order: err = %v", err)
	}
	if _, err := board.Advance(ctx, "nope"); !errors.Is(err, core.ErrOrderNotFound) {
		t.Errorf("advancing unknown order: err = %v", err)
	}
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)

	started := make(chan struct{})
	release := make(chan struct{})
	repo.loadHook = func(call int) {
		if call == 1 {
			close(started)
			<-release
		}
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := board.Load(ctx); err != nil {
			t.Errorf("slow Load: %v", err)
		}
	}()
	<-started

	// The store changes and a newer load completes first.
	if err := repo.Delete(ctx, "o3"); err != nil {
		t.Fatal(err)
	}
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	close(release)
	wg.Wait()

	if _, ok := board.Order("o3"); ok {
		t.Errorf("older load overwrote a newer one")
	}
	if got := len(board.Orders()); got != 3 {
		t.Errorf("orders = %d, want 3", got)
	}
}

func TestOptimisticPatchSurvivesOlderLoad(t *testing.T) {
	ctx := context.Background()
	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	repo.loadHook = func(call int) {
		if call == 2 {
			close(started)
			<-release
		}
	}

	// A poll reads the store before the status write lands.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := board.Load(ctx); err != nil {
			t.Errorf("poll Load: %v", err)
		}
	}()
	<-started

	if err := board.UpdateStatus(ctx, "o1", models.StatusCooking); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	close(release)
	wg.Wait()

	if o, _ := board.Order("o1"); o.Status != models.StatusCooking {
		t.Errorf("status after stale poll = %s, want cooking", o.Status)
	}

	repo.loadHook = nil
	if err := board.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if o, _ := board.Order("o1"); o.Status != models.StatusCooking {
		t.Errorf("status after fresh load = %s, want cooking", o.Status)
	}
	board.mu.RLock()
	left := len(board.patches)
	board.mu.RUnlock()
	if left != 0 {
		t.Errorf("patches left after confirming load = %d", left)
	}
}

func TestHandleEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("insert reloads", func(t *testing.T) {
		repo := &fakeOrderRepo{orders: seedOrders()}
		board := newTestBoard(t, repo)
		if err := board.HandleEvent(ctx, dto.ChangeEvent{Table: core.OrdersTable, Type: dto.EventInsert}); err != nil {
			t.Fatal(err)
		}
		if repo.loadCalls != 1 || len(board.Orders()) != 4 {
			t.Errorf("loads = %d, orders = %d", repo.loadCalls, len(board.Orders()))
		}
	})

	t.Run("update reloads by default", func(t *testing.T) {
		repo := &fakeOrderRepo{orders: seedOrders()}
		board := newTestBoard(t, repo)
		ev := dto.ChangeEvent{Table: core.OrdersTable, Type: dto.EventUpdate, Record: map[string]any{"id": "o1", "status": "READY"}}
		if err := board.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
		if repo.loadCalls != 1 {
			t.Errorf("loads = %d, want 1", repo.loadCalls)
		}
		if o, _ := board.Order("o1"); o.Status != models.StatusPending {
			t.Errorf("status = %s, want store value pending", o.Status)
		}
	})

	t.Run("update patches in place", func(t *testing.T) {
		repo := &fakeOrderRepo{orders: seedOrders()}
		board := NewOrderBoard(repo, nil, nil, BoardOptions{PatchUpdates: true}, testLogger(t))
		if err := board.Load(ctx); err != nil {
			t.Fatal(err)
		}
		ev := dto.ChangeEvent{Table: core.OrdersTable, Type: dto.EventUpdate, Record: map[string]any{
			"id": "o1", "status": "READY", "customer_name": nil, "payment_status": "PAID",
		}}
		if err := board.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
		if repo.loadCalls != 1 {
			t.Errorf("loads = %d, want only the initial one", repo.loadCalls)
		}
		o, _ := board.Order("o1")
		if o.Status != models.StatusReady || o.PaymentStatus != models.PaymentPaid || o.CustomerName != models.DefaultCustomerName {
			t.Errorf("patched order = %+v", o)
		}
		if len(o.Items) != 1 {
			t.Errorf("items lost by patch: %+v", o.Items)
		}
	})

	t.Run("update for unknown order reloads", func(t *testing.T) {
		repo := &fakeOrderRepo{orders: seedOrders()}
		board := NewOrderBoard(repo, nil, nil, BoardOptions{PatchUpdates: true}, testLogger(t))
		ev := dto.ChangeEvent{Table: core.OrdersTable, Type: dto.EventUpdate, Record: map[string]any{"id": "o1"}}
		if err := board.HandleEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
		if repo.loadCalls != 1 {
			t.Errorf("loads = %d, want 1", repo.loadCalls)
		}
	})
}

func TestUpdatePaymentStatus(t *testing.T) {
	ctx := context.Background()

	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	if err := board.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if !board.UpdatePaymentStatus(ctx, "o1", models.PaymentPaid) {
		t.Fatal("UpdatePaymentStatus = false")
	}
	if o, _ := board.Order("o1"); o.PaymentStatus != models.PaymentPaid {
		t.Errorf("payment = %s, want PAID", o.PaymentStatus)
	}

	repo.paymentErr = errors.New("timeout")
	if board.UpdatePaymentStatus(ctx, "o2", models.PaymentPaid) {
		t.Fatal("UpdatePaymentStatus = true on store failure")
	}
	if o, _ := board.Order("o2"); o.PaymentStatus != models.PaymentPending {
		t.Errorf("payment = %s, want reconciled PENDING", o.PaymentStatus)
	}
}

// A failed write on one field must not leave its optimistic value behind when
// a write on the other field of the same order lands while it is in flight.
func TestFailedWriteKeepsOtherFieldPatch(t *testing.T) {
	tests := []struct {
		name        string
		failStatus  bool
		wantStatus  models.OrderStatus
		wantPayment models.PaymentStatus
	}{
		{"status write fails", true, models.StatusCooking, models.PaymentPaid},
		{"payment write fails", false, models.StatusReady, models.PaymentPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := &fakeOrderRepo{orders: seedOrders()}
			board := newTestBoard(t, repo)
			if err := board.Load(ctx); err != nil {
				t.Fatalf("Load: %v", err)
			}

			started := make(chan struct{})
			release := make(chan struct{})
			block := func() {
				close(started)
				<-release
			}
			if tt.failStatus {
				repo.statusHook = block
				repo.statusErr = errors.New("connection reset")
			} else {
				repo.paymentHook = block
				repo.paymentErr = errors.New("connection reset")
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				if tt.failStatus {
					if err := board.UpdateStatus(ctx, "o2", models.StatusReady); err != nil {
						t.Errorf("UpdateStatus: %v", err)
					}
					return
				}
				if board.UpdatePaymentStatus(ctx, "o2", models.PaymentPaid) {
					t.Errorf("UpdatePaymentStatus = true on store failure")
				}
			}()
			<-started

			if tt.failStatus {
				if !board.UpdatePaymentStatus(ctx, "o2", models.PaymentPaid) {
					t.Fatal("UpdatePaymentStatus = false")
				}
			} else if err := board.UpdateStatus(ctx, "o2", models.StatusReady); err != nil {
				t.Fatalf("UpdateStatus: %v", err)
			}
			close(release)
			wg.Wait()

			stored := repo.order("o2")
			if stored.Status != tt.wantStatus || stored.PaymentStatus != tt.wantPayment {
				t.Fatalf("store = %s/%s, want %s/%s", stored.Status, stored.PaymentStatus, tt.wantStatus, tt.wantPayment)
			}
			o, _ := board.Order("o2")
			if o.Status != tt.wantStatus {
				t.Errorf("cached status = %s, want %s", o.Status, tt.wantStatus)
			}
			if o.PaymentStatus != tt.wantPayment {
				t.Errorf("cached payment = %s, want %s", o.PaymentStatus, tt.wantPayment)
			}
		})
	}
}

func TestWatchSignalsLoads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := &fakeOrderRepo{orders: seedOrders()}
	board := newTestBoard(t, repo)
	ticks := board.Watch(ctx)

	if err := board.Load(ctx); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("no tick after Load")
	}
}
