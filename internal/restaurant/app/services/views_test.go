package services

import (
	"context"
	"reflect"
	"testing"

	"moms-kitchen/internal/restaurant/domain/models"
)

func loadedBoard(t *testing.T) *OrderBoard {
	t.Helper()
	board := newTestBoard(t, &fakeOrderRepo{orders: seedOrders()})
	if err := board.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return board
}

func TestKitchenColumns(t *testing.T) {
	cols := loadedBoard(t).Kitchen()

	if len(cols) != 4 {
		t.Fatalf("columns = %d, want 4", len(cols))
	}
	want := map[models.OrderStatus][]string{
		models.StatusPending: {"o1"},
		models.StatusCooking: {"o2"},
		models.StatusReady:   {"o3"},
		models.StatusServed:  {},
	}
	for _, c := range cols {
		if got := ids(c.Orders); !reflect.DeepEqual(got, want[c.Status]) || c.Count != len(want[c.Status]) {
			t.Errorf("column %s = %v (count %d), want %v", c.Status, got, c.Count, want[c.Status])
		}
	}
}

func TestTracker(t *testing.T) {
	tracker := loadedBoard(t).Tracker()

	if len(tracker) != 3 {
		t.Fatalf("tracker = %d orders, want 3", len(tracker))
	}
	got := tracker[1]
	if got.OrderID != "o2" || got.Status != "cooking" || got.Items != "Vennila x2, Chocolate x1" || got.PaymentStatus != "PENDING" {
		t.Errorf("tracker[1] = %+v", got)
	}
	if parsed := models.ParseItemsSummary(got.Items); len(parsed) != 2 || parsed[0].Qty != 2 {
		t.Errorf("summary does not parse back: %+v", parsed)
	}
}

func TestBilling(t *testing.T) {
	board := loadedBoard(t)

	tests := []struct {
		name   string
		query  string
		filter string
		want   []string
	}{
		{"all", "", BillingAll, []string{"o3", "o2", "o1", "o0"}},
		{"paid", "", BillingPaid, []string{"o0"}},
		{"unpaid", "", BillingUnpaid, []string{"o3", "o2", "o1"}},
		{"by customer", "ravi", "", []string{"o2"}},
		{"by table", "12", "", []string{"o1"}},
		{"by id", "O3", "", []string{"o3"}},
		{"search and filter", "meena", BillingUnpaid, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ids(board.Billing(tt.query, tt.filter)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Billing = %v, want %v", got, tt.want)
			}
		})
	}
}
