package consumer

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap/zaptest"

	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"
)

type ack struct {
	mu     sync.Mutex
	acked  []uint64
	nacked []uint64
}

func (a *ack) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acked = append(a.acked, tag)
	return nil
}

func (a *ack) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacked = append(a.nacked, tag)
	return nil
}

func (a *ack) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

type fakeBroker struct {
	deliveries chan amqp.Delivery
	bound      []string
	closed     bool
}

func (b *fakeBroker) BindQueue(name, exchange, key string) (string, error) {
	b.bound = append(b.bound, name+"@"+exchange)
	return name, nil
}

func (b *fakeBroker) ConsumeMessage(ctx context.Context, queue, consumerTag string) (<-chan amqp.Delivery, error) {
	return b.deliveries, nil
}

func (b *fakeBroker) Close() error {
	b.closed = true
	return nil
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		note dto.StatusNotification
		want string
	}{
		{
			"full",
			dto.StatusNotification{OrderID: "o1", Table: "12", OldStatus: "cooking", NewStatus: "ready", ChangedBy: "kitchen-1"},
			"Notification for order o1: Status changed from 'cooking' to 'ready' by kitchen-1. (table 12)",
		},
		{
			"no board or table",
			dto.StatusNotification{OrderID: "o2", OldStatus: "pending", NewStatus: "cooking"},
			"Notification for order o2: Status changed from 'pending' to 'cooking' by unknown board.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Message(tt.note); got != tt.want {
				t.Errorf("Message = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunPrintsAndAcks(t *testing.T) {
	mylog := logger.FromZap(zaptest.NewLogger(t))
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 3)}
	acks := &ack{}
	out := &bytes.Buffer{}

	n := NewNotification(context.Background(), context.Background(), &config.Config{}, mylog)
	n.mb = broker
	n.out = out

	body, _ := json.Marshal(dto.StatusNotification{OrderID: "o7", OldStatus: "ready", NewStatus: "served", ChangedBy: "b1"})
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 1, Body: body}
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 2, Body: []byte("{not json")}
	broker.deliveries <- amqp.Delivery{Acknowledger: acks, DeliveryTag: 3, Body: []byte(`{"new_status":"ready"}`)}
	close(broker.deliveries)

	if err := n.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := n.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(broker.bound) != 1 || broker.bound[0] != "order_update@notifications" {
		t.Errorf("bound = %v", broker.bound)
	}
	if !broker.closed {
		t.Error("broker not closed")
	}
	if got := strings.TrimSpace(out.String()); got != "Notification for order o7: Status changed from 'ready' to 'served' by b1." {
		t.Errorf("output = %q", got)
	}
	if len(acks.acked) != 1 || acks.acked[0] != 1 {
		t.Errorf("acked = %v", acks.acked)
	}
	if len(acks.nacked) != 2 {
		t.Errorf("nacked = %v", acks.nacked)
	}
}
