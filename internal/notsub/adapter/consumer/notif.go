package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"moms-kitchen/internal/notsub/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"

	brokermessage "moms-kitchen/internal/restaurant/adapter/broker_message"
	restaurant "moms-kitchen/internal/restaurant/app/core"
)

const consumerTag = "notification-subscriber"

type Notification struct {
	cfg    *config.Config
	mylog  logger.Logger
	mb     core.IBroker
	ctx    context.Context
	appCtx context.Context
	out    io.Writer

	mu    sync.Mutex
	outMu sync.Mutex
	wg    sync.WaitGroup
}

func NewNotification(
	ctx context.Context,
	appCtx context.Context,
	cfg *config.Config,
	mylog logger.Logger,
) *Notification {
	return &Notification{
		ctx:    ctx,
		appCtx: appCtx,
		cfg:    cfg,
		mylog:  mylog,
		out:    os.Stdout,
	}
}

// Run connects to the broker and prints every status notification until the
// context is cancelled or the delivery channel closes.
func (n *Notification) Run() error {
	mylog := n.mylog.Action("run_notifications")

	n.mu.Lock()
	if n.mb == nil {
		if err := n.initializeRabbitMQ(); err != nil {
			n.mu.Unlock()
			mylog.Action("mb_connection_failed").Error("Failed to connect to message broker", err)
			return err
		}
		mylog.Action("mb_connected").Info("Successful message broker connection")
	}
	mb := n.mb
	n.mu.Unlock()

	queue, err := mb.BindQueue(restaurant.NotificationsQueue, restaurant.NotificationsExchange, "")
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", restaurant.NotificationsQueue, err)
	}
	deliveries, err := mb.ConsumeMessage(n.appCtx, queue, consumerTag)
	if err != nil {
		return fmt.Errorf("failed to consume message from rabbitmq: %w", err)
	}

	mylog.Info("consuming notifications", "queue", queue)
	n.work(deliveries)
	return nil
}

func (n *Notification) Stop(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.mylog.Action("graceful_shutdown_started").Info("Shutting down")

	n.wg.Wait()

	if n.mb != nil {
		if err := n.mb.Close(); err != nil {
			n.mylog.Action("mb_close_failed").Error("Failed to close message broker", err)
			return fmt.Errorf("mb close: %w", err)
		}
		n.mylog.Action("mb_closed").Info("Message broker closed")
	}

	n.mylog.Action("graceful_shutdown_completed").Info("Successfully shut down")
	return nil
}

func (n *Notification) work(deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-n.ctx.Done():
			n.mylog.Action("work_shutdown").Info("Stopping message consumption due to context cancel")
			return

		case msg, ok := <-deliveries:
			if !ok {
				return
			}
			n.wg.Add(1)
			go func(msg amqp.Delivery) {
				defer n.wg.Done()

				if err := n.processMsg(msg); err != nil {
					n.mylog.Action("process_msg").Error("Failed to process notification", err)
					if err := msg.Nack(false, false); err != nil {
						n.mylog.Action("nack").Error("Failed to nack", err)
					}
				}
			}(msg)
		}
	}
}

// processMsg prints the notification and acknowledges it. Malformed messages are
// returned as errors and dropped by the caller.
func (n *Notification) processMsg(msg amqp.Delivery) error {
	var note dto.StatusNotification
	if err := json.Unmarshal(msg.Body, &note); err != nil {
		return fmt.Errorf("%w: %v", core.ErrBadNotification, err)
	}
	if note.OrderID == "" {
		return fmt.Errorf("%w: missing order id", core.ErrBadNotification)
	}

	log := n.mylog.WithGroup("details").With("order_id", note.OrderID, "new_status", note.NewStatus)
	log.Action("notification_received").Info("Received status update for order")

	n.outMu.Lock()
	fmt.Fprintln(n.out, Message(note))
	n.outMu.Unlock()

	if err := msg.Ack(false); err != nil {
		n.mylog.Action("ack").Error("Failed to acknowledge message", err)
	}
	return nil
}

// Message renders a notification as a single human-readable line.
func Message(note dto.StatusNotification) string {
	changedBy := note.ChangedBy
	if changedBy == "" {
		changedBy = "unknown board"
	}
	msg := fmt.Sprintf("Notification for order %s: Status changed from '%s' to '%s' by %s.",
		note.OrderID, note.OldStatus, note.NewStatus, changedBy)
	if note.Table != "" {
		msg += fmt.Sprintf(" (table %s)", note.Table)
	}
	return msg
}

func (n *Notification) initializeRabbitMQ() error {
	mb, err := brokermessage.New(n.appCtx, n.cfg.RMQ, n.mylog)
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	n.mb = mb
	return nil
}
