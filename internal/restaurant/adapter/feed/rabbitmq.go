package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	brokermessage "moms-kitchen/internal/restaurant/adapter/broker_message"
	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/logger"
)

// RabbitMQ relays change events through the restaurant_changes topic exchange
// with routing key changes.<table>. Every replica binds its own exclusive queue.
type RabbitMQ struct {
	mb    *brokermessage.RabbitMQ
	mylog logger.Logger
}

func NewRabbitMQ(mb *brokermessage.RabbitMQ, mylog logger.Logger) *RabbitMQ {
	return &RabbitMQ{
		mb:    mb,
		mylog: mylog,
	}
}

func RoutingKey(table string) string {
	return "changes." + table
}

func (r *RabbitMQ) Publish(ctx context.Context, event dto.ChangeEvent) error {
	return r.mb.PushMessage(ctx, core.ChangesExchange, RoutingKey(event.Table), event)
}

func (r *RabbitMQ) Subscribe(ctx context.Context, table string) (<-chan dto.ChangeEvent, error) {
	deliveries, err := r.consume(ctx, table)
	if err != nil {
		return nil, err
	}
	out := make(chan dto.ChangeEvent)
	go r.work(ctx, table, deliveries, out)
	return out, nil
}

func (r *RabbitMQ) consume(ctx context.Context, table string) (<-chan amqp.Delivery, error) {
	queue, err := r.mb.BindQueue("", core.ChangesExchange, RoutingKey(table))
	if err != nil {
		return nil, err
	}
	return r.mb.ConsumeMessage(ctx, queue, "board-"+table+"-"+uuid.NewString())
}

// work forwards deliveries and re-consumes after the broker connection drops.
func (r *RabbitMQ) work(ctx context.Context, table string, deliveries <-chan amqp.Delivery, out chan<- dto.ChangeEvent) {
	defer close(out)
	log := r.mylog.Action("rabbitmq_feed").With("table", table)

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-deliveries:
			if !ok {
				deliveries = r.resubscribe(ctx, table)
				if deliveries == nil {
					return
				}
				continue
			}

			ev, err := decodeEvent(msg.Body, table)
			if err != nil {
				log.Warn("dropping change event", "error", err.Error())
				if err := msg.Nack(false, false); err != nil {
					log.Error("Failed to nack", err)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				log.Error("Failed to ack", err)
			}
			if !deliver(ctx, out, ev) {
				return
			}
		}
	}
}

func (r *RabbitMQ) resubscribe(ctx context.Context, table string) <-chan amqp.Delivery {
	log := r.mylog.Action("rabbitmq_feed_resubscribe").With("table", table)
	t := time.NewTicker(core.FeedReconnInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			deliveries, err := r.consume(ctx, table)
			if err == nil {
				log.Info("change feed resubscribed")
				return deliveries
			}
			log.Debug("broker still unavailable", "error", err.Error())
		}
	}
}

func (r *RabbitMQ) Close() error {
	return r.mb.Close()
}
