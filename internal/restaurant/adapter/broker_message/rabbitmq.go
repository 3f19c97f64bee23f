package brokermessage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/config"
	xerrors "moms-kitchen/internal/xpkg/errors"
	"moms-kitchen/internal/xpkg/logger"
)

type RabbitMQ struct {
	ctx          context.Context
	cfg          config.RabbitMQ
	conn         *amqp.Connection
	ch           *amqp.Channel
	mylog        logger.Logger
	reconnecting bool
	mu           *sync.Mutex
}

// New connects to rabbitmq and declares the exchanges used by the board.
func New(
	ctx context.Context,
	rabbitmqCfg config.RabbitMQ,
	mylog logger.Logger,
) (*RabbitMQ, error) {
	r := &RabbitMQ{
		ctx:   ctx,
		cfg:   rabbitmqCfg,
		mylog: mylog,
		mu:    &sync.Mutex{},
	}
	if err := r.connect(); err != nil {
		return nil, fmt.Errorf("%w: %v", xerrors.ErrRMQConn, err)
	}
	return r, nil
}

// connect to rabbitmq
func (r *RabbitMQ) connect() error {
	conn, err := amqp.Dial(r.cfg.URL())
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(core.ChangesExchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare %s: %w", core.ChangesExchange, err)
	}
	if err := ch.ExchangeDeclare(core.NotificationsExchange, "fanout", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("declare %s: %w", core.NotificationsExchange, err)
	}

	r.mu.Lock()
	r.conn = conn
	r.ch = ch
	r.mu.Unlock()
	return nil
}

func (r *RabbitMQ) reconnect(ctx context.Context) {
	r.mu.Lock()
	if r.reconnecting {
		r.mu.Unlock()
		return
	}
	r.reconnecting = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.reconnecting = false
		r.mu.Unlock()
	}()

	t := time.NewTicker(core.FeedReconnInterval)
	defer t.Stop()
	log := r.mylog.Action("rabbitmq_reconnecting")

	for {
		select {
		case <-t.C:
			if err := r.connect(); err == nil {
				log.Info("rabbitmq reconnected")
				return
			}
			log.Info("rabbitmq failed to reconnect")

		case <-ctx.Done():
			return
		}
	}
}

func (r *RabbitMQ) IsAlive() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conn == nil || r.conn.IsClosed() {
		return xerrors.ErrMBConn
	}
	if r.ch == nil || r.ch.IsClosed() {
		return xerrors.ErrMBCh
	}
	return nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		if err := r.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %v", err)
		}
	}
	if r.conn != nil && !r.conn.IsClosed() {
		if err := r.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %v", err)
		}
	}
	return nil
}

func (r *RabbitMQ) channel() (*amqp.Channel, error) {
	if err := r.IsAlive(); err != nil {
		go r.reconnect(r.ctx)
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch, nil
}

// PushMessage publishes a persistent JSON message.
func (r *RabbitMQ) PushMessage(ctx context.Context, exchange, routingKey string, message any) error {
	ch, err := r.channel()
	if err != nil {
		r.mylog.Action("push_message").Error("connection between rabbitmq is closed", err)
		return fmt.Errorf("rabbitmq: connection lost: %w", err)
	}

	body, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

// Notify publishes a status change on the notifications exchange.
func (r *RabbitMQ) Notify(ctx context.Context, n dto.StatusNotification) error {
	return r.PushMessage(ctx, core.NotificationsExchange, "", n)
}

// BindQueue declares queue (server-named and exclusive when name is empty) and
// binds it to exchange with key. It returns the queue name.
func (r *RabbitMQ) BindQueue(name, exchange, key string) (string, error) {
	ch, err := r.channel()
	if err != nil {
		return "", err
	}

	exclusive := name == ""
	q, err := ch.QueueDeclare(name, !exclusive, exclusive, exclusive, false, nil)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	return q.Name, nil
}

func (r *RabbitMQ) ConsumeMessage(ctx context.Context, queue, consumerTag string) (<-chan amqp.Delivery, error) {
	ch, err := r.channel()
	if err != nil {
		return nil, err
	}
	return ch.ConsumeWithContext(ctx, queue, consumerTag, false, false, false, false, nil)
}
