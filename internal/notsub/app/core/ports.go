package core

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// IBroker is the part of the message broker the subscriber needs.
type IBroker interface {
	BindQueue(name, exchange, key string) (string, error)
	ConsumeMessage(ctx context.Context, queue, consumerTag string) (<-chan amqp.Delivery, error)
	Close() error
}
