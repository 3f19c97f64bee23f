// Package feed implements the change-notification feed on top of the store
// itself (postgres LISTEN/NOTIFY) or a broker (rabbitmq, redis pub/sub).
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	brokermessage "moms-kitchen/internal/restaurant/adapter/broker_message"
	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"
)

const (
	DriverPostgres = "postgres"
	DriverRabbitMQ = "rabbitmq"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// New builds the feed selected by cfg.Feed.Driver. pool may be nil when the
// store is unavailable, in which case the postgres driver degrades to none.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, mq *brokermessage.RabbitMQ, mylog logger.Logger) (core.IFeed, error) {
	log := mylog.Action("feed_init")

	switch cfg.Feed.Driver {
	case DriverPostgres, "":
		if pool == nil {
			log.Warn("store is unavailable, postgres feed disabled")
			return NewNone(), nil
		}
		return NewPostgres(pool, mylog), nil
	case DriverRabbitMQ:
		if mq == nil {
			var err error
			mq, err = brokermessage.New(ctx, cfg.RMQ, mylog)
			if err != nil {
				return nil, err
			}
		}
		return NewRabbitMQ(mq, mylog), nil
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis, mylog)
	case DriverNone:
		return NewNone(), nil
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownFeed, cfg.Feed.Driver)
	}
}

// decodeEvent parses a JSON change event. Events for another table are rejected
// so a shared channel never leaks rows into the wrong cache.
func decodeEvent(payload []byte, table string) (dto.ChangeEvent, error) {
	var ev dto.ChangeEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return dto.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	ev.Normalize()
	if ev.Table == "" {
		ev.Table = table
	}
	if ev.Table != table {
		return dto.ChangeEvent{}, fmt.Errorf("change event for %q on %q subscription", ev.Table, table)
	}
	switch ev.Type {
	case dto.EventInsert, dto.EventUpdate, dto.EventDelete:
	default:
		return dto.ChangeEvent{}, fmt.Errorf("unknown change event type %q", ev.Type)
	}
	return ev, nil
}

// deliver sends ev unless ctx is done first.
func deliver(ctx context.Context, out chan<- dto.ChangeEvent, ev dto.ChangeEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// None never delivers anything; the poller alone keeps caches fresh.
type None struct{}

func NewNone() None { return None{} }

func (None) Subscribe(ctx context.Context, _ string) (<-chan dto.ChangeEvent, error) {
	out := make(chan dto.ChangeEvent)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (None) Close() error { return nil }
