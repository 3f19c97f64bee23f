package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/config"
	"moms-kitchen/internal/xpkg/logger"
)

// Redis relays change events over pub/sub channels named restaurant:<table>.
// go-redis re-subscribes by itself after a dropped connection.
type Redis struct {
	client *redis.Client
	mylog  logger.Logger
}

func NewRedis(ctx context.Context, cfg config.Redis, mylog logger.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisWithClient(client, mylog), nil
}

func NewRedisWithClient(client *redis.Client, mylog logger.Logger) *Redis {
	return &Redis{
		client: client,
		mylog:  mylog,
	}
}

func RedisChannel(table string) string {
	return "restaurant:" + table
}

func (r *Redis) Publish(ctx context.Context, event dto.ChangeEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, RedisChannel(event.Table), body).Err()
}

func (r *Redis) Subscribe(ctx context.Context, table string) (<-chan dto.ChangeEvent, error) {
	ps := r.client.Subscribe(ctx, RedisChannel(table))
	// Wait for the subscription confirmation so a bad connection fails here.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("redis subscribe %s: %w", table, err)
	}

	out := make(chan dto.ChangeEvent)
	go func() {
		defer close(out)
		defer ps.Close()
		log := r.mylog.Action("redis_feed").With("table", table)

		messages := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				ev, err := decodeEvent([]byte(msg.Payload), table)
				if err != nil {
					log.Warn("dropping change event", "error", err.Error())
					continue
				}
				if !deliver(ctx, out, ev) {
					return
				}
			}
		}
	}()
	return out, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
