package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/logger"
)

// Postgres listens on the <table>_changes channels filled by the notify_change
// trigger. Each subscription holds its own connection outside the pool.
type Postgres struct {
	pool  *pgxpool.Pool
	mylog logger.Logger

	mu     sync.Mutex
	closed bool
	cancel []context.CancelFunc
}

func NewPostgres(pool *pgxpool.Pool, mylog logger.Logger) *Postgres {
	return &Postgres{
		pool:  pool,
		mylog: mylog,
	}
}

func ChannelName(table string) string {
	return table + "_changes"
}

func (p *Postgres) Subscribe(ctx context.Context, table string) (<-chan dto.ChangeEvent, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.New("postgres feed is closed")
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = append(p.cancel, cancel)
	p.mu.Unlock()

	out := make(chan dto.ChangeEvent)
	go p.listen(ctx, table, out)
	return out, nil
}

func (p *Postgres) listen(ctx context.Context, table string, out chan<- dto.ChangeEvent) {
	defer close(out)
	log := p.mylog.Action("postgres_feed").With("table", table)

	for {
		err := p.listenOnce(ctx, table, out)
		if ctx.Err() != nil {
			return
		}
		log.Error("listener stopped, reconnecting", err)

		select {
		case <-time.After(core.FeedReconnInterval):
		case <-ctx.Done():
			return
		}
	}
}

func (p *Postgres) listenOnce(ctx context.Context, table string, out chan<- dto.ChangeEvent) error {
	conn, err := pgx.ConnectConfig(ctx, p.pool.Config().ConnConfig.Copy())
	if err != nil {
		return err
	}
	defer conn.Close(context.Background())

	channel := pgx.Identifier{ChannelName(table)}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		return err
	}
	p.mylog.Action("postgres_feed_listening").Debug("listening", "channel", channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := decodeEvent([]byte(n.Payload), table)
		if err != nil {
			p.mylog.Action("postgres_feed").Warn("dropping notification", "channel", n.Channel, "error", err.Error())
			continue
		}
		if !deliver(ctx, out, ev) {
			return ctx.Err()
		}
	}
}

func (p *Postgres) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, cancel := range p.cancel {
		cancel()
	}
	p.cancel = nil
	return nil
}
