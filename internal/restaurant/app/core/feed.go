package core

import (
	"context"

	"moms-kitchen/internal/restaurant/domain/dto"
)

// IFeed delivers row-level change events for a table. The returned channel is
// closed once ctx is done or the feed is closed.
type IFeed interface {
	Subscribe(ctx context.Context, table string) (<-chan dto.ChangeEvent, error)
	Close() error
}

// IPublisher is implemented by broker-backed feeds: the writer announces its own
// changes because the store does not.
type IPublisher interface {
	Publish(ctx context.Context, event dto.ChangeEvent) error
}

type INotifier interface {
	Notify(ctx context.Context, n dto.StatusNotification) error
	Close() error
}
