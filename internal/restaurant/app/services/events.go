package services

import (
	"context"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/xpkg/logger"
)

// announce tells other replicas about a confirmed write. It is a no-op when the
// store announces changes itself.
func announce(ctx context.Context, p core.IPublisher, mylog logger.Logger, table string, typ dto.EventType, record map[string]any) {
	if p == nil {
		return
	}
	ev := dto.ChangeEvent{
		Table:  table,
		Type:   typ,
		Record: record,
	}
	if err := p.Publish(ctx, ev); err != nil {
		mylog.Action("change_publish_failed").Error("Failed to publish change event", err, "table", table, "type", string(typ))
	}
}
