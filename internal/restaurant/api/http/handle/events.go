package handle

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/xpkg/logger"
)

const keepAlive = 15 * time.Second

// EventsHandler streams a tick per cache change so dashboards know when to
// refetch.
type EventsHandler struct {
	catalog *services.MenuCatalog
	board   *services.OrderBoard
	done    <-chan struct{}
	mylog   logger.Logger
}

// NewEventsHandler builds the stream handler. Open streams end when done is
// closed.
func NewEventsHandler(catalog *services.MenuCatalog, board *services.OrderBoard, done <-chan struct{}, mylog logger.Logger) *EventsHandler {
	return &EventsHandler{
		catalog: catalog,
		board:   board,
		done:    done,
		mylog:   mylog,
	}
}

func (eh *EventsHandler) Stream() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		menu := eh.catalog.Watch(ctx)
		orders := eh.board.Watch(ctx)

		t := time.NewTicker(keepAlive)
		defer t.Stop()

		log := eh.mylog.Action("sse_client").With("request_id", c.GetString("request_id"))
		log.Debug("client connected")
		defer log.Debug("client disconnected")

		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Stream(func(w io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case <-eh.done:
				return false
			case <-menu:
				c.SSEvent("menu", gin.H{"items": len(eh.catalog.Items())})
			case <-orders:
				c.SSEvent("orders", gin.H{"orders": len(eh.board.Orders())})
			case <-t.C:
				c.SSEvent("ping", time.Now().UTC().Format(time.RFC3339))
			}
			return true
		})
	}
}
