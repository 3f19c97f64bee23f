package handle

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"moms-kitchen/internal/xpkg/logger"
)

const RequestIDHeader = "X-Request-ID"

// RequestID reuses the caller's request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func Logger(mylog logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log := mylog.Action("http_request").With(
			"request_id", c.GetString("request_id"),
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		)
		if len(c.Errors) > 0 {
			log.Error("HTTP request failed", c.Errors.Last())
			return
		}
		log.Debug("HTTP request")
	}
}
