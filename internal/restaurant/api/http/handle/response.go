package handle

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/app/services"
)

// jsonResponse writes data as JSON with the given status code.
func jsonResponse(c *gin.Context, code int, data any) {
	if data == nil {
		c.Status(code)
		return
	}
	c.JSON(code, data)
}

// jsonError writes {"error", "code"} with the given status code.
func jsonError(c *gin.Context, code int, err error) {
	if err == nil {
		c.Status(code)
		return
	}
	c.AbortWithStatusJSON(code, gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case services.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrOrderNotFound), errors.Is(err, core.ErrMenuItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrCatalogNotEmpty),
		errors.Is(err, core.ErrOrderAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, core.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), core.WaitTime*time.Second)
}
