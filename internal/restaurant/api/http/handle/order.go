package handle

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/app/services"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

type OrderHandler struct {
	board    *services.OrderBoard
	workflow *services.OrderWorkflow
	mylog    logger.Logger
}

func NewOrderHandler(board *services.OrderBoard, workflow *services.OrderWorkflow, mylog logger.Logger) *OrderHandler {
	return &OrderHandler{
		board:    board,
		workflow: workflow,
		mylog:    mylog,
	}
}

// List returns the cached orders, optionally filtered by ?status=a,b.
func (oh *OrderHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Query("status"))
		if raw == "" {
			jsonResponse(c, http.StatusOK, gin.H{"orders": oh.board.Orders()})
			return
		}

		var statuses []models.OrderStatus
		for _, s := range strings.Split(raw, ",") {
			st, ok := models.LookupOrderStatus(s)
			if !ok {
				jsonError(c, http.StatusBadRequest, fmt.Errorf("%q: %w", s, core.ErrBadStatus))
				return
			}
			statuses = append(statuses, st)
		}
		orders := oh.board.ByStatus(statuses...)
		if orders == nil {
			orders = []models.Order{}
		}
		jsonResponse(c, http.StatusOK, gin.H{"orders": orders})
	}
}

func (oh *OrderHandler) Create() gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload dto.OrderPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			oh.mylog.Action("parse_failed").Debug("invalid order payload", "error", err.Error())
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		if err := services.ValidateOrder(payload); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		oh.mylog.Action("received").Debug("Received order", "table", payload.Table, "number_of_items", len(payload.Items))

		ctx, cancel := requestContext(c)
		defer cancel()

		resp, err := oh.workflow.SubmitOrder(ctx, payload)
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusCreated, resp)
	}
}

// UpdateStatus accepts the change once validated; store failures only show up
// as the next reload.
func (oh *OrderHandler) UpdateStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.StatusUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		status, ok := models.LookupOrderStatus(req.Status)
		if !ok {
			jsonError(c, http.StatusBadRequest, fmt.Errorf("%q: %w", req.Status, core.ErrBadStatus))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		id := c.Param("id")
		if err := oh.board.UpdateStatus(ctx, id, status); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusAccepted, gin.H{"order_id": id, "status": status})
	}
}

func (oh *OrderHandler) Advance() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := requestContext(c)
		defer cancel()

		id := c.Param("id")
		next, err := oh.board.Advance(ctx, id)
		if err != nil {
			jsonError(c, statusFor(err), err)
			return
		}
		jsonResponse(c, http.StatusAccepted, gin.H{"order_id": id, "status": next})
	}
}

func (oh *OrderHandler) UpdatePayment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.PaymentUpdate
		if err := c.ShouldBindJSON(&req); err != nil {
			jsonError(c, http.StatusBadRequest, err)
			return
		}
		status, ok := models.LookupPaymentStatus(req.PaymentStatus)
		if !ok {
			jsonError(c, http.StatusBadRequest, fmt.Errorf("%q: %w", req.PaymentStatus, core.ErrBadPayment))
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		ok = oh.workflow.UpdatePaymentStatus(ctx, c.Param("id"), status)
		jsonResponse(c, http.StatusOK, gin.H{"success": ok})
	}
}

// Cancel deletes an order whose payment is still pending. The customer flow
// closes regardless of the result, so store failures answer 200 with
// success=false.
func (oh *OrderHandler) Cancel() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := oh.workflow.CheckCancellable(id); err != nil {
			jsonError(c, statusFor(err), err)
			return
		}

		ctx, cancel := requestContext(c)
		defer cancel()

		ok := oh.workflow.CancelOrder(ctx, id)
		jsonResponse(c, http.StatusOK, gin.H{"success": ok})
	}
}

func (oh *OrderHandler) Tracker() gin.HandlerFunc {
	return func(c *gin.Context) {
		jsonResponse(c, http.StatusOK, gin.H{"orders": oh.board.Tracker()})
	}
}
