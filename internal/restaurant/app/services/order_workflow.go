package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
	"moms-kitchen/internal/xpkg/logger"
)

// OrderWorkflow composes and writes new orders and handles the customer-side
// follow-ups (payment confirmation, cancellation).
type OrderWorkflow struct {
	repo      core.IOrderRepo
	board     *OrderBoard
	publisher core.IPublisher
	timeout   time.Duration
	mylog     logger.Logger
}

func NewOrderWorkflow(
	repo core.IOrderRepo,
	board *OrderBoard,
	publisher core.IPublisher,
	timeout time.Duration,
	mylog logger.Logger,
) *OrderWorkflow {
	return &OrderWorkflow{
		repo:      repo,
		board:     board,
		publisher: publisher,
		timeout:   timeout,
		mylog:     mylog,
	}
}

// Totals returns subtotal, GST rounded to whole currency units, and total.
func Totals(items []dto.OrderItemPayload) (subtotal, gst, total decimal.Decimal) {
	subtotal = decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Qty))))
	}
	gst = subtotal.Mul(core.TaxRate).Round(0)
	return subtotal, gst, subtotal.Add(gst)
}

// SubmitOrder prices the cart and writes the order header with its items in
// one transaction. An empty cart is refused with ErrEmptyCart.
func (w *OrderWorkflow) SubmitOrder(ctx context.Context, payload dto.OrderPayload) (dto.OrderResponse, error) {
	log := w.mylog.Action("order_submit").With("table", payload.Table)

	if len(payload.Items) == 0 {
		return dto.OrderResponse{}, core.ErrEmptyCart
	}

	subtotal, gst, total := Totals(payload.Items)

	method := strings.ToUpper(strings.TrimSpace(payload.PaymentMethod))
	if method == "" {
		method = models.DefaultPaymentMethod
	}
	payment := models.ParsePaymentStatus(payload.PaymentStatus)

	order := models.Order{
		TableID:        payload.Table,
		Status:         models.StatusPending,
		PaymentMethod:  method,
		PaymentStatus:  payment,
		TotalAmount:    total,
		CustomerName:   payload.CustomerName,
		CustomerMobile: payload.CustomerMobile,
		Items:          make([]models.OrderItem, 0, len(payload.Items)),
	}
	for _, item := range payload.Items {
		order.Items = append(order.Items, models.OrderItem{
			Name:     item.Name,
			Quantity: item.Qty,
			Price:    item.Price,
		})
	}

	wctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	created, err := w.repo.Create(wctx, order)
	if err != nil {
		log.Error("Failed to submit order", err)
		return dto.OrderResponse{}, fmt.Errorf("submit order: %w", err)
	}
	announce(ctx, w.publisher, w.mylog, core.OrdersTable, dto.EventInsert, map[string]any{"id": created.ID})
	log.Info("order submitted", "order_id", created.ID, "total", total.String())

	echoMethod := payload.PaymentMethod
	if echoMethod == "" {
		echoMethod = method
	}
	return dto.OrderResponse{
		Success:       true,
		OrderID:       created.ID,
		Table:         payload.Table,
		Items:         order.ItemsSummary(),
		Subtotal:      subtotal,
		GST:           gst,
		Total:         total,
		PaymentMethod: echoMethod,
		PaymentStatus: payment.Wire(),
	}, nil
}

// ValidateOrder checks a payload before any store call.
func ValidateOrder(payload dto.OrderPayload) error {
	if strings.TrimSpace(payload.Table) == "" {
		return fmt.Errorf("table: %w", core.ErrFieldIsEmpty)
	}
	if len(payload.Items) == 0 {
		return core.ErrEmptyCart
	}
	if strings.TrimSpace(payload.CustomerName) == "" {
		return fmt.Errorf("customer name: %w", core.ErrFieldIsEmpty)
	}
	if strings.TrimSpace(payload.CustomerMobile) == "" {
		return fmt.Errorf("customer mobile: %w", core.ErrFieldIsEmpty)
	}
	if payload.PaymentStatus != "" {
		if _, ok := models.LookupPaymentStatus(payload.PaymentStatus); !ok {
			return fmt.Errorf("%q: %w", payload.PaymentStatus, core.ErrBadPayment)
		}
	}

	for i, item := range payload.Items {
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("item %d name: %w", i+1, core.ErrFieldIsEmpty)
		}
		if item.Qty < 1 {
			return fmt.Errorf("item %d (%s): %w", i+1, item.Name, core.ErrInvalidQty)
		}
		if item.Price.IsNegative() {
			return fmt.Errorf("item %d (%s): %w", i+1, item.Name, core.ErrNegativePrice)
		}
	}
	return nil
}

// CancelOrder deletes an order and its items. Failures are logged and reported
// as false; callers carry on either way.
func (w *OrderWorkflow) CancelOrder(ctx context.Context, orderID string) bool {
	log := w.mylog.Action("order_cancel").With("order_id", orderID)

	wctx, cancel := withTimeout(ctx, w.timeout)
	defer cancel()

	if err := w.repo.Delete(wctx, orderID); err != nil {
		log.Error("Failed to cancel order", err)
		return false
	}
	announce(ctx, w.publisher, w.mylog, core.OrdersTable, dto.EventDelete, map[string]any{"id": orderID})
	log.Info("order cancelled")
	return true
}

// UpdatePaymentStatus records a self-reported payment. It reports whether the
// store accepted it.
func (w *OrderWorkflow) UpdatePaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) bool {
	return w.board.UpdatePaymentStatus(ctx, orderID, status)
}

// CheckCancellable refuses orders whose payment was already confirmed.
func (w *OrderWorkflow) CheckCancellable(orderID string) error {
	o, ok := w.board.Order(orderID)
	if !ok {
		return nil
	}
	if o.PaymentStatus == models.PaymentPaid {
		return core.ErrOrderAlreadyPaid
	}
	return nil
}
