package core

import (
	"time"

	"github.com/shopspring/decimal"

	"moms-kitchen/internal/restaurant/domain/models"
)

type BoardParams struct {
	Port    int
	BoardID string
}

const (
	MenuTable   = "menu_items"
	OrdersTable = "orders"

	// in seconds for store round trips started by HTTP handlers
	WaitTime = 10

	MinPollInterval = time.Second
	MaxPollInterval = time.Minute

	FeedReconnInterval = 5 * time.Second

	ChangesExchange       = "restaurant_changes"
	NotificationsExchange = "notifications"
	NotificationsQueue    = "order_update"
)

var (
	// TaxRate is the GST applied on the subtotal.
	TaxRate = decimal.NewFromFloat(0.18)

	// ActiveStatuses are the kitchen board columns.
	ActiveStatuses = []models.OrderStatus{models.StatusPending, models.StatusCooking, models.StatusReady, models.StatusServed}

	// TrackerStatuses are the columns shown to customers.
	TrackerStatuses = []models.OrderStatus{models.StatusPending, models.StatusCooking, models.StatusReady}
)
