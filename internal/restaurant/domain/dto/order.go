package dto

import (
	"github.com/shopspring/decimal"
)

// OrderPayload is what the customer portal submits.
type OrderPayload struct {
	Table          string             `json:"table" binding:"required"`
	Items          []OrderItemPayload `json:"items" binding:"required,min=1,dive"`
	PaymentMethod  string             `json:"payment_method"`
	PaymentStatus  string             `json:"payment_status,omitempty"`
	CustomerName   string             `json:"customer_name" binding:"required"`
	CustomerMobile string             `json:"customer_mobile" binding:"required"`
}

type OrderItemPayload struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Qty      int             `json:"qty" binding:"min=1"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
}

type OrderResponse struct {
	Success       bool            `json:"success"`
	OrderID       string          `json:"order_id"`
	Table         string          `json:"table"`
	Items         string          `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	GST           decimal.Decimal `json:"gst"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	PaymentStatus string          `json:"payment_status"`
}

// TrackerOrder is the flattened order shown on the customer tracker.
type TrackerOrder struct {
	OrderID       string          `json:"order_id"`
	Table         string          `json:"table"`
	Items         string          `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     string          `json:"created_at"`
}

// StatusNotification is published on the notifications exchange after a
// confirmed status change.
type StatusNotification struct {
	OrderID   string `json:"order_id"`
	Table     string `json:"table"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by"`
	Timestamp string `json:"timestamp"`
}
