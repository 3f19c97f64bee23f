package dto

import (
	"github.com/shopspring/decimal"
)

// MenuItemPayload is the settings form for creating or editing a dish.
type MenuItemPayload struct {
	Name     string          `json:"name" binding:"required"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category" binding:"required"`
	Image    string          `json:"image,omitempty"`
	IsVeg    bool            `json:"is_veg"`
}

type StatusUpdate struct {
	Status string `json:"status" binding:"required"`
}

type PaymentUpdate struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}
