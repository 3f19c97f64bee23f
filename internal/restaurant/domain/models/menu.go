package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  string          `json:"category"`
	Image     string          `json:"image,omitempty"`
	IsVeg     bool            `json:"is_veg"`
	CreatedAt time.Time       `json:"created_at"`
}
