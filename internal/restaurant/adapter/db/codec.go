package db

import (
	"time"

	"github.com/shopspring/decimal"

	"moms-kitchen/internal/restaurant/domain/models"
)

// Rows are scanned into nullable fields and decoded here so every default applied
// on read lives in one place.

type orderRow struct {
	ID             string
	TableID        *string
	Status         *string
	PaymentMethod  *string
	PaymentStatus  *string
	TotalAmount    string
	CreatedAt      *time.Time
	CustomerName   *string
	CustomerMobile *string
}

type orderItemRow struct {
	ID       string
	OrderID  string
	ItemName *string
	Quantity *int
	Price    string
}

type menuRow struct {
	ID        string
	Name      *string
	Price     string
	Category  *string
	Image     *string
	IsVeg     *bool
	CreatedAt *time.Time
}

func (r orderRow) toModel() models.Order {
	o := models.Order{
		ID:             r.ID,
		TableID:        deref(r.TableID, ""),
		Status:         models.ParseOrderStatus(deref(r.Status, "")),
		PaymentMethod:  deref(r.PaymentMethod, models.DefaultPaymentMethod),
		PaymentStatus:  models.ParsePaymentStatus(deref(r.PaymentStatus, "")),
		TotalAmount:    parseAmount(r.TotalAmount),
		CustomerName:   deref(r.CustomerName, models.DefaultCustomerName),
		CustomerMobile: deref(r.CustomerMobile, ""),
		Items:          []models.OrderItem{},
	}
	if r.CreatedAt != nil {
		o.Timestamp = r.CreatedAt.UTC()
	}
	return o
}

func (r orderItemRow) toModel() models.OrderItem {
	item := models.OrderItem{
		ID:    r.ID,
		Name:  deref(r.ItemName, models.UnknownItemName),
		Price: parseAmount(r.Price),
	}
	if r.Quantity != nil {
		item.Quantity = *r.Quantity
	}
	return item
}

func (r menuRow) toModel() models.MenuItem {
	item := models.MenuItem{
		ID:       r.ID,
		Name:     deref(r.Name, ""),
		Price:    parseAmount(r.Price),
		Category: deref(r.Category, ""),
		Image:    deref(r.Image, ""),
	}
	if r.IsVeg != nil {
		item.IsVeg = *r.IsVeg
	}
	if r.CreatedAt != nil {
		item.CreatedAt = r.CreatedAt.UTC()
	}
	return item
}

// joinItems attaches items to their orders, keeping the order of orders.
func joinItems(orders []models.Order, items []orderItemRow) []models.Order {
	index := make(map[string]int, len(orders))
	for i := range orders {
		index[orders[i].ID] = i
	}
	for _, row := range items {
		i, ok := index[row.OrderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, row.toModel())
	}
	return orders
}

// deref treats NULL and empty text alike.
func deref(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
