package models

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultPaymentMethod = "CASH"
	DefaultCustomerName  = "Guest"
	UnknownItemName      = "Unknown Item"
)

type Order struct {
	ID             string          `json:"id"`
	TableID        string          `json:"table_id"`
	Items          []OrderItem     `json:"items"`
	Status         OrderStatus     `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Timestamp      time.Time       `json:"timestamp"`
	CustomerName   string          `json:"customer_name"`
	CustomerMobile string          `json:"customer_mobile"`
}

// OrderItem is a line item with the name and price frozen at order time.
type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Clone returns a copy that shares no slices with o.
func (o Order) Clone() Order {
	c := o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return c
}

// ItemsSummary renders the items as "name xN, name xN".
func (o Order) ItemsSummary() string {
	parts := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", item.Name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

// SummaryItem is one entry of a parsed items summary.
type SummaryItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

var summaryPartRe = regexp.MustCompile(`^(.+?)\s+x(\d+)$`)

// ParseItemsSummary is the inverse of ItemsSummary. Parts without a quantity
// suffix count as one.
func ParseItemsSummary(summary string) []SummaryItem {
	if strings.TrimSpace(summary) == "" {
		return nil
	}
	var items []SummaryItem
	for _, part := range strings.Split(summary, ",") {
		part = strings.TrimSpace(part)
		if m := summaryPartRe.FindStringSubmatch(part); m != nil {
			qty, err := strconv.Atoi(m[2])
			if err == nil {
				items = append(items, SummaryItem{Name: m[1], Qty: qty})
				continue
			}
		}
		items = append(items, SummaryItem{Name: part, Qty: 1})
	}
	return items
}
