package services

import (
	"sort"
	"strings"
	"time"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/dto"
	"moms-kitchen/internal/restaurant/domain/models"
)

const (
	BillingAll    = "all"
	BillingPaid   = "paid"
	BillingUnpaid = "unpaid"
)

type KitchenColumn struct {
	Status models.OrderStatus `json:"status"`
	Count  int                `json:"count"`
	Orders []models.Order     `json:"orders"`
}

// Kitchen groups the active orders into one column per status.
func (ob *OrderBoard) Kitchen() []KitchenColumn {
	active := ob.ByStatus(core.ActiveStatuses...)

	cols := make([]KitchenColumn, len(core.ActiveStatuses))
	pos := make(map[models.OrderStatus]int, len(core.ActiveStatuses))
	for i, s := range core.ActiveStatuses {
		cols[i] = KitchenColumn{Status: s, Orders: []models.Order{}}
		pos[s] = i
	}
	for _, o := range active {
		c := &cols[pos[o.Status]]
		c.Orders = append(c.Orders, o)
		c.Count++
	}
	return cols
}

// Tracker lists what a customer can still wait for.
func (ob *OrderBoard) Tracker() []dto.TrackerOrder {
	orders := ob.ByStatus(core.TrackerStatuses...)
	out := make([]dto.TrackerOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, dto.TrackerOrder{
			OrderID:       o.ID,
			Table:         o.TableID,
			Items:         o.ItemsSummary(),
			Total:         o.TotalAmount,
			Status:        o.Status.String(),
			PaymentStatus: o.PaymentStatus.Wire(),
			PaymentMethod: o.PaymentMethod,
			CreatedAt:     o.Timestamp.Format(time.RFC3339),
		})
	}
	return out
}

// Billing returns orders newest first, matching query against customer name,
// order id or table, and filter against the paid status.
func (ob *OrderBoard) Billing(query, filter string) []models.Order {
	orders := ob.Orders()
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp.After(orders[j].Timestamp)
	})

	query = strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if query != "" &&
			!strings.Contains(strings.ToLower(o.CustomerName), query) &&
			!strings.Contains(strings.ToLower(o.ID), query) &&
			!strings.Contains(o.TableID, query) {
			continue
		}
		switch strings.ToLower(filter) {
		case BillingPaid:
			if o.Status != models.StatusPaid {
				continue
			}
		case BillingUnpaid:
			if o.Status == models.StatusPaid {
				continue
			}
		}
		out = append(out, o)
	}
	return out
}
