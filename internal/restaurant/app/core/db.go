package core

import (
	"context"

	"moms-kitchen/internal/restaurant/domain/models"
)

type IDB interface {
	Close() error
	IsAlive() error
}

type IMenuRepo interface {
	// List returns every menu item, newest first.
	List(ctx context.Context) ([]models.MenuItem, error)
	Count(ctx context.Context) (int, error)
	Insert(ctx context.Context, item models.MenuItem) (models.MenuItem, error)
	InsertMany(ctx context.Context, items []models.MenuItem) error
	Update(ctx context.Context, item models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

type IOrderRepo interface {
	// LoadAll returns every order with its items, newest first.
	LoadAll(ctx context.Context) ([]models.Order, error)
	// Create writes the header and its items atomically and returns the order
	// with the store-assigned id and timestamp.
	Create(ctx context.Context, order models.Order) (models.Order, error)
	SetStatus(ctx context.Context, orderID string, status models.OrderStatus) error
	SetPaymentStatus(ctx context.Context, orderID string, status models.PaymentStatus) error
	// Delete removes the items and then the header.
	Delete(ctx context.Context, orderID string) error
}
