package db

import (
	"context"

	"moms-kitchen/internal/restaurant/app/core"
	"moms-kitchen/internal/restaurant/domain/models"
)

// Unavailable stands in for both repositories when the store is not configured.
// Every call fails with core.ErrStoreUnavailable.
type Unavailable struct{}

func (Unavailable) List(context.Context) ([]models.MenuItem, error) {
	return nil, core.ErrStoreUnavailable
}

func (Unavailable) Count(context.Context) (int, error) {
	return 0, core.ErrStoreUnavailable
}

func (Unavailable) Insert(context.Context, models.MenuItem) (models.MenuItem, error) {
	return models.MenuItem{}, core.ErrStoreUnavailable
}

func (Unavailable) InsertMany(context.Context, []models.MenuItem) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) Update(context.Context, models.MenuItem) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) LoadAll(context.Context) ([]models.Order, error) {
	return nil, core.ErrStoreUnavailable
}

func (Unavailable) Create(context.Context, models.Order) (models.Order, error) {
	return models.Order{}, core.ErrStoreUnavailable
}

func (Unavailable) SetStatus(context.Context, string, models.OrderStatus) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) SetPaymentStatus(context.Context, string, models.PaymentStatus) error {
	return core.ErrStoreUnavailable
}

// Delete serves both IMenuRepo and IOrderRepo.
func (Unavailable) Delete(context.Context, string) error {
	return core.ErrStoreUnavailable
}

func (Unavailable) Close() error   { return nil }
func (Unavailable) IsAlive() error { return core.ErrStoreUnavailable }
