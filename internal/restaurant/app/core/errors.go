package core

import "errors"

var (
	ErrStoreUnavailable = errors.New("remote store is not configured")

	ErrOrderNotFound     = errors.New("order not found")
	ErrMenuItemNotFound  = errors.New("menu item not found")
	ErrInvalidTransition = errors.New("status transition is not allowed")
	ErrCatalogNotEmpty   = errors.New("menu catalog is not empty")
	ErrOrderAlreadyPaid  = errors.New("order payment is already confirmed")

	ErrFieldIsEmpty  = errors.New("field is empty")
	ErrEmptyCart     = errors.New("cart is empty")
	ErrInvalidQty    = errors.New("quantity must be at least 1")
	ErrNegativePrice = errors.New("price must not be negative")
	ErrBadPayment    = errors.New("unknown payment status")
	ErrBadStatus     = errors.New("unknown order status")

	ErrUnknownFeed = errors.New("unknown feed driver")
)
