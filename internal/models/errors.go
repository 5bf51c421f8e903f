package models

import "errors"

// Errors returned by the cart, order and wishlist operations. Callers match
// them with errors.Is; the store and services wrap them with context.
var (
	// ErrNotFound covers both absent entities and entities owned by another user.
	ErrNotFound           = errors.New("not found")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrEmptyCart          = errors.New("cart is empty")
	ErrAlreadyCancelled   = errors.New("order already cancelled")
	ErrInvalidQuantity    = errors.New("invalid quantity")

	// ErrCheckoutInProgress means another checkout holds the same idempotency key.
	ErrCheckoutInProgress = errors.New("checkout already in progress")

	// ErrTransient marks storage contention or timeouts. Safe to retry.
	ErrTransient = errors.New("transient storage failure")

	// ErrInvariantViolation means a computed total did not reconcile. It is a bug.
	ErrInvariantViolation = errors.New("invariant violation")
)
