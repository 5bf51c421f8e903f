package service

import (
	"context"
	"time"

	"storefront/internal/models"
)

// CatalogReader looks up catalog products. It reports models.ErrNotFound for
// unknown ids.
type CatalogReader interface {
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
}

// EventPublisher publishes order lifecycle events
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// IdempotencyStore tracks checkout idempotency keys. A key is reserved before
// the checkout runs, then completed with the order id or released on failure.
// LookupCheckout reports a reserved but unfinished key as found with order id 0.
type IdempotencyStore interface {
	ReserveCheckout(ctx context.Context, userID int64, key string, ttl time.Duration) (bool, error)
	CompleteCheckout(ctx context.Context, userID int64, key string, orderID int64, ttl time.Duration) error
	ReleaseCheckout(ctx context.Context, userID int64, key string) error
	LookupCheckout(ctx context.Context, userID int64, key string) (int64, bool, error)
}

// WishlistRepository is the persistence used by WishlistService
type WishlistRepository interface {
	ToggleWishlist(ctx context.Context, userID, productID int64) (models.ToggleResult, error)
	GetWishlistProductIDs(ctx context.Context, userID int64) ([]int64, error)
	IsInWishlist(ctx context.Context, userID, productID int64) (bool, error)
}
