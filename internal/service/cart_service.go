package service

import (
	"context"
	"fmt"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"go.uber.org/zap"
)

// CartService manages the mutable per-user cart
type CartService struct {
	store   *store.Store
	catalog CatalogReader
	retry   RetryPolicy
	logger  *zap.Logger
}

// NewCartService creates a new cart service
func NewCartService(store *store.Store, catalog CatalogReader, retry RetryPolicy) *CartService {
	return &CartService{
		store:   store,
		catalog: catalog,
		retry:   retry,
		logger:  util.GetLogger(),
	}
}

// AddItem adds quantity units of a product to the user's cart, accumulating
// onto an existing line for the same product. A line never holds more than
// models.MaxLineQuantity units.
func (s *CartService) AddItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	ctx, span := util.StartSpan(ctx, "CartService.AddItem")
	defer span.End()

	if quantity < 1 || quantity > models.MaxLineQuantity {
		return nil, fmt.Errorf("add quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}

	product, err := s.catalog.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, fmt.Errorf("product %d: %w", productID, models.ErrProductUnavailable)
	}

	var item *models.CartItem
	err = s.retry.do(ctx, "cart_add", func() error {
		var err error
		item, err = s.store.AddCartItem(ctx, userID, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}

	util.CartMutationsTotal.WithLabelValues("add").Inc()
	s.logger.Debug("Cart item added",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.Int("quantity", item.Quantity))

	return item, nil
}

// UpdateItem sets the quantity of a cart line exactly. A quantity of zero or
// less removes the line. Lines not owned by the user report ErrNotFound.
func (s *CartService) UpdateItem(ctx context.Context, userID, itemID int64, quantity int) error {
	ctx, span := util.StartSpan(ctx, "CartService.UpdateItem")
	defer span.End()

	if quantity > models.MaxLineQuantity {
		return fmt.Errorf("set quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}

	if quantity <= 0 {
		var removed bool
		err := s.retry.do(ctx, "cart_update", func() error {
			var err error
			removed, err = s.store.DeleteCartItem(ctx, userID, itemID)
			return err
		})
		if err != nil {
			return err
		}
		if !removed {
			return fmt.Errorf("cart item %d: %w", itemID, models.ErrNotFound)
		}
		util.CartMutationsTotal.WithLabelValues("remove").Inc()
		return nil
	}

	err := s.retry.do(ctx, "cart_update", func() error {
		return s.store.SetCartItemQuantity(ctx, userID, itemID, quantity)
	})
	if err != nil {
		return err
	}

	util.CartMutationsTotal.WithLabelValues("update").Inc()
	return nil
}

// RemoveItem deletes a cart line. Removing a line that no longer exists
// succeeds; a line owned by another user reports ErrNotFound.
func (s *CartService) RemoveItem(ctx context.Context, userID, itemID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.RemoveItem")
	defer span.End()

	var removed bool
	err := s.retry.do(ctx, "cart_remove", func() error {
		var err error
		removed, err = s.store.DeleteCartItem(ctx, userID, itemID)
		return err
	})
	if err != nil {
		return err
	}
	if removed {
		util.CartMutationsTotal.WithLabelValues("remove").Inc()
		return nil
	}

	exists, err := s.store.CartItemExists(ctx, itemID)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Warn("Attempt to remove a cart item owned by another user",
			zap.Int64("user_id", userID),
			zap.Int64("item_id", itemID))
		return fmt.Errorf("cart item %d: %w", itemID, models.ErrNotFound)
	}
	return nil
}

// Clear empties the user's cart
func (s *CartService) Clear(ctx context.Context, userID int64) error {
	ctx, span := util.StartSpan(ctx, "CartService.Clear")
	defer span.End()

	err := s.retry.do(ctx, "cart_clear", func() error {
		return s.store.ClearCart(ctx, userID)
	})
	if err != nil {
		return err
	}

	util.CartMutationsTotal.WithLabelValues("clear").Inc()
	return nil
}

// List returns the cart lines priced at current catalog prices
func (s *CartService) List(ctx context.Context, userID int64) ([]models.CartLine, error) {
	ctx, span := util.StartSpan(ctx, "CartService.List")
	defer span.End()

	var lines []models.CartLine
	err := s.retry.do(ctx, "cart_list", func() error {
		var err error
		lines, err = s.store.GetCartLines(ctx, userID)
		return err
	})
	return lines, err
}

// Total returns the sum of the cart's line totals, zero for an empty cart
func (s *CartService) Total(ctx context.Context, userID int64) (int64, error) {
	summary, err := s.summary(ctx, "CartService.Total", userID)
	return summary.Total, err
}

// Count returns the number of units in the cart, zero for an empty cart
func (s *CartService) Count(ctx context.Context, userID int64) (int, error) {
	summary, err := s.summary(ctx, "CartService.Count", userID)
	return summary.Count, err
}

func (s *CartService) summary(ctx context.Context, spanName string, userID int64) (store.CartSummary, error) {
	ctx, span := util.StartSpan(ctx, spanName)
	defer span.End()

	var summary store.CartSummary
	err := s.retry.do(ctx, "cart_summary", func() error {
		var err error
		summary, err = s.store.GetCartSummary(ctx, userID)
		return err
	})
	return summary, err
}
