package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// toggleTimeout bounds a shared toggle once it no longer follows its caller
const toggleTimeout = 10 * time.Second

// WishlistService manages the per-user set of saved products
type WishlistService struct {
	repo    WishlistRepository
	retry   RetryPolicy
	toggles singleflight.Group
	logger  *zap.Logger
}

// NewWishlistService creates a new wishlist service
func NewWishlistService(repo WishlistRepository, retry RetryPolicy) *WishlistService {
	return &WishlistService{
		repo:   repo,
		retry:  retry,
		logger: util.GetLogger(),
	}
}

// Toggle adds the product to the wishlist if absent and removes it if
// present. Identical toggles that overlap in time share one execution, so a
// double submit flips membership once. The shared execution does not stop when
// the caller that started it goes away.
func (s *WishlistService) Toggle(ctx context.Context, userID, productID int64) (models.ToggleResult, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Toggle")
	defer span.End()

	key := fmt.Sprintf("%d:%d", userID, productID)
	v, err, shared := s.toggles.Do(key, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), toggleTimeout)
		defer cancel()

		var result models.ToggleResult
		err := s.retry.do(ctx, "wishlist_toggle", func() error {
			var err error
			result, err = s.repo.ToggleWishlist(ctx, userID, productID)
			return err
		})
		return result, err
	})
	if err != nil {
		return "", err
	}

	result := v.(models.ToggleResult)
	if !shared {
		util.WishlistTogglesTotal.WithLabelValues(string(result)).Inc()
	}
	s.logger.Debug("Wishlist toggled",
		zap.Int64("user_id", userID),
		zap.Int64("product_id", productID),
		zap.String("result", string(result)),
		zap.Bool("shared", shared))

	return result, nil
}

// List returns the ids of the products on the user's wishlist
func (s *WishlistService) List(ctx context.Context, userID int64) ([]int64, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.List")
	defer span.End()

	var ids []int64
	err := s.retry.do(ctx, "wishlist_list", func() error {
		var err error
		ids, err = s.repo.GetWishlistProductIDs(ctx, userID)
		return err
	})
	return ids, err
}

// Contains reports whether the product is on the user's wishlist
func (s *WishlistService) Contains(ctx context.Context, userID, productID int64) (bool, error) {
	ctx, span := util.StartSpan(ctx, "WishlistService.Contains")
	defer span.End()

	var found bool
	err := s.retry.do(ctx, "wishlist_contains", func() error {
		var err error
		found, err = s.repo.IsInWishlist(ctx, userID, productID)
		return err
	})
	return found, err
}
