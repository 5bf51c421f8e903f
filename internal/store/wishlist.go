package store

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// ToggleWishlist removes the (user, product) entry if present, otherwise adds
// it. Both branches run in one transaction and the insert ignores a
// concurrent duplicate, so the pair stays unique.
func (s *Store) ToggleWishlist(ctx context.Context, userID, productID int64) (models.ToggleResult, error) {
	var result models.ToggleResult

	err := s.WithinTx(ctx, func(tx *Tx) error {
		res, err := tx.tx.ExecContext(ctx, tx.tx.Rebind(
			"DELETE FROM wishlist WHERE user_id = ? AND product_id = ?"), userID, productID)
		if err != nil {
			return fmt.Errorf("failed to remove wishlist entry: %w", err)
		}
		removed, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if removed > 0 {
			result = models.ToggleRemoved
			return nil
		}

		_, err = tx.tx.ExecContext(ctx, tx.tx.Rebind(`
			INSERT INTO wishlist (user_id, product_id) VALUES (?, ?)
			ON CONFLICT (user_id, product_id) DO NOTHING`), userID, productID)
		if isForeignKeyViolation(err) {
			return fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to add wishlist entry: %w", err)
		}
		result = models.ToggleAdded
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// GetWishlistProductIDs returns the product ids saved by the user
func (s *Store) GetWishlistProductIDs(ctx context.Context, userID int64) ([]int64, error) {
	ids := []int64{}
	err := s.db.SelectContext(ctx, &ids, s.db.Rebind(
		"SELECT product_id FROM wishlist WHERE user_id = ? ORDER BY id"), userID)
	return ids, classify(err)
}

// IsInWishlist checks if the product is saved by the user
func (s *Store) IsInWishlist(ctx context.Context, userID, productID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(
		"SELECT EXISTS(SELECT 1 FROM wishlist WHERE user_id = ? AND product_id = ?)"), userID, productID)
	return exists, classify(err)
}
