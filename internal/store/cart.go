package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"
)

// CartSummary holds the aggregate totals of a user's cart.
type CartSummary struct {
	Total int64 `db:"total"`
	Count int   `db:"item_count"`
}

// AddCartItem inserts a cart line or increments the quantity of the existing
// one. The upsert is a single statement, so concurrent adds for the same
// product accumulate instead of overwriting each other. An add that would
// take the line past models.MaxLineQuantity leaves it untouched and reports
// models.ErrInvalidQuantity.
func (s *Store) AddCartItem(ctx context.Context, userID, productID int64, quantity int) (*models.CartItem, error) {
	if quantity < 1 || quantity > models.MaxLineQuantity {
		return nil, fmt.Errorf("add quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}

	query := s.db.Rebind(`
		INSERT INTO cart_items (user_id, product_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + excluded.quantity
		WHERE cart_items.quantity + excluded.quantity <= ?
		RETURNING id, user_id, product_id, quantity, added_at`)

	var item models.CartItem
	err := s.db.GetContext(ctx, &item, query, userID, productID, quantity, models.MaxLineQuantity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: line would exceed %d: %w",
			productID, models.MaxLineQuantity, models.ErrInvalidQuantity)
	}
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, fmt.Errorf("product %d: %w", productID, models.ErrNotFound)
		}
		return nil, classify(fmt.Errorf("failed to upsert cart item: %w", err))
	}
	return &item, nil
}

// SetCartItemQuantity replaces the quantity of a cart line owned by userID.
// A line that is absent or owned by someone else reports models.ErrNotFound.
func (s *Store) SetCartItemQuantity(ctx context.Context, userID, itemID int64, quantity int) error {
	if quantity < 1 || quantity > models.MaxLineQuantity {
		return fmt.Errorf("set quantity %d: %w", quantity, models.ErrInvalidQuantity)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE cart_items SET quantity = ? WHERE id = ? AND user_id = ?"),
		quantity, itemID, userID)
	return expectRow(res, err, "cart item", itemID)
}

// DeleteCartItem deletes a cart line owned by userID and reports whether a
// row was removed.
func (s *Store) DeleteCartItem(ctx context.Context, userID, itemID int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"DELETE FROM cart_items WHERE id = ? AND user_id = ?"), itemID, userID)
	if err != nil {
		return false, classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify(err)
	}
	return n > 0, nil
}

// CartItemExists reports whether a cart line with the given id exists for
// any user.
func (s *Store) CartItemExists(ctx context.Context, itemID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, s.db.Rebind(
		"SELECT EXISTS(SELECT 1 FROM cart_items WHERE id = ?)"), itemID)
	return exists, classify(err)
}

// ClearCart deletes every cart line of the user
func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM cart_items WHERE user_id = ?"), userID)
	return classify(err)
}

// GetCartLines returns the cart joined with current product data, newest
// first. Lines whose product left the catalog are not returned.
func (s *Store) GetCartLines(ctx context.Context, userID int64) ([]models.CartLine, error) {
	lines := []models.CartLine{}
	err := s.db.SelectContext(ctx, &lines, s.db.Rebind(`
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.added_at,
		       p.name AS product_name, p.image_url, p.category, p.price AS unit_price, p.in_stock
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = ?
		ORDER BY ci.added_at DESC, ci.id DESC`), userID)
	if err != nil {
		return nil, classify(err)
	}

	for i := range lines {
		lines[i].LineTotal = int64(lines[i].Quantity) * lines[i].UnitPrice
	}
	return lines, nil
}

// GetCartSummary returns the cart total at current prices and the number of
// units in the cart. Both are zero for an empty cart.
func (s *Store) GetCartSummary(ctx context.Context, userID int64) (CartSummary, error) {
	var summary CartSummary
	err := s.db.GetContext(ctx, &summary, s.db.Rebind(`
		SELECT COALESCE(SUM(ci.quantity * p.price), 0) AS total,
		       COALESCE(SUM(ci.quantity), 0) AS item_count
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = ?`), userID)
	return summary, classify(err)
}

// TakeCart deletes the user's cart lines and returns what was deleted. The
// snapshot and the clear are one statement, so a concurrent add either is
// part of the snapshot or survives in the cart, never both.
func (t *Tx) TakeCart(ctx context.Context, userID int64) ([]models.CartItem, error) {
	items := []models.CartItem{}
	err := t.tx.SelectContext(ctx, &items, t.tx.Rebind(`
		DELETE FROM cart_items WHERE user_id = ?
		RETURNING id, user_id, product_id, quantity, added_at`), userID)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to take cart: %w", err))
	}
	return items, nil
}

// GetProductsByIDs retrieves multiple products by IDs inside the transaction
func (t *Tx) GetProductsByIDs(ctx context.Context, ids []int64) ([]models.Product, error) {
	return getProductsByIDs(ctx, t.tx, ids)
}
