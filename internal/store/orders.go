package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/models"

	"github.com/jmoiron/sqlx"
)

// CreateOrder creates a new order
func (t *Tx) CreateOrder(ctx context.Context, order *models.Order) error {
	query := t.tx.Rebind(`
		INSERT INTO orders (user_id, total_price, status)
		VALUES (?, ?, ?)
		RETURNING id`)

	if err := t.tx.GetContext(ctx, &order.ID, query, order.UserID, order.TotalPrice, order.Status); err != nil {
		return classify(err)
	}
	return classify(t.tx.GetContext(ctx, order, t.tx.Rebind(`
		SELECT id, user_id, total_price, status, created_at, updated_at
		FROM orders WHERE id = ?`), order.ID))
}

// CreateOrderItem creates a new order item
func (t *Tx) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	query := t.tx.Rebind(`
		INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES (?, ?, ?, ?)
		RETURNING id`)

	return classify(t.tx.GetContext(ctx, &item.ID, query,
		item.OrderID, item.ProductID, item.Quantity, item.UnitPrice))
}

// OrderItemsTotal sums quantity * unit_price over the persisted items of an
// order.
func (t *Tx) OrderItemsTotal(ctx context.Context, orderID int64) (int64, error) {
	var total int64
	err := t.tx.GetContext(ctx, &total, t.tx.Rebind(
		"SELECT COALESCE(SUM(quantity * unit_price), 0) FROM order_items WHERE order_id = ?"), orderID)
	return total, classify(err)
}

// GetOrderForUser retrieves an order by ID if it belongs to userID
func (s *Store) GetOrderForUser(ctx context.Context, userID, orderID int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, s.db.Rebind(`
		SELECT id, user_id, total_price, status, created_at, updated_at
		FROM orders WHERE id = ? AND user_id = ?`), orderID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %d: %w", orderID, models.ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &order, nil
}

// GetOrdersByUserID retrieves orders for a user, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, s.db.Rebind(`
		SELECT id, user_id, total_price, status, created_at, updated_at
		FROM orders WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`), userID)
	return orders, classify(err)
}

// GetOrderItemViews retrieves the items of several orders in one query.
// Product display fields are read live and come back empty, with
// ProductFound false, when the product no longer exists.
func (s *Store) GetOrderItemViews(ctx context.Context, orderIDs []int64) ([]models.OrderItemView, error) {
	if len(orderIDs) == 0 {
		return []models.OrderItemView{}, nil
	}

	query, args, err := sqlx.In(`
		SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price,
		       COALESCE(p.name, '') AS product_name,
		       COALESCE(p.image_url, '') AS image_url,
		       p.id IS NOT NULL AS product_found
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}

	items := []models.OrderItemView{}
	err = s.db.SelectContext(ctx, &items, s.db.Rebind(query), args...)
	return items, classify(err)
}

// CancelOrder moves a pending order owned by userID to cancelled. The update
// is conditional on the current status, so two racing cancels cannot both
// succeed.
func (s *Store) CancelOrder(ctx context.Context, userID, orderID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE orders SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND user_id = ? AND status = ?`),
		models.OrderStatusCancelled, orderID, userID, models.OrderStatusPending)
	if err != nil {
		return classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify(err)
	}
	if n == 1 {
		return nil
	}

	order, err := s.GetOrderForUser(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusCancelled {
		return fmt.Errorf("order %d: %w", orderID, models.ErrAlreadyCancelled)
	}
	return fmt.Errorf("order %d in unexpected status %q", orderID, order.Status)
}
