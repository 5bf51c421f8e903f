package store

import (
	"context"

	"storefront/internal/models"
)

// Catalog writes belong to the catalog service; tests use these to change
// products under the cart and order tables.

func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.SelectContext(ctx, &products, `
		SELECT id, name, description, category, image_url, price, in_stock, stock_quantity, created_at
		FROM products ORDER BY id`)
	return products, classify(err)
}

func (s *Store) UpdateProductPrice(ctx context.Context, productID, price int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		"UPDATE products SET price = ? WHERE id = ?"), price, productID)
	return expectRow(res, err, "product", productID)
}

func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM products WHERE id = ?"), productID)
	return expectRow(res, err, "product", productID)
}
