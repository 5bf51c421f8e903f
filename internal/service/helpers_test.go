package service

import (
	"context"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRetry = RetryPolicy{MaxAttempts: 3, Backoff: time.Millisecond}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	st, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedProduct(t *testing.T, st *store.Store, name string, price int64, inStock bool) int64 {
	t.Helper()

	p := &models.Product{Name: name, Category: "test", Price: price, InStock: inStock, StockQuantity: 5}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p.ID
}

type PublisherMock struct{ mock.Mock }

func (m *PublisherMock) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *PublisherMock) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// execCatalog runs a catalog write directly; the core never writes products
func execCatalog(t *testing.T, st *store.Store, query string, args ...interface{}) {
	t.Helper()

	db := st.GetDB()
	res, err := db.ExecContext(context.Background(), db.Rebind(query), args...)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func setProductPrice(t *testing.T, st *store.Store, productID, price int64) {
	execCatalog(t, st, "UPDATE products SET price = ? WHERE id = ?", price, productID)
}

func setProductInStock(t *testing.T, st *store.Store, productID int64, inStock bool) {
	execCatalog(t, st, "UPDATE products SET in_stock = ? WHERE id = ?", inStock, productID)
}

func deleteProduct(t *testing.T, st *store.Store, productID int64) {
	execCatalog(t, st, "DELETE FROM products WHERE id = ?", productID)
}
