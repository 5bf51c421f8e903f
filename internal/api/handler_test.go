package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router *gin.Engine
	st     *store.Store
}

func newTestServer(t *testing.T, readiness map[string]Pinger) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	retry := service.RetryPolicy{MaxAttempts: 2, Backoff: time.Millisecond}
	h := NewHandler(
		service.NewCartService(st, st, retry),
		service.NewOrderService(st, nil, nil, time.Hour, retry),
		service.NewWishlistService(st, retry),
		readiness,
	)

	router := gin.New()
	h.SetupRoutes(router)
	return testServer{router: router, st: st}
}

func (s testServer) seed(t *testing.T, name string, price int64, inStock bool) int64 {
	t.Helper()
	p := &models.Product{Name: name, Price: price, InStock: inStock}
	require.NoError(t, s.st.CreateProduct(context.Background(), p))
	return p.ID
}

func (s testServer) do(t *testing.T, method, path string, user int64, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user > 0 {
		req.Header.Set(UserIDHeader, fmt.Sprint(user))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestMissingUserHeader(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/api/v1/cart", 0, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartCheckoutFlow(t *testing.T) {
	s := newTestServer(t, nil)
	a := s.seed(t, "A", 100, true)
	b := s.seed(t, "B", 50, true)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: a, Quantity: 2})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: b, Quantity: 1})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/cart", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart struct {
		Items     []models.CartLine `json:"items"`
		Total     int64             `json:"total"`
		ItemCount int               `json:"item_count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, int64(250), cart.Total)
	assert.Equal(t, 3, cart.ItemCount)

	w = s.do(t, http.MethodPost, "/api/v1/checkout", 1, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		OrderID int64 `json:"order_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = s.do(t, http.MethodPost, "/api/v1/checkout", 1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", created.OrderID), 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var order models.OrderDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, int64(250), order.TotalPrice)
	assert.Len(t, order.Items, 2)

	w = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/orders/%d", created.OrderID), 2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", created.OrderID), 1, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodPost, fmt.Sprintf("/api/v1/orders/%d/cancel", created.OrderID), 1, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/orders", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Orders []models.OrderDetails `json:"orders"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Orders, 1)
	assert.Equal(t, models.OrderStatusCancelled, list.Orders[0].Status)
}

func TestCartItemValidation(t *testing.T) {
	s := newTestServer(t, nil)
	soldOut := s.seed(t, "Sold out", 10, false)
	pid := s.seed(t, "Pencil", 10, true)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", 1, gin.H{"product_id": pid, "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: soldOut, Quantity: 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: 999, Quantity: 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/cart/items/abc", 1, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/cart/items/1", 1, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, gin.H{"product_id": pid, "quantity": models.MaxLineQuantity + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/v1/cart/items/1", 1, gin.H{"quantity": models.MaxLineQuantity + 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: pid, Quantity: models.MaxLineQuantity})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: pid, Quantity: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/cart/summary", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"total": %d, "item_count": %d}`,
		10*models.MaxLineQuantity, models.MaxLineQuantity), w.Body.String())
}

func TestUpdateAndRemoveCartItem(t *testing.T) {
	s := newTestServer(t, nil)
	pid := s.seed(t, "Pencil", 10, true)

	w := s.do(t, http.MethodPost, "/api/v1/cart/items", 1, AddItemRequest{ProductID: pid, Quantity: 1})
	require.Equal(t, http.StatusCreated, w.Code)
	var item models.CartItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.False(t, item.AddedAt.IsZero())
	path := fmt.Sprintf("/api/v1/cart/items/%d", item.ID)

	w = s.do(t, http.MethodPut, path, 2, gin.H{"quantity": 4})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPut, path, 1, gin.H{"quantity": 4})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/cart/summary", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total": 40, "item_count": 4}`, w.Body.String())

	w = s.do(t, http.MethodDelete, path, 2, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, path, 1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodDelete, path, 1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/cart", 1, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWishlistEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	pid := s.seed(t, "Cactus", 15, true)
	path := fmt.Sprintf("/api/v1/wishlist/%d", pid)

	w := s.do(t, http.MethodPost, path+"/toggle", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":"added"`)

	w = s.do(t, http.MethodGet, path, 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"in_wishlist":true`)

	w = s.do(t, http.MethodGet, "/api/v1/wishlist", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, fmt.Sprintf(`{"product_ids": [%d]}`, pid), w.Body.String())

	w = s.do(t, http.MethodPost, path+"/toggle", 1, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"result":"removed"`)

	w = s.do(t, http.MethodPost, "/api/v1/wishlist/424242/toggle", 1, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadiness(t *testing.T) {
	s := newTestServer(t, map[string]Pinger{"database": stubPinger{}})
	w := s.do(t, http.MethodGet, "/ready", 0, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	s = newTestServer(t, map[string]Pinger{"redis": stubPinger{err: errors.New("down")}})
	w = s.do(t, http.MethodGet, "/ready", 0, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "redis")
}

func TestWriteErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := &Handler{logger: zap.NewNop()}

	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", models.ErrNotFound), http.StatusNotFound},
		{models.ErrInvalidQuantity, http.StatusBadRequest},
		{models.ErrProductUnavailable, http.StatusConflict},
		{models.ErrEmptyCart, http.StatusConflict},
		{models.ErrAlreadyCancelled, http.StatusConflict},
		{fmt.Errorf("key: %w", models.ErrCheckoutInProgress), http.StatusConflict},
		{fmt.Errorf("%w: busy", models.ErrTransient), http.StatusServiceUnavailable},
		{models.ErrInvariantViolation, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		h.writeError(c, tt.err)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}
