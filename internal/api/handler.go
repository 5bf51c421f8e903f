package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// UserIDHeader carries the authenticated user id set by the upstream auth layer
const UserIDHeader = "X-User-ID"

const userIDKey = "user_id"

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	cartService     *service.CartService
	orderService    *service.OrderService
	wishlistService *service.WishlistService
	readiness       map[string]Pinger
	logger          *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cartService *service.CartService,
	orderService *service.OrderService,
	wishlistService *service.WishlistService,
	readiness map[string]Pinger,
) *Handler {
	return &Handler{
		cartService:     cartService,
		orderService:    orderService,
		wishlistService: wishlistService,
		readiness:       readiness,
		logger:          util.GetLogger(),
	}
}

// AddItemRequest is the body of POST /cart/items. The quantity bound matches
// models.MaxLineQuantity.
type AddItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity" binding:"required,gte=1,lte=999"`
}

// UpdateItemRequest is the body of PUT /cart/items/:id. A quantity of zero or
// less removes the item.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" binding:"required,lte=999"`
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(userIDMiddleware())
	{
		v1.GET("/cart", h.getCart)
		v1.GET("/cart/summary", h.getCartSummary)
		v1.POST("/cart/items", h.addCartItem)
		v1.PUT("/cart/items/:id", h.updateCartItem)
		v1.DELETE("/cart/items/:id", h.removeCartItem)
		v1.DELETE("/cart", h.clearCart)

		v1.POST("/checkout", h.checkout)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.POST("/orders/:id/cancel", h.cancelOrder)

		v1.GET("/wishlist", h.getWishlist)
		v1.GET("/wishlist/:product_id", h.wishlistContains)
		v1.POST("/wishlist/:product_id/toggle", h.toggleWishlist)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every registered dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) getCart(c *gin.Context) {
	lines, err := h.cartService.List(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	var total int64
	count := 0
	for _, l := range lines {
		total += l.LineTotal
		count += l.Quantity
	}

	c.JSON(http.StatusOK, gin.H{
		"items":      lines,
		"total":      total,
		"item_count": count,
	})
}

func (h *Handler) getCartSummary(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.cartService.Total(ctx, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	count, err := h.cartService.Count(ctx, userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"item_count": count,
	})
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), userID(c), req.ProductID, req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

func (h *Handler) updateCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.cartService.UpdateItem(c.Request.Context(), userID(c), itemID, *req.Quantity); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), userID(c), itemID); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), userID(c)); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// checkout handles order creation from the cart
func (h *Handler) checkout(c *gin.Context) {
	orderID, err := h.orderService.Checkout(c.Request.Context(), userID(c), c.GetHeader("Idempotency-Key"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"order_id": orderID,
		"status":   models.OrderStatusPending,
	})
}

func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.orderService.ListOrders(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID(c), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *Handler) cancelOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.Cancel(c.Request.Context(), userID(c), orderID); err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order_id": orderID,
		"status":   models.OrderStatusCancelled,
	})
}

func (h *Handler) getWishlist(c *gin.Context) {
	ids, err := h.wishlistService.List(c.Request.Context(), userID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"product_ids": ids})
}

func (h *Handler) wishlistContains(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	found, err := h.wishlistService.Contains(c.Request.Context(), userID(c), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":  productID,
		"in_wishlist": found,
	})
}

func (h *Handler) toggleWishlist(c *gin.Context) {
	productID, ok := pathID(c, "product_id")
	if !ok {
		return
	}

	result, err := h.wishlistService.Toggle(c.Request.Context(), userID(c), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id": productID,
		"result":     result,
	})
}

// writeError maps core errors to HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrProductUnavailable),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrAlreadyCancelled),
		errors.Is(err, models.ErrCheckoutInProgress):
		status = http.StatusConflict
	case errors.Is(err, models.ErrTransient):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Int64("user_id", userID(c)),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// userIDMiddleware rejects requests without a valid user id header
func userIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(UserIDHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Missing or invalid " + UserIDHeader + " header",
			})
			return
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

func userID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return id, true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
