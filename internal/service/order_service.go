package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService turns carts into orders and manages the order lifecycle
type OrderService struct {
	store          *store.Store
	eventPublisher EventPublisher
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	retry          RetryPolicy
	logger         *zap.Logger
}

// NewOrderService creates a new order service. eventPublisher and idempotency
// may be nil, which disables events and idempotency keys respectively.
func NewOrderService(
	store *store.Store,
	eventPublisher EventPublisher,
	idempotency IdempotencyStore,
	idempotencyTTL time.Duration,
	retry RetryPolicy,
) *OrderService {
	return &OrderService{
		store:          store,
		eventPublisher: eventPublisher,
		idempotency:    idempotency,
		idempotencyTTL: idempotencyTTL,
		retry:          retry,
		logger:         util.GetLogger(),
	}
}

// checkoutReservationTTL is how long a key stays reserved by a checkout that
// never completes or releases it
const checkoutReservationTTL = 30 * time.Second

// Checkout converts the user's cart into a pending order and returns its id.
// The cart snapshot, the order, its items and the cart clear commit as one
// transaction. A non-empty idempotencyKey makes retries of the same request
// return the order created by the first one; a retry that overlaps the first
// request reports ErrCheckoutInProgress.
func (s *OrderService) Checkout(ctx context.Context, userID int64, idempotencyKey string) (int64, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Checkout")
	defer span.End()

	start := time.Now()
	defer func() {
		util.CheckoutLatency.Observe(time.Since(start).Seconds())
	}()

	reserved := false
	if idempotencyKey != "" && s.idempotency != nil {
		orderID, owned, err := s.reserveCheckout(ctx, userID, idempotencyKey)
		if err != nil {
			util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
			return 0, err
		}
		if orderID != 0 {
			s.logger.Info("Duplicate checkout request detected",
				zap.String("idempotency_key", idempotencyKey),
				zap.Int64("order_id", orderID))
			return orderID, nil
		}
		reserved = owned
	}

	var (
		order *models.Order
		items []models.OrderItem
	)
	err := s.retry.do(ctx, "checkout", func() error {
		var err error
		order, items, err = s.checkoutTx(ctx, userID)
		return err
	})
	if err != nil {
		if reserved {
			if rerr := s.idempotency.ReleaseCheckout(ctx, userID, idempotencyKey); rerr != nil {
				s.logger.Warn("Failed to release idempotency key",
					zap.String("idempotency_key", idempotencyKey), zap.Error(rerr))
			}
		}
		util.OrdersFailedTotal.WithLabelValues(failureReason(err)).Inc()
		return 0, err
	}

	util.OrdersCreatedTotal.Inc()
	s.logger.Info("Order created",
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Int64("total_price", order.TotalPrice),
		zap.Int("items", len(items)))

	if reserved {
		if err := s.idempotency.CompleteCheckout(ctx, userID, idempotencyKey, order.ID, s.idempotencyTTL); err != nil {
			s.logger.Error("Failed to store idempotency key", zap.Int64("order_id", order.ID), zap.Error(err))
		}
	}

	s.publishOrderCreated(ctx, order, items)
	return order.ID, nil
}

// reserveCheckout claims key for this request. It returns the order of an
// earlier completed request with the same key, or owned when this request
// holds the reservation. Redis failures fall back to an unguarded checkout.
func (s *OrderService) reserveCheckout(ctx context.Context, userID int64, key string) (int64, bool, error) {
	ok, err := s.idempotency.ReserveCheckout(ctx, userID, key, checkoutReservationTTL)
	if err != nil {
		s.logger.Warn("Idempotency reservation failed", zap.String("idempotency_key", key), zap.Error(err))
		return 0, false, nil
	}
	if ok {
		return 0, true, nil
	}

	orderID, found, err := s.idempotency.LookupCheckout(ctx, userID, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return 0, false, nil
	}
	if found && orderID == 0 {
		return 0, false, fmt.Errorf("idempotency key %q: %w", key, models.ErrCheckoutInProgress)
	}
	// a reservation that expired between the two calls leaves the key unguarded
	return orderID, false, nil
}

func (s *OrderService) checkoutTx(ctx context.Context, userID int64) (*models.Order, []models.OrderItem, error) {
	var (
		order *models.Order
		items []models.OrderItem
	)

	err := s.store.WithinTx(ctx, func(tx *store.Tx) error {
		cart, err := tx.TakeCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(cart) == 0 {
			return fmt.Errorf("user %d: %w", userID, models.ErrEmptyCart)
		}

		productIDs := make([]int64, len(cart))
		for i, line := range cart {
			productIDs[i] = line.ProductID
		}
		products, err := tx.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		prices := make(map[int64]int64, len(products))
		for _, p := range products {
			prices[p.ID] = p.Price
		}

		items = make([]models.OrderItem, 0, len(cart))
		for _, line := range cart {
			price, ok := prices[line.ProductID]
			if !ok {
				s.logger.Warn("Dropping cart line for product no longer in catalog",
					zap.Int64("user_id", userID),
					zap.Int64("product_id", line.ProductID))
				continue
			}
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price,
			})
		}
		if len(items) == 0 {
			return fmt.Errorf("user %d: %w", userID, models.ErrEmptyCart)
		}

		total, err := orderTotal(items)
		if err != nil {
			return err
		}

		order = &models.Order{
			UserID:     userID,
			TotalPrice: total,
			Status:     models.OrderStatusPending,
		}
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
			if err := tx.CreateOrderItem(ctx, &items[i]); err != nil {
				return fmt.Errorf("failed to create order item: %w", err)
			}
		}

		persisted, err := tx.OrderItemsTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		if persisted != total {
			s.logger.Error("Order total does not match its items",
				zap.Int64("order_id", order.ID),
				zap.Int64("order_total", total),
				zap.Int64("items_total", persisted))
			return fmt.Errorf("order %d total %d, items sum to %d: %w",
				order.ID, total, persisted, models.ErrInvariantViolation)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// orderTotal sums quantity * unit price over items, failing on int64 overflow
func orderTotal(items []models.OrderItem) (int64, error) {
	var total int64
	for _, item := range items {
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			return 0, fmt.Errorf("product %d: quantity %d at price %d: %w",
				item.ProductID, item.Quantity, item.UnitPrice, models.ErrInvariantViolation)
		}
		q := int64(item.Quantity)
		if item.UnitPrice > math.MaxInt64/q {
			return 0, fmt.Errorf("product %d line total overflows: %w", item.ProductID, models.ErrInvariantViolation)
		}
		line := q * item.UnitPrice
		if total > math.MaxInt64-line {
			return 0, fmt.Errorf("order total overflows: %w", models.ErrInvariantViolation)
		}
		total += line
	}
	return total, nil
}

// Cancel moves a pending order to cancelled. It reports ErrNotFound for an
// order the user does not own and ErrAlreadyCancelled for a repeat cancel.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID int64) error {
	ctx, span := util.StartSpan(ctx, "OrderService.Cancel")
	defer span.End()

	err := s.retry.do(ctx, "cancel", func() error {
		return s.store.CancelOrder(ctx, userID, orderID)
	})
	if err != nil {
		return err
	}

	util.OrdersCancelledTotal.Inc()
	s.logger.Info("Order cancelled", zap.Int64("order_id", orderID), zap.Int64("user_id", userID))

	if s.eventPublisher != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: newBaseEvent(models.EventTypeOrderCancelled),
			OrderID:   orderID,
			UserID:    userID,
		}
		if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Int64("order_id", orderID), zap.Error(err))
		}
	}
	return nil
}

// ListOrders returns the user's orders newest first, each with its items.
// All items are fetched in one query.
func (s *OrderService) ListOrders(ctx context.Context, userID int64) ([]models.OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ListOrders")
	defer span.End()

	var orders []models.Order
	err := s.retry.do(ctx, "list_orders", func() error {
		var err error
		orders, err = s.store.GetOrdersByUserID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return s.attachItems(ctx, orders)
}

// GetOrder returns a single order of the user with its items
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID int64) (*models.OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	var order *models.Order
	err := s.retry.do(ctx, "get_order", func() error {
		var err error
		order, err = s.store.GetOrderForUser(ctx, userID, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	details, err := s.attachItems(ctx, []models.Order{*order})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

func (s *OrderService) attachItems(ctx context.Context, orders []models.Order) ([]models.OrderDetails, error) {
	orderIDs := make([]int64, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
	}

	var views []models.OrderItemView
	err := s.retry.do(ctx, "order_items", func() error {
		var err error
		views, err = s.store.GetOrderItemViews(ctx, orderIDs)
		return err
	})
	if err != nil {
		return nil, err
	}

	byOrder := make(map[int64][]models.OrderItemView, len(orders))
	for _, v := range views {
		byOrder[v.OrderID] = append(byOrder[v.OrderID], v)
	}

	details := make([]models.OrderDetails, len(orders))
	for i, o := range orders {
		items := byOrder[o.ID]
		if items == nil {
			items = []models.OrderItemView{}
		}
		details[i] = models.OrderDetails{Order: o, Items: items}
	}
	return details, nil
}

func (s *OrderService) publishOrderCreated(ctx context.Context, order *models.Order, items []models.OrderItem) {
	if s.eventPublisher == nil {
		return
	}

	data := make([]models.OrderItemData, len(items))
	for i, item := range items {
		data[i] = models.OrderItemData{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		}
	}

	event := &models.OrderCreatedEvent{
		BaseEvent:  newBaseEvent(models.EventTypeOrderCreated),
		OrderID:    order.ID,
		UserID:     order.UserID,
		TotalPrice: order.TotalPrice,
		Items:      data,
	}
	if err := s.eventPublisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, models.ErrCheckoutInProgress):
		return "in_progress"
	case errors.Is(err, models.ErrTransient):
		return "transient"
	case errors.Is(err, models.ErrInvariantViolation):
		return "invariant_violation"
	default:
		return "db_error"
	}
}
