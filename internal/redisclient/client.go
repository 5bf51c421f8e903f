package redisclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Ping checks the Redis connection
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func checkoutKey(userID int64, key string) string {
	return fmt.Sprintf("idempotency:checkout:%d:%s", userID, key)
}

// checkoutPending marks a key reserved by a checkout that has not finished
const checkoutPending = "pending"

// ReserveCheckout claims an idempotency key for a checkout about to run. It
// reports false when the key is already reserved or completed.
func (c *Client) ReserveCheckout(ctx context.Context, userID int64, key string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, checkoutKey(userID, key), checkoutPending, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// CompleteCheckout records the order created under a reserved key
func (c *Client) CompleteCheckout(ctx context.Context, userID int64, key string, orderID int64, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, checkoutKey(userID, key), orderID, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// ReleaseCheckout drops the reservation of a checkout that failed so the key
// can be used again
func (c *Client) ReleaseCheckout(ctx context.Context, userID int64, key string) error {
	if err := c.rdb.Del(ctx, checkoutKey(userID, key)).Err(); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// LookupCheckout returns the order created for an idempotency key, if any. A
// key still reserved by a running checkout is found with a zero order id.
func (c *Client) LookupCheckout(ctx context.Context, userID int64, key string) (int64, bool, error) {
	val, err := c.rdb.Get(ctx, checkoutKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read idempotency key: %w", err)
	}
	if val == checkoutPending {
		return 0, true, nil
	}

	orderID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt idempotency value %q: %w", val, err)
	}
	return orderID, true, nil
}
