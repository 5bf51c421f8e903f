package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c, err := NewClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCheckoutIdempotency(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	_, found, err := c.LookupCheckout(ctx, 1, "abc")
	require.NoError(t, err)
	assert.False(t, found)

	reserved, err := c.ReserveCheckout(ctx, 1, "abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)

	reserved, err = c.ReserveCheckout(ctx, 1, "abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, reserved)

	orderID, found, err := c.LookupCheckout(ctx, 1, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Zero(t, orderID, "reserved keys carry no order yet")

	require.NoError(t, c.CompleteCheckout(ctx, 1, "abc", 42, time.Hour))

	orderID, found, err = c.LookupCheckout(ctx, 1, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), orderID)

	_, found, err = c.LookupCheckout(ctx, 2, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReleaseCheckout(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	reserved, err := c.ReserveCheckout(ctx, 1, "k", time.Minute)
	require.NoError(t, err)
	require.True(t, reserved)

	require.NoError(t, c.ReleaseCheckout(ctx, 1, "k"))

	_, found, err := c.LookupCheckout(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, found)

	reserved, err = c.ReserveCheckout(ctx, 1, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, reserved)
}

func TestCheckoutIdempotencyExpires(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CompleteCheckout(ctx, 1, "k", 7, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, found, err := c.LookupCheckout(ctx, 1, "k")
	require.NoError(t, err)
	assert.False(t, found)

	_, err = c.ReserveCheckout(ctx, 1, "r", 30*time.Second)
	require.NoError(t, err)
	mr.FastForward(time.Minute)

	reserved, err := c.ReserveCheckout(ctx, 1, "r", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, reserved, "an abandoned reservation expires")
}

func TestLookupCorruptValue(t *testing.T) {
	c, mr := newTestClient(t)

	require.NoError(t, mr.Set(checkoutKey(1, "bad"), "not-a-number"))

	_, _, err := c.LookupCheckout(context.Background(), 1, "bad")
	assert.Error(t, err)
}

func TestPing(t *testing.T) {
	c, _ := newTestClient(t)
	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewClientUnreachable(t *testing.T) {
	_, err := NewClient("127.0.0.1:1", "", 0)
	assert.Error(t, err)
}
