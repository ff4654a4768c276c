package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifiedPaymentCache(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	c, err := NewClient("localhost:6379", "", 15)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	defer c.GetClient().Del(ctx, verifiedPaymentKey("pay_cache_test"))

	_, found, err := c.VerifiedPaymentOrder(ctx, "pay_cache_test")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.RememberVerifiedPayment(ctx, "pay_cache_test", "order-1", time.Minute))
	require.NoError(t, c.RememberVerifiedPayment(ctx, "pay_cache_test", "order-2", time.Minute))

	orderID, found, err := c.VerifiedPaymentOrder(ctx, "pay_cache_test")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "order-1", orderID)
}

func TestVerifiedPaymentKey(t *testing.T) {
	assert.Equal(t, "verified-payment:pay_123", verifiedPaymentKey("pay_123"))
}
