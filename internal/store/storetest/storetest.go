// Package storetest holds behavioural tests shared by every store.Store backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) store.Store

// Run exercises the store.Store contract against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("OrderUniqueKeys", func(t *testing.T) { testOrderUniqueKeys(t, newStore(t)) })
	t.Run("OrderRoundTrip", func(t *testing.T) { testOrderRoundTrip(t, newStore(t)) })
	t.Run("OrderReadIsolation", func(t *testing.T) { testOrderReadIsolation(t, newStore(t)) })
	t.Run("CouponLookup", func(t *testing.T) { testCouponLookup(t, newStore(t)) })
	t.Run("CouponReplace", func(t *testing.T) { testCouponReplace(t, newStore(t)) })
	t.Run("Aggregates", func(t *testing.T) { testAggregates(t, newStore(t)) })
}

func newOrder(userID, rzpOrder, rzpPayment string, amount int64, at time.Time) *models.Order {
	return &models.Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		TotalAmount:       amount,
		RazorpayOrderID:   rzpOrder,
		RazorpayPaymentID: rzpPayment,
		RazorpaySignature: "sig",
		CreatedAt:         at,
		UpdatedAt:         at,
		Products: []models.OrderItem{
			{ProductID: "prod-1", Quantity: 1, Price: 100},
		},
	}
}

func newCoupon(userID, code string, active bool) *models.Coupon {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Coupon{
		ID:                 uuid.New().String(),
		Code:               code,
		DiscountPercentage: 10,
		ExpirationDate:     now.Add(30 * 24 * time.Hour),
		UserID:             userID,
		IsActive:           active,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func testOrderUniqueKeys(t *testing.T, s store.Store) {
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.CreateOrder(ctx, newOrder("u1", "order_1", "pay_1", 1000, now)))

	err := s.CreateOrder(ctx, newOrder("u1", "order_1", "pay_2", 1000, now))
	assert.ErrorIs(t, err, store.ErrDuplicateKey, "same gateway order id")

	err = s.CreateOrder(ctx, newOrder("u1", "order_2", "pay_1", 1000, now))
	assert.ErrorIs(t, err, store.ErrDuplicateKey, "same gateway payment id")
}

func testOrderRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	o := newOrder("u1", "order_rt", "pay_rt", 300000, time.Now().UTC())
	o.Products = []models.OrderItem{
		{ProductID: "prod-1", Quantity: 2, Price: 1500},
		{ProductID: "prod-2", Quantity: 1, Price: 0.5},
	}
	require.NoError(t, s.CreateOrder(ctx, o))

	got, err := s.GetOrderByRazorpayOrderID(ctx, "order_rt")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, int64(300000), got.TotalAmount)
	assert.Equal(t, "pay_rt", got.RazorpayPaymentID)
	assert.Len(t, got.Products, 2)

	_, err = s.GetOrderByRazorpayOrderID(ctx, "order_missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testOrderReadIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateOrder(ctx, newOrder("u1", "order_iso", "pay_iso", 10000, time.Now().UTC())))

	first, err := s.GetOrderByRazorpayOrderID(ctx, "order_iso")
	require.NoError(t, err)
	first.Products[0].ProductID = "tampered"
	first.Products[0].Quantity = 99

	again, err := s.GetOrderByRazorpayOrderID(ctx, "order_iso")
	require.NoError(t, err)
	assert.Equal(t, "prod-1", again.Products[0].ProductID)
	assert.Equal(t, 1, again.Products[0].Quantity)
}

func testCouponLookup(t *testing.T, s store.Store) {
	ctx := context.Background()
	_, err := s.ReplaceUserCoupon(ctx, newCoupon("u1", "SAVE10", true))
	require.NoError(t, err)

	c, err := s.FindActiveCoupon(ctx, "u1", "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)

	_, err = s.FindActiveCoupon(ctx, "u2", "SAVE10")
	assert.ErrorIs(t, err, store.ErrNotFound, "coupon belongs to another user")

	c, err = s.FindActiveCouponByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)

	require.NoError(t, s.DeactivateCoupon(ctx, "u1", "SAVE10"))
	_, err = s.FindActiveCoupon(ctx, "u1", "SAVE10")
	assert.ErrorIs(t, err, store.ErrNotFound, "inactive coupon")
	_, err = s.FindActiveCouponByUser(ctx, "u1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, s.DeactivateCoupon(ctx, "u1", "UNKNOWN"), store.ErrNotFound)
}

func testCouponReplace(t *testing.T, s store.Store) {
	ctx := context.Background()

	deleted, err := s.ReplaceUserCoupon(ctx, newCoupon("u1", "GIFTAAAAAA", true))
	require.NoError(t, err)
	assert.Empty(t, deleted)

	deleted, err = s.ReplaceUserCoupon(ctx, newCoupon("u1", "GIFTBBBBBB", true))
	require.NoError(t, err)
	assert.Equal(t, []string{"GIFTAAAAAA"}, deleted)

	_, err = s.FindActiveCoupon(ctx, "u1", "GIFTAAAAAA")
	assert.ErrorIs(t, err, store.ErrNotFound)
	c, err := s.FindActiveCouponByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "GIFTBBBBBB", c.Code)
}

func testAggregates(t *testing.T, s store.Store) {
	ctx := context.Background()
	day1 := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 18, 30, 0, 0, time.UTC)

	require.NoError(t, s.CreateOrder(ctx, newOrder("u1", "o1", "p1", 1000, day1)))
	require.NoError(t, s.CreateOrder(ctx, newOrder("u2", "o2", "p2", 2500, day1.Add(time.Hour))))
	require.NoError(t, s.CreateOrder(ctx, newOrder("u1", "o3", "p3", 500, day2)))

	totals, err := s.SalesTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Users)
	assert.Equal(t, int64(1), totals.Products)
	assert.Equal(t, int64(3), totals.Orders)
	assert.Equal(t, int64(4000), totals.AmountMinor)

	daily, err := s.DailyTotals(ctx, day1.Truncate(24*time.Hour), day2.Truncate(24*time.Hour).Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, daily, 2)
	assert.Equal(t, models.DailyTotal{Date: "2024-03-01", Orders: 2, AmountMinor: 3500}, daily[0])
	assert.Equal(t, models.DailyTotal{Date: "2024-03-02", Orders: 1, AmountMinor: 500}, daily[1])
}
