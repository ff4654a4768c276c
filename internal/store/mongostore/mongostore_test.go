package mongostore

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/store/storetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	t.Skip("Integration test - requires MongoDB")

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := New(ctx, "mongodb://localhost:27017", "checkout_test_"+uuid.New().String()[:8])
		require.NoError(t, err)
		t.Cleanup(func() {
			_ = s.orders.Database().Drop(ctx)
			s.Close()
		})
		return s
	})
}

func TestStore_ReplaceUserCouponRollsBackOnReplicaSet(t *testing.T) {
	t.Skip("Integration test - requires a MongoDB replica set")

	ctx := context.Background()
	s, err := New(ctx, "mongodb://localhost:27017/?replicaSet=rs0", "checkout_test_"+uuid.New().String()[:8])
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.orders.Database().Drop(ctx)
		s.Close()
	})
	require.True(t, s.transactional)

	now := time.Now().UTC().Truncate(time.Second)
	coupon := func(id, userID, code string) *models.Coupon {
		return &models.Coupon{
			ID:                 id,
			Code:               code,
			DiscountPercentage: 10,
			ExpirationDate:     now.Add(24 * time.Hour),
			UserID:             userID,
			IsActive:           true,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
	}

	_, err = s.ReplaceUserCoupon(ctx, coupon("c-1", "u1", "GIFTAAAAAA"))
	require.NoError(t, err)
	_, err = s.ReplaceUserCoupon(ctx, coupon("c-2", "u2", "GIFTBBBBBB"))
	require.NoError(t, err)

	// The insert collides on _id, so the delete of u1's coupon must not stick.
	_, err = s.ReplaceUserCoupon(ctx, coupon("c-2", "u1", "GIFTCCCCCC"))
	require.Error(t, err)

	got, err := s.FindActiveCouponByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "GIFTAAAAAA", got.Code)
}
