package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateGiftCode(t *testing.T) {
	re := regexp.MustCompile(`^GIFT[0-9A-Z]{6}$`)
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code, err := GenerateGiftCode()
		require.NoError(t, err)
		assert.Regexp(t, re, code)
		seen[code] = struct{}{}
	}
	assert.Greater(t, len(seen), 190)
}

func TestIssueGiftCoupon_ReplacesPreviousCoupon(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	env.coupons.now = func() time.Time { return now }
	seq := 0
	env.coupons.newCode = func() (string, error) {
		seq++
		return fmt.Sprintf("GIFT00000%d", seq), nil
	}
	env.mem.PutCoupon(activeCoupon("user-1", "SAVE10", 10))

	first, err := env.coupons.IssueGiftCoupon(context.Background(), "user-1")
	require.NoError(t, err)
	second, err := env.coupons.IssueGiftCoupon(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, "GIFT000001", first.Code)
	assert.Equal(t, "GIFT000002", second.Code)

	coupons := env.mem.Coupons("user-1")
	require.Len(t, coupons, 1)
	c := coupons[0]
	assert.Equal(t, "GIFT000002", c.Code)
	assert.Equal(t, 10.0, c.DiscountPercentage)
	assert.True(t, c.IsActive)
	assert.Equal(t, now.Add(30*24*time.Hour), c.ExpirationDate)

	require.Len(t, env.events.giftsIssued, 2)
	assert.Equal(t, "GIFT000002", env.events.giftsIssued[1].Code)
}

func TestIssueGiftCoupon_Errors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coupons.IssueGiftCoupon(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	env.store.replaceErr = errors.New("write conflict")
	_, err = env.coupons.IssueGiftCoupon(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrCouponIssuance)
	assert.Empty(t, env.events.giftsIssued)

	env.store.replaceErr = nil
	env.coupons.newCode = func() (string, error) { return "", errors.New("entropy exhausted") }
	_, err = env.coupons.IssueGiftCoupon(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrCouponIssuance)
}

func TestGetMyCoupon(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.coupons.GetMyCoupon(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrCouponNotFound)

	env.mem.PutCoupon(activeCoupon("user-1", "SAVE10", 10))
	c, err := env.coupons.GetMyCoupon(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "SAVE10", c.Code)

	_, err = env.coupons.GetMyCoupon(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateCoupon(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		env := newTestEnv(t)
		env.mem.PutCoupon(activeCoupon("user-1", "SAVE10", 10))

		c, err := env.coupons.ValidateCoupon(context.Background(), "user-1", "SAVE10")
		require.NoError(t, err)
		assert.Equal(t, 10.0, c.DiscountPercentage)
	})

	t.Run("unknown", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.coupons.ValidateCoupon(context.Background(), "user-1", "NOPE")
		assert.ErrorIs(t, err, ErrCouponNotFound)
	})

	t.Run("expired is deactivated", func(t *testing.T) {
		env := newTestEnv(t)
		env.mem.PutCoupon(activeCoupon("user-1", "SAVE10", 10))
		env.coupons.now = func() time.Time { return time.Now().Add(48 * time.Hour) }

		_, err := env.coupons.ValidateCoupon(context.Background(), "user-1", "SAVE10")
		assert.ErrorIs(t, err, ErrCouponExpired)
		assert.False(t, env.mem.Coupons("user-1")[0].IsActive)
	})

	t.Run("missing code", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.coupons.ValidateCoupon(context.Background(), "user-1", "")
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestEventGiftDispatcher(t *testing.T) {
	events := &recordingPublisher{}
	d := NewEventGiftDispatcher(events)

	res := d.DispatchGiftCoupon(context.Background(), "user-1", GiftSourceVerification)
	assert.True(t, res.OK())
	require.Len(t, events.giftRequests, 1)
	assert.Equal(t, "user-1", events.giftRequests[0].UserID)
	assert.Equal(t, GiftSourceVerification, events.giftRequests[0].Source)

	events.err = errors.New("broker down")
	res = d.DispatchGiftCoupon(context.Background(), "user-1", GiftSourceCheckout)
	assert.True(t, res.Attempted)
	assert.Error(t, res.Err)
}
