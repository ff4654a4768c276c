package service

import (
	"context"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// Gift sources, used as metric labels and event payloads.
const (
	GiftSourceCheckout     = "checkout"
	GiftSourceVerification = "verification"
)

// BestEffort is the outcome of a side effect whose failure must not fail
// the operation that triggered it.
type BestEffort struct {
	Attempted bool
	Err       error
}

// OK reports whether the side effect was attempted and succeeded.
func (b BestEffort) OK() bool {
	return b.Attempted && b.Err == nil
}

// GiftDispatcher triggers gift coupon issuance for a user.
type GiftDispatcher interface {
	DispatchGiftCoupon(ctx context.Context, userID, source string) BestEffort
}

// InlineGiftDispatcher issues the coupon within the calling request.
type InlineGiftDispatcher struct {
	coupons *CouponService
}

func NewInlineGiftDispatcher(coupons *CouponService) *InlineGiftDispatcher {
	return &InlineGiftDispatcher{coupons: coupons}
}

func (d *InlineGiftDispatcher) DispatchGiftCoupon(ctx context.Context, userID, _ string) BestEffort {
	_, err := d.coupons.IssueGiftCoupon(ctx, userID)
	return BestEffort{Attempted: true, Err: err}
}

// EventGiftDispatcher hands issuance to the gift coupon worker through a
// GIFT_COUPON_REQUESTED event.
type EventGiftDispatcher struct {
	events EventPublisher
}

func NewEventGiftDispatcher(events EventPublisher) *EventGiftDispatcher {
	return &EventGiftDispatcher{events: events}
}

func (d *EventGiftDispatcher) DispatchGiftCoupon(ctx context.Context, userID, source string) BestEffort {
	err := d.events.PublishGiftCouponRequested(ctx, &models.GiftCouponRequestedEvent{
		BaseEvent: newBaseEvent(models.EventTypeGiftCouponRequested),
		UserID:    userID,
		Source:    source,
	})
	return BestEffort{Attempted: true, Err: err}
}

// dispatchGift runs the gift side effect and logs its failure. The result is
// returned for tests; callers never turn it into an error.
func dispatchGift(ctx context.Context, gifts GiftDispatcher, logger *zap.Logger, userID, source string) BestEffort {
	res := gifts.DispatchGiftCoupon(ctx, userID, source)
	if res.Err != nil {
		util.GiftCouponsFailedTotal.WithLabelValues(source).Inc()
		util.LoggerFor(ctx, logger).Error("Gift coupon issuance failed",
			zap.String("user_id", userID),
			zap.String("source", source),
			zap.Error(res.Err))
	}
	return res
}
