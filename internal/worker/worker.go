package worker

import (
	"context"
	"errors"

	"checkout-service/internal/broker"
	"checkout-service/internal/models"
	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

// GiftCouponIssuer is implemented by service.CouponService
type GiftCouponIssuer interface {
	IssueGiftCoupon(ctx context.Context, userID string) (*models.Coupon, error)
}

// GiftCouponWorker issues gift coupons requested through Kafka
type GiftCouponWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	issuer       GiftCouponIssuer
	logger       *zap.Logger
}

// NewGiftCouponWorker creates a new gift coupon worker
func NewGiftCouponWorker(consumer *broker.Consumer, issuer GiftCouponIssuer) *GiftCouponWorker {
	w := &GiftCouponWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		issuer:       issuer,
		logger:       util.GetLogger(),
	}
	w.eventHandler.OnGiftCouponRequested(w.HandleGiftCouponRequested)
	return w
}

// HandleGiftCouponRequested issues the coupon for one event. Malformed
// requests are dropped; store failures are returned so the consumer retries
// the message before committing it.
func (w *GiftCouponWorker) HandleGiftCouponRequested(ctx context.Context, event *models.GiftCouponRequestedEvent) error {
	ctx, span := util.StartSpan(ctx, "GiftCouponWorker.HandleGiftCouponRequested")
	defer span.End()

	coupon, err := w.issuer.IssueGiftCoupon(ctx, event.UserID)
	if errors.Is(err, service.ErrValidation) {
		w.logger.Warn("Dropping invalid gift coupon request",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return nil
	}
	if err != nil {
		util.GiftCouponsFailedTotal.WithLabelValues(event.Source).Inc()
		return err
	}

	w.logger.Info("Gift coupon issued from event",
		zap.String("event_id", event.EventID),
		zap.String("user_id", event.UserID),
		zap.String("source", event.Source),
		zap.String("coupon_code", coupon.Code))
	return nil
}

// Start starts the worker
func (w *GiftCouponWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting gift coupon worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *GiftCouponWorker) Stop() error {
	w.logger.Info("Stopping gift coupon worker")
	return w.consumer.Close()
}
