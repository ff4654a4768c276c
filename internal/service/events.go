package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher is implemented by broker.EventPublisher and broker.NopPublisher.
type EventPublisher interface {
	PublishCheckoutCreated(ctx context.Context, event *models.CheckoutCreatedEvent) error
	PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error
	PublishGiftCouponRequested(ctx context.Context, event *models.GiftCouponRequestedEvent) error
	PublishGiftCouponIssued(ctx context.Context, event *models.GiftCouponIssuedEvent) error
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

// logPublishError records a failed publish. Events never fail the request
// that emitted them.
func logPublishError(logger *zap.Logger, eventType string, err error) {
	if err == nil {
		return
	}
	util.EventsPublishFailedTotal.WithLabelValues(eventType).Inc()
	logger.Error("Failed to publish event", zap.String("event_type", eventType), zap.Error(err))
}
