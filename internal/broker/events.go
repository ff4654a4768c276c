package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher publishes checkout domain events to Kafka
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// Events are keyed by user so that one user's events stay ordered.
func userKey(userID string) string {
	return fmt.Sprintf("user-%s", userID)
}

// PublishCheckoutCreated publishes CheckoutCreated event
func (ep *EventPublisher) PublishCheckoutCreated(ctx context.Context, event *models.CheckoutCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishPaymentVerified publishes PaymentVerified event
func (ep *EventPublisher) PublishPaymentVerified(ctx context.Context, event *models.PaymentVerifiedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishGiftCouponRequested publishes GiftCouponRequested event
func (ep *EventPublisher) PublishGiftCouponRequested(ctx context.Context, event *models.GiftCouponRequestedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// PublishGiftCouponIssued publishes GiftCouponIssued event
func (ep *EventPublisher) PublishGiftCouponIssued(ctx context.Context, event *models.GiftCouponIssuedEvent) error {
	return ep.producer.PublishEvent(ctx, userKey(event.UserID), event)
}

// NopPublisher discards every event. Used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishCheckoutCreated(context.Context, *models.CheckoutCreatedEvent) error {
	return nil
}

func (NopPublisher) PublishPaymentVerified(context.Context, *models.PaymentVerifiedEvent) error {
	return nil
}

func (NopPublisher) PublishGiftCouponRequested(context.Context, *models.GiftCouponRequestedEvent) error {
	return nil
}

func (NopPublisher) PublishGiftCouponIssued(context.Context, *models.GiftCouponIssuedEvent) error {
	return nil
}

// EventHandler routes incoming events to registered callbacks
type EventHandler struct {
	onGiftCouponRequested func(context.Context, *models.GiftCouponRequestedEvent) error
	logger                *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{logger: util.GetLogger()}
}

// OnGiftCouponRequested registers a handler for GiftCouponRequested events
func (eh *EventHandler) OnGiftCouponRequested(handler func(context.Context, *models.GiftCouponRequestedEvent) error) {
	eh.onGiftCouponRequested = handler
}

// HandleMessage routes messages to appropriate handlers. Events without a
// registered handler are acknowledged and skipped.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeGiftCouponRequested:
		if eh.onGiftCouponRequested != nil {
			var event models.GiftCouponRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal GiftCouponRequested event: %w", err)
			}
			return eh.onGiftCouponRequested(ctx, &event)
		}

	default:
		eh.logger.Debug("Skipping event",
			zap.String("event_type", baseEvent.EventType),
			zap.String("event_id", baseEvent.EventID))
	}

	return nil
}
