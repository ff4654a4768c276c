package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestHandleMessage_RoutesGiftCouponRequested(t *testing.T) {
	eh := NewEventHandler()

	var got *models.GiftCouponRequestedEvent
	eh.OnGiftCouponRequested(func(_ context.Context, e *models.GiftCouponRequestedEvent) error {
		got = e
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.GiftCouponRequestedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   "evt-1",
			EventType: models.EventTypeGiftCouponRequested,
			Timestamp: time.Now(),
		},
		UserID: "user-1",
		Source: "checkout",
	}))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "checkout", got.Source)
}

func TestHandleMessage_PropagatesHandlerError(t *testing.T) {
	eh := NewEventHandler()
	eh.OnGiftCouponRequested(func(context.Context, *models.GiftCouponRequestedEvent) error {
		return errors.New("store down")
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.GiftCouponRequestedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypeGiftCouponRequested},
		UserID:    "user-1",
	}))
	assert.Error(t, err)
}

func TestHandleMessage_SkipsOtherEvents(t *testing.T) {
	eh := NewEventHandler()
	eh.OnGiftCouponRequested(func(context.Context, *models.GiftCouponRequestedEvent) error {
		t.Fatal("unexpected dispatch")
		return nil
	})

	err := eh.HandleMessage(context.Background(), message(t, &models.PaymentVerifiedEvent{
		BaseEvent: models.BaseEvent{EventType: models.EventTypePaymentVerified},
	}))
	assert.NoError(t, err)
}

func TestHandleMessage_InvalidJSON(t *testing.T) {
	err := NewEventHandler().HandleMessage(context.Background(), kafka.Message{Value: []byte("{")})
	assert.Error(t, err)
}

func TestHeaderCarrier(t *testing.T) {
	c := headerCarrier{}
	c.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("missing"))
	assert.Equal(t, []string{"traceparent"}, c.Keys())
}
