package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"checkout-service/internal/models"
	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type stubIssuer struct {
	users []string
	err   error
}

func (s *stubIssuer) IssueGiftCoupon(_ context.Context, userID string) (*models.Coupon, error) {
	s.users = append(s.users, userID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Coupon{Code: "GIFT123ABC", UserID: userID}, nil
}

func newTestWorker(t *testing.T, issuer *stubIssuer) *GiftCouponWorker {
	w := NewGiftCouponWorker(nil, issuer)
	w.logger = zaptest.NewLogger(t)
	return w
}

func TestGiftCouponWorker_HandlesRequestedEvent(t *testing.T) {
	issuer := &stubIssuer{}
	w := newTestWorker(t, issuer)

	body, err := json.Marshal(&models.GiftCouponRequestedEvent{
		BaseEvent: models.BaseEvent{EventID: "evt-1", EventType: models.EventTypeGiftCouponRequested},
		UserID:    "user-1",
		Source:    service.GiftSourceCheckout,
	})
	require.NoError(t, err)

	require.NoError(t, w.eventHandler.HandleMessage(context.Background(), kafka.Message{Value: body}))
	assert.Equal(t, []string{"user-1"}, issuer.users)
}

func TestGiftCouponWorker_StoreFailureIsReturned(t *testing.T) {
	issuer := &stubIssuer{err: errors.New("db down")}
	w := newTestWorker(t, issuer)

	err := w.HandleGiftCouponRequested(context.Background(), &models.GiftCouponRequestedEvent{UserID: "user-1"})
	assert.ErrorContains(t, err, "db down")
}

func TestGiftCouponWorker_DropsInvalidRequest(t *testing.T) {
	issuer := &stubIssuer{err: &service.ValidationError{Field: "userId", Message: "user id is required"}}
	w := newTestWorker(t, issuer)

	err := w.HandleGiftCouponRequested(context.Background(), &models.GiftCouponRequestedEvent{})
	assert.NoError(t, err)
}
