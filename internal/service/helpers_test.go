package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/gateway/gatewaytest"
	"checkout-service/internal/models"
	"checkout-service/internal/store/memstore"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	testKeyID  = "rzp_test_key"
	testSecret = "rzp_test_secret"
)

type recordingPublisher struct {
	mu           sync.Mutex
	err          error
	checkouts    []*models.CheckoutCreatedEvent
	verified     []*models.PaymentVerifiedEvent
	giftRequests []*models.GiftCouponRequestedEvent
	giftsIssued  []*models.GiftCouponIssuedEvent
}

func (p *recordingPublisher) PublishCheckoutCreated(_ context.Context, e *models.CheckoutCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checkouts = append(p.checkouts, e)
	return p.err
}

func (p *recordingPublisher) PublishPaymentVerified(_ context.Context, e *models.PaymentVerifiedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verified = append(p.verified, e)
	return p.err
}

func (p *recordingPublisher) PublishGiftCouponRequested(_ context.Context, e *models.GiftCouponRequestedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.giftRequests = append(p.giftRequests, e)
	return p.err
}

func (p *recordingPublisher) PublishGiftCouponIssued(_ context.Context, e *models.GiftCouponIssuedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.giftsIssued = append(p.giftsIssued, e)
	return p.err
}

// faultyStore injects errors in front of a memstore.
type faultyStore struct {
	*memstore.Store
	findErr    error
	replaceErr error
	createErr  error
	getErr     error
}

func (s *faultyStore) FindActiveCoupon(ctx context.Context, userID, code string) (*models.Coupon, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.Store.FindActiveCoupon(ctx, userID, code)
}

func (s *faultyStore) ReplaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error) {
	if s.replaceErr != nil {
		return nil, s.replaceErr
	}
	return s.Store.ReplaceUserCoupon(ctx, c)
}

func (s *faultyStore) CreateOrder(ctx context.Context, o *models.Order) error {
	if s.createErr != nil {
		return s.createErr
	}
	return s.Store.CreateOrder(ctx, o)
}

func (s *faultyStore) GetOrderByRazorpayOrderID(ctx context.Context, id string) (*models.Order, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.Store.GetOrderByRazorpayOrderID(ctx, id)
}

type mapCache struct {
	mu     sync.Mutex
	orders map[string]string
	err    error
}

func newMapCache() *mapCache {
	return &mapCache{orders: make(map[string]string)}
}

func (c *mapCache) VerifiedPaymentOrder(_ context.Context, paymentID string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return "", false, c.err
	}
	id, ok := c.orders[paymentID]
	return id, ok, nil
}

func (c *mapCache) RememberVerifiedPayment(_ context.Context, paymentID, orderID string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.orders[paymentID]; !ok {
		c.orders[paymentID] = orderID
	}
	return c.err
}

type testEnv struct {
	mem      *memstore.Store
	store    *faultyStore
	gw       *gatewaytest.Fake
	events   *recordingPublisher
	coupons  *CouponService
	checkout *CheckoutService
	verifier *PaymentVerifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := memstore.New()
	st := &faultyStore{Store: mem}
	gw := gatewaytest.New()
	events := &recordingPublisher{}
	logger := zaptest.NewLogger(t)

	coupons := NewCouponService(st, events, DefaultGiftCouponConfig)
	coupons.logger = logger
	gifts := NewInlineGiftDispatcher(coupons)

	checkout := NewCheckoutService(st, gw, gifts, events, CheckoutConfig{
		KeyID:              testKeyID,
		Currency:           "INR",
		GiftThresholdMinor: DefaultGiftThresholdMinor,
	})
	checkout.logger = logger

	verifier := NewPaymentVerifier(st, st, gw, gifts, events, nil, VerifierConfig{
		KeySecret:          testSecret,
		GiftThresholdMinor: DefaultGiftThresholdMinor,
		VerifiedPaymentTTL: time.Hour,
	})
	verifier.logger = logger

	return &testEnv{
		mem:      mem,
		store:    st,
		gw:       gw,
		events:   events,
		coupons:  coupons,
		checkout: checkout,
		verifier: verifier,
	}
}

func activeCoupon(userID, code string, percent float64) *models.Coupon {
	now := time.Now().UTC()
	return &models.Coupon{
		ID:                 code + "-" + userID,
		Code:               code,
		DiscountPercentage: percent,
		ExpirationDate:     now.Add(24 * time.Hour),
		UserID:             userID,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// checkoutAndCapture runs a checkout for userID and captures its payment at the gateway.
func (e *testEnv) checkoutAndCapture(t *testing.T, userID, paymentID string, req *CheckoutRequest) *VerifyPaymentRequest {
	t.Helper()
	resp, err := e.checkout.CreateCheckout(context.Background(), userID, req)
	require.NoError(t, err)
	e.gw.Capture(paymentID, resp.OrderID)
	return signed(resp.OrderID, paymentID)
}

func signed(orderID, paymentID string) *VerifyPaymentRequest {
	return &VerifyPaymentRequest{
		RazorpayPaymentID: paymentID,
		RazorpayOrderID:   orderID,
		RazorpaySignature: gateway.PaymentSignature(testSecret, orderID, paymentID),
	}
}
