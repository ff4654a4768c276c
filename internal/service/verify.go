package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/gateway"
	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	MessageOrderCreated = "Payment successful, order created, and coupon deactivated if used."
	MessageOrderExists  = "Payment successful, order already exists."
)

// VerifiedPaymentCache remembers which order a verified payment produced.
// redisclient.Client implements it.
type VerifiedPaymentCache interface {
	VerifiedPaymentOrder(ctx context.Context, paymentID string) (string, bool, error)
	RememberVerifiedPayment(ctx context.Context, paymentID, orderID string, ttl time.Duration) error
}

// VerifierConfig holds payment verification settings
type VerifierConfig struct {
	KeySecret          string
	GiftThresholdMinor int64
	VerifiedPaymentTTL time.Duration
}

// PaymentVerifier turns a gateway checkout callback into a persisted order
type PaymentVerifier struct {
	orders  store.OrderStore
	coupons store.CouponStore
	gateway gateway.Client
	gifts   GiftDispatcher
	events  EventPublisher
	cache   VerifiedPaymentCache
	cfg     VerifierConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewPaymentVerifier creates a new payment verifier. cache may be nil.
func NewPaymentVerifier(
	orders store.OrderStore,
	coupons store.CouponStore,
	gw gateway.Client,
	gifts GiftDispatcher,
	events EventPublisher,
	cache VerifiedPaymentCache,
	cfg VerifierConfig,
) *PaymentVerifier {
	return &PaymentVerifier{
		orders:  orders,
		coupons: coupons,
		gateway: gw,
		gifts:   gifts,
		events:  events,
		cache:   cache,
		cfg:     cfg,
		logger:  util.GetLogger(),
		now:     time.Now,
	}
}

// VerifyPaymentRequest holds the fields returned by the gateway checkout widget
type VerifyPaymentRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

// VerifyPaymentResponse represents the result of a successful verification
type VerifyPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`

	Created bool       `json:"-"`
	Gift    BestEffort `json:"-"`
}

// VerifyPayment authenticates the callback, confirms capture with the
// gateway, redeems the coupon recorded at checkout and stores the order.
// Repeating a verified callback returns the order created the first time.
func (v *PaymentVerifier) VerifyPayment(ctx context.Context, req *VerifyPaymentRequest) (*VerifyPaymentResponse, error) {
	ctx, span := util.StartSpan(ctx, "PaymentVerifier.VerifyPayment")
	defer span.End()

	if err := validateVerifyRequest(req); err != nil {
		util.PaymentVerificationsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	logger := util.LoggerFor(ctx, v.logger).With(
		zap.String("gateway_order_id", req.RazorpayOrderID),
		zap.String("gateway_payment_id", req.RazorpayPaymentID))

	if !gateway.VerifyPaymentSignature(v.cfg.KeySecret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		util.PaymentVerificationsFailedTotal.WithLabelValues("invalid_signature").Inc()
		logger.Warn("Rejected payment callback with invalid signature")
		return nil, ErrInvalidSignature
	}

	if orderID, ok := v.cachedOrder(ctx, logger, req.RazorpayPaymentID); ok {
		util.PaymentsVerifiedTotal.WithLabelValues("cached").Inc()
		return &VerifyPaymentResponse{Success: true, Message: MessageOrderExists, OrderID: orderID}, nil
	}

	payment, err := v.gateway.FetchPayment(ctx, req.RazorpayPaymentID)
	if err != nil {
		util.PaymentVerificationsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}
	if payment.Status != models.PaymentStatusCaptured {
		util.PaymentVerificationsFailedTotal.WithLabelValues("not_captured").Inc()
		logger.Info("Payment not captured", zap.String("status", payment.Status))
		return nil, ErrPaymentNotCompleted
	}

	gwOrder, err := v.gateway.FetchOrder(ctx, req.RazorpayOrderID)
	if err != nil {
		util.PaymentVerificationsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	userID := gwOrder.Notes["userId"]
	couponCode := gwOrder.Notes["couponCode"]

	if couponCode != "" && couponCode != models.NoCoupon {
		err := v.coupons.DeactivateCoupon(ctx, userID, couponCode)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			util.PaymentVerificationsFailedTotal.WithLabelValues("coupon").Inc()
			return nil, fmt.Errorf("failed to deactivate coupon: %w", err)
		}
	}

	items, err := itemsFromNotes(gwOrder.Notes["products"])
	if err != nil {
		util.PaymentVerificationsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	now := v.now().UTC()
	order := &models.Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		Products:          items,
		TotalAmount:       gwOrder.Amount,
		RazorpayOrderID:   req.RazorpayOrderID,
		RazorpayPaymentID: req.RazorpayPaymentID,
		RazorpaySignature: req.RazorpaySignature,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := v.orders.CreateOrder(ctx, order); err != nil {
		if !errors.Is(err, store.ErrDuplicateKey) {
			util.PaymentVerificationsFailedTotal.WithLabelValues("persistence").Inc()
			logger.Error("Failed to store order", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrOrderPersistence, err)
		}

		existing, err := v.orders.GetOrderByRazorpayOrderID(ctx, req.RazorpayOrderID)
		if err != nil {
			util.PaymentVerificationsFailedTotal.WithLabelValues("persistence").Inc()
			return nil, fmt.Errorf("%w: duplicate key, existing order not readable: %w", ErrOrderPersistence, err)
		}

		util.PaymentsVerifiedTotal.WithLabelValues("duplicate").Inc()
		logger.Info("Order already exists for payment", zap.String("order_id", existing.ID))
		v.rememberOrder(ctx, logger, req.RazorpayPaymentID, existing.ID)
		return &VerifyPaymentResponse{Success: true, Message: MessageOrderExists, OrderID: existing.ID}, nil
	}

	util.PaymentsVerifiedTotal.WithLabelValues("created").Inc()
	logger.Info("Order created from verified payment",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("amount", order.TotalAmount))

	v.rememberOrder(ctx, logger, req.RazorpayPaymentID, order.ID)

	err = v.events.PublishPaymentVerified(ctx, &models.PaymentVerifiedEvent{
		BaseEvent:        newBaseEvent(models.EventTypePaymentVerified),
		OrderID:          order.ID,
		UserID:           userID,
		GatewayOrderID:   order.RazorpayOrderID,
		GatewayPaymentID: order.RazorpayPaymentID,
		Amount:           order.TotalAmount,
	})
	logPublishError(logger, models.EventTypePaymentVerified, err)

	resp := &VerifyPaymentResponse{Success: true, Message: MessageOrderCreated, OrderID: order.ID, Created: true}
	if gwOrder.Amount >= v.cfg.GiftThresholdMinor {
		resp.Gift = dispatchGift(ctx, v.gifts, v.logger, userID, GiftSourceVerification)
	}
	return resp, nil
}

func validateVerifyRequest(req *VerifyPaymentRequest) error {
	switch {
	case req == nil:
		return &ValidationError{Message: "payment details are required"}
	case req.RazorpayPaymentID == "":
		return &ValidationError{Field: "razorpay_payment_id", Message: "is required"}
	case req.RazorpayOrderID == "":
		return &ValidationError{Field: "razorpay_order_id", Message: "is required"}
	case req.RazorpaySignature == "":
		return &ValidationError{Field: "razorpay_signature", Message: "is required"}
	}
	return nil
}

func itemsFromNotes(raw string) ([]models.OrderItem, error) {
	var data []models.OrderItemData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("malformed products note: %w", err)
	}
	items := make([]models.OrderItem, len(data))
	for i, d := range data {
		quantity := d.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items[i] = models.OrderItem{ProductID: d.ID, Quantity: quantity, Price: d.Price}
	}
	return items, nil
}

func (v *PaymentVerifier) cachedOrder(ctx context.Context, logger *zap.Logger, paymentID string) (string, bool) {
	if v.cache == nil {
		return "", false
	}
	orderID, found, err := v.cache.VerifiedPaymentOrder(ctx, paymentID)
	if err != nil {
		logger.Warn("Verified payment cache lookup failed", zap.Error(err))
		return "", false
	}
	return orderID, found
}

func (v *PaymentVerifier) rememberOrder(ctx context.Context, logger *zap.Logger, paymentID, orderID string) {
	if v.cache == nil {
		return
	}
	if err := v.cache.RememberVerifiedPayment(ctx, paymentID, orderID, v.cfg.VerifiedPaymentTTL); err != nil {
		logger.Warn("Failed to cache verified payment", zap.Error(err))
	}
}
