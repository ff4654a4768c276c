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

	"go.uber.org/zap"
)

// DefaultGiftThresholdMinor is ₹2000 in paise.
const DefaultGiftThresholdMinor int64 = 200000

// CheckoutConfig holds checkout settings taken from configuration
type CheckoutConfig struct {
	KeyID              string
	Currency           string
	GiftThresholdMinor int64
}

// CheckoutService creates gateway orders for carts
type CheckoutService struct {
	coupons store.CouponStore
	gateway gateway.Client
	gifts   GiftDispatcher
	events  EventPublisher
	cfg     CheckoutConfig
	logger  *zap.Logger
	now     func() time.Time
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	coupons store.CouponStore,
	gw gateway.Client,
	gifts GiftDispatcher,
	events EventPublisher,
	cfg CheckoutConfig,
) *CheckoutService {
	return &CheckoutService{
		coupons: coupons,
		gateway: gw,
		gifts:   gifts,
		events:  events,
		cfg:     cfg,
		logger:  util.GetLogger(),
		now:     time.Now,
	}
}

// CheckoutItem is one cart line. Price is in major units; a zero quantity means 1.
type CheckoutItem struct {
	ID       string  `json:"_id"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// CheckoutRequest represents a checkout submitted by the storefront
type CheckoutRequest struct {
	Products   []CheckoutItem `json:"products"`
	CouponCode string         `json:"couponCode"`
}

// CheckoutResponse carries what the client needs to open the payment widget
type CheckoutResponse struct {
	OrderID     string  `json:"orderId"`
	Amount      int64   `json:"amount"`
	Currency    string  `json:"currency"`
	Key         string  `json:"key"`
	TotalAmount float64 `json:"totalAmount"`

	Gift BestEffort `json:"-"`
}

// CreateCheckout prices the cart, applies the user's coupon and opens a
// gateway order for the result.
func (s *CheckoutService) CreateCheckout(ctx context.Context, userID string, req *CheckoutRequest) (*CheckoutResponse, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.CreateCheckout")
	defer span.End()

	logger := util.LoggerFor(ctx, s.logger)

	if userID == "" {
		return nil, ErrUnauthorized
	}

	items, totalAmount, err := normalizeItems(req)
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("validation").Inc()
		return nil, err
	}

	couponCode := models.NoCoupon
	if req.CouponCode != "" {
		coupon, err := s.coupons.FindActiveCoupon(ctx, userID, req.CouponCode)
		switch {
		case err == nil:
			totalAmount = ApplyDiscount(totalAmount, coupon.DiscountPercentage)
			couponCode = coupon.Code
			util.CouponDiscountsAppliedTotal.Inc()
		case errors.Is(err, store.ErrNotFound):
			logger.Debug("Coupon not applicable",
				zap.String("user_id", userID),
				zap.String("coupon_code", req.CouponCode))
		default:
			util.CheckoutsFailedTotal.WithLabelValues("coupon_lookup").Inc()
			return nil, fmt.Errorf("failed to look up coupon: %w", err)
		}
	}

	notes, err := orderNotes(userID, couponCode, items)
	if err != nil {
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, &gateway.OrderRequest{
		Amount:         totalAmount,
		Currency:       s.cfg.Currency,
		Receipt:        fmt.Sprintf("receipt_%d", s.now().UnixMilli()),
		PaymentCapture: true,
		Notes:          notes,
	})
	if err != nil {
		util.CheckoutsFailedTotal.WithLabelValues("gateway").Inc()
		return nil, fmt.Errorf("%w: %w", ErrGateway, err)
	}

	util.CheckoutsCreatedTotal.Inc()
	logger.Info("Checkout created",
		zap.String("user_id", userID),
		zap.String("gateway_order_id", order.ID),
		zap.Int64("amount", totalAmount),
		zap.String("coupon_code", couponCode))

	err = s.events.PublishCheckoutCreated(ctx, &models.CheckoutCreatedEvent{
		BaseEvent:      newBaseEvent(models.EventTypeCheckoutCreated),
		GatewayOrderID: order.ID,
		UserID:         userID,
		TotalAmount:    totalAmount,
		Currency:       order.Currency,
		CouponCode:     couponCode,
		Items:          itemData(items),
	})
	logPublishError(logger, models.EventTypeCheckoutCreated, err)

	resp := &CheckoutResponse{
		OrderID:     order.ID,
		Amount:      order.Amount,
		Currency:    order.Currency,
		Key:         s.cfg.KeyID,
		TotalAmount: models.MinorToMajor(totalAmount),
	}

	if totalAmount >= s.cfg.GiftThresholdMinor {
		resp.Gift = dispatchGift(ctx, s.gifts, s.logger, userID, GiftSourceCheckout)
	}

	return resp, nil
}

func normalizeItems(req *CheckoutRequest) ([]models.OrderItem, int64, error) {
	if req == nil || len(req.Products) == 0 {
		return nil, 0, &ValidationError{Field: "products", Message: "Invalid or empty products array"}
	}

	items := make([]models.OrderItem, 0, len(req.Products))
	for i, p := range req.Products {
		if p.ID == "" {
			return nil, 0, &ValidationError{Field: fmt.Sprintf("products[%d]._id", i), Message: "product id is required"}
		}
		if p.Price < 0 {
			return nil, 0, &ValidationError{Field: fmt.Sprintf("products[%d].price", i), Message: "price must not be negative"}
		}
		if p.Quantity < 0 {
			return nil, 0, &ValidationError{Field: fmt.Sprintf("products[%d].quantity", i), Message: "quantity must not be negative"}
		}
		quantity := p.Quantity
		if quantity == 0 {
			quantity = 1
		}
		items = append(items, models.OrderItem{ProductID: p.ID, Quantity: quantity, Price: p.Price})
	}

	total, err := ComputeTotal(items)
	if err != nil {
		return nil, 0, &ValidationError{Field: "products", Message: "order total exceeds the supported amount"}
	}
	return items, total, nil
}

func itemData(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, len(items))
	for i, item := range items {
		out[i] = models.OrderItemData{ID: item.ProductID, Quantity: item.Quantity, Price: item.Price}
	}
	return out
}

// orderNotes builds the gateway order metadata read back on verification.
func orderNotes(userID, couponCode string, items []models.OrderItem) (map[string]string, error) {
	products, err := json.Marshal(itemData(items))
	if err != nil {
		return nil, fmt.Errorf("failed to encode products: %w", err)
	}
	return map[string]string{
		"userId":     userID,
		"couponCode": couponCode,
		"products":   string(products),
	}, nil
}
