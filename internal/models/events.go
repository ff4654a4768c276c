package models

import "time"

// Event types
const (
	EventTypeCheckoutCreated     = "CHECKOUT_CREATED"
	EventTypePaymentVerified     = "PAYMENT_VERIFIED"
	EventTypeGiftCouponRequested = "GIFT_COUPON_REQUESTED"
	EventTypeGiftCouponIssued    = "GIFT_COUPON_ISSUED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CheckoutCreatedEvent published when a gateway order is created for a checkout
type CheckoutCreatedEvent struct {
	BaseEvent
	GatewayOrderID string          `json:"gateway_order_id"`
	UserID         string          `json:"user_id"`
	TotalAmount    int64           `json:"total_amount"`
	Currency       string          `json:"currency"`
	CouponCode     string          `json:"coupon_code"`
	Items          []OrderItemData `json:"items"`
}

// PaymentVerifiedEvent published when a verified payment produced a new order
type PaymentVerifiedEvent struct {
	BaseEvent
	OrderID          string `json:"order_id"`
	UserID           string `json:"user_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Amount           int64  `json:"amount"`
}

// GiftCouponRequestedEvent asks the gift worker to issue a coupon
type GiftCouponRequestedEvent struct {
	BaseEvent
	UserID string `json:"user_id"`
	Source string `json:"source"`
}

// GiftCouponIssuedEvent published after a gift coupon was issued
type GiftCouponIssuedEvent struct {
	BaseEvent
	UserID             string    `json:"user_id"`
	Code               string    `json:"code"`
	DiscountPercentage float64   `json:"discount_percentage"`
	ExpirationDate     time.Time `json:"expiration_date"`
}

// OrderItemData is the compact item form stored in gateway notes and events.
type OrderItemData struct {
	ID       string  `json:"id"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}
