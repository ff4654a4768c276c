package models

import "time"

// Order represents a paid purchase. It is written once, after the gateway
// confirms capture, and never updated.
type Order struct {
	ID                string      `db:"id" json:"_id" bson:"_id"`
	UserID            string      `db:"user_id" json:"user" bson:"user"`
	Products          []OrderItem `db:"-" json:"products" bson:"products"`
	TotalAmount       int64       `db:"total_amount" json:"totalAmount" bson:"totalAmount"`
	RazorpayOrderID   string      `db:"razorpay_order_id" json:"razorpayOrderId" bson:"razorpayOrderId"`
	RazorpayPaymentID string      `db:"razorpay_payment_id" json:"razorpayPaymentId" bson:"razorpayPaymentId"`
	RazorpaySignature string      `db:"razorpay_signature" json:"razorpaySignature" bson:"razorpaySignature"`
	CreatedAt         time.Time   `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// OrderItem is one ordered product. Price is in major currency units, as
// sent by the client at checkout.
type OrderItem struct {
	OrderID   string  `db:"order_id" json:"-" bson:"-"`
	ProductID string  `db:"product_id" json:"product" bson:"product"`
	Quantity  int     `db:"quantity" json:"quantity" bson:"quantity"`
	Price     float64 `db:"price" json:"price" bson:"price"`
}

// Coupon is a discount grant owned by a single user.
type Coupon struct {
	ID                 string    `db:"id" json:"_id" bson:"_id"`
	Code               string    `db:"code" json:"code" bson:"code"`
	DiscountPercentage float64   `db:"discount_percentage" json:"discountPercentage" bson:"discountPercentage"`
	ExpirationDate     time.Time `db:"expiration_date" json:"expirationDate" bson:"expirationDate"`
	UserID             string    `db:"user_id" json:"userId" bson:"userId"`
	IsActive           bool      `db:"is_active" json:"isActive" bson:"isActive"`
	CreatedAt          time.Time `db:"created_at" json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `db:"updated_at" json:"updatedAt" bson:"updatedAt"`
}

// Expired reports whether the coupon is past its expiration date at t.
func (c *Coupon) Expired(t time.Time) bool {
	return c.ExpirationDate.Before(t)
}

// DailyTotal is the raw per-day order aggregate read from a store.
// Date is formatted as 2006-01-02 in UTC.
type DailyTotal struct {
	Date        string `db:"date" bson:"_id"`
	Orders      int64  `db:"orders" bson:"orders"`
	AmountMinor int64  `db:"amount" bson:"amount"`
}

// SalesTotals is the raw all-time order aggregate read from a store.
type SalesTotals struct {
	Users       int64 `db:"users"`
	Products    int64 `db:"products"`
	Orders      int64 `db:"orders"`
	AmountMinor int64 `db:"amount"`
}

// DailySales is one point of the dashboard sales chart.
type DailySales struct {
	Date    string  `json:"date"`
	Sales   int64   `json:"sales"`
	Revenue float64 `json:"revenue"`
}

// SalesSummary backs the dashboard headline cards.
type SalesSummary struct {
	Users        int64   `json:"users"`
	Products     int64   `json:"products"`
	TotalSales   int64   `json:"totalSales"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// Gateway payment statuses
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusRefunded   = "refunded"
	PaymentStatusFailed     = "failed"
)

// NoCoupon is recorded in gateway notes when checkout carried no coupon code.
const NoCoupon = "none"

// MinorToMajor converts an amount in minor currency units to major units.
func MinorToMajor(minor int64) float64 {
	return float64(minor) / 100
}
