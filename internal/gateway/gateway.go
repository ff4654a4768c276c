package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"checkout-service/internal/util"

	razorpay "github.com/razorpay/razorpay-go"
)

// Client is the subset of the payment gateway used by checkout and
// verification. Implementations are treated as opaque remote services.
type Client interface {
	CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}

// Config holds the gateway API credentials.
type Config struct {
	KeyID     string
	KeySecret string
}

// OrderRequest describes a gateway order to create. Amount is in minor units.
type OrderRequest struct {
	Amount         int64
	Currency       string
	Receipt        string
	PaymentCapture bool
	Notes          map[string]string
}

// Order is a gateway order handle.
type Order struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
	Notes    map[string]string
}

// Payment is a gateway payment and its capture status.
type Payment struct {
	ID       string
	OrderID  string
	Status   string
	Amount   int64
	Currency string
}

type razorpayClient struct {
	client *razorpay.Client
}

// NewRazorpayClient creates a Client backed by the Razorpay SDK
func NewRazorpayClient(cfg Config) Client {
	return &razorpayClient{
		client: razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
	}
}

func (c *razorpayClient) CreateOrder(ctx context.Context, req *OrderRequest) (*Order, error) {
	_, span := util.StartSpan(ctx, "Gateway.CreateOrder")
	defer span.End()
	defer observe("create_order", time.Now())

	capture := 0
	if req.PaymentCapture {
		capture = 1
	}
	notes := make(map[string]interface{}, len(req.Notes))
	for k, v := range req.Notes {
		notes[k] = v
	}

	body, err := c.client.Order.Create(map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"receipt":         req.Receipt,
		"payment_capture": capture,
		"notes":           notes,
	}, nil)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("create_order").Inc()
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return parseOrder(body), nil
}

func (c *razorpayClient) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	_, span := util.StartSpan(ctx, "Gateway.FetchOrder")
	defer span.End()
	defer observe("fetch_order", time.Now())

	body, err := c.client.Order.Fetch(orderID, nil, nil)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("fetch_order").Inc()
		return nil, fmt.Errorf("razorpay fetch order %s: %w", orderID, err)
	}
	return parseOrder(body), nil
}

func (c *razorpayClient) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	_, span := util.StartSpan(ctx, "Gateway.FetchPayment")
	defer span.End()
	defer observe("fetch_payment", time.Now())

	body, err := c.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		util.GatewayErrorsTotal.WithLabelValues("fetch_payment").Inc()
		return nil, fmt.Errorf("razorpay fetch payment %s: %w", paymentID, err)
	}
	return &Payment{
		ID:       stringField(body, "id"),
		OrderID:  stringField(body, "order_id"),
		Status:   stringField(body, "status"),
		Amount:   intField(body, "amount"),
		Currency: stringField(body, "currency"),
	}, nil
}

func observe(op string, start time.Time) {
	util.GatewayRequestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func parseOrder(body map[string]interface{}) *Order {
	o := &Order{
		ID:       stringField(body, "id"),
		Amount:   intField(body, "amount"),
		Currency: stringField(body, "currency"),
		Receipt:  stringField(body, "receipt"),
		Status:   stringField(body, "status"),
		Notes:    map[string]string{},
	}
	// Razorpay returns "notes": [] for orders created without notes.
	if notes, ok := body["notes"].(map[string]interface{}); ok {
		for k, v := range notes {
			switch val := v.(type) {
			case string:
				o.Notes[k] = val
			default:
				b, _ := json.Marshal(val)
				o.Notes[k] = string(b)
			}
		}
	}
	return o
}

func stringField(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}

func intField(body map[string]interface{}, key string) int64 {
	switch v := body[key].(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case int:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	}
	return 0
}
