package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromRedis wraps an existing go-redis client
func NewFromRedis(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func verifiedPaymentKey(paymentID string) string {
	return fmt.Sprintf("verified-payment:%s", paymentID)
}

// RememberVerifiedPayment maps a verified gateway payment to the order it produced.
// SETNX keeps the first order id when concurrent verifications race.
func (c *Client) RememberVerifiedPayment(ctx context.Context, paymentID, orderID string, ttl time.Duration) error {
	return c.rdb.SetNX(ctx, verifiedPaymentKey(paymentID), orderID, ttl).Err()
}

// VerifiedPaymentOrder returns the order id recorded for a verified payment.
// found is false when the payment has not been seen or the entry expired.
func (c *Client) VerifiedPaymentOrder(ctx context.Context, paymentID string) (orderID string, found bool, err error) {
	orderID, err = c.rdb.Get(ctx, verifiedPaymentKey(paymentID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return orderID, true, nil
}
