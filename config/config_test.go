package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_DRIVER", "REDIS_ADDR", "KAFKA_BROKERS", "GIFT_COUPON_ASYNC", "GIFT_THRESHOLD_MINOR"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "5000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, 24*time.Hour, cfg.Redis.VerifiedPaymentTTL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "INR", cfg.Gateway.Currency)
	assert.Equal(t, "accessToken", cfg.Auth.CookieName)
	assert.Equal(t, int64(200000), cfg.Business.GiftThresholdMinor)
	assert.Equal(t, 10.0, cfg.Business.GiftDiscountPercent)
	assert.Equal(t, 30*24*time.Hour, cfg.Business.GiftValidity)
}

func TestLoad_AsyncGiftsNeedBrokers(t *testing.T) {
	t.Setenv("GIFT_COUPON_ASYNC", "true")
	t.Setenv("KAFKA_BROKERS", "")
	assert.False(t, Load().Kafka.GiftCouponAsync)

	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	cfg := Load()
	assert.True(t, cfg.Kafka.GiftCouponAsync)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "memory"},
		Gateway:  GatewayConfig{KeyID: "rzp_test", KeySecret: "secret"},
		Auth:     AuthConfig{JWTSecret: "jwt"},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Gateway.KeySecret = ""
	cfg.Database.Driver = "mysql"
	err := cfg.Validate()
	assert.ErrorContains(t, err, "RAZORPAY_KEY_SECRET")
	assert.ErrorContains(t, err, "DB_DRIVER")
}
