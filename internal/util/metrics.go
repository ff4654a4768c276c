package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkouts_created_total",
		Help: "Total number of gateway orders created by checkout",
	})

	CheckoutsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkouts_failed_total",
		Help: "Total number of failed checkouts",
	}, []string{"reason"})

	CouponDiscountsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coupon_discounts_applied_total",
		Help: "Total number of checkouts discounted by a coupon",
	})

	PaymentsVerifiedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_verified_total",
		Help: "Total number of verified payments by outcome",
	}, []string{"outcome"})

	PaymentVerificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_verifications_failed_total",
		Help: "Total number of rejected payment verifications",
	}, []string{"reason"})

	GiftCouponsIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gift_coupons_issued_total",
		Help: "Total number of gift coupons issued",
	})

	GiftCouponsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gift_coupons_failed_total",
		Help: "Total number of gift coupon issuances that failed",
	}, []string{"source"})

	GatewayRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_latency_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	GatewayErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_errors_total",
		Help: "Total number of failed payment gateway calls",
	}, []string{"operation"})

	EventsPublishFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "events_publish_failed_total",
		Help: "Total number of domain events that could not be published",
	}, []string{"event_type"})

	ConsumerRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "consumer_retries_total",
		Help: "Total number of failed message handling attempts that were retried",
	}, []string{"topic"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
