package api

import (
	"errors"
	"net/http"
	"time"

	"checkout-service/internal/service"
	"checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	checkout  *service.CheckoutService
	verifier  *service.PaymentVerifier
	coupons   *service.CouponService
	analytics *service.AnalyticsService
	auth      *Authenticator
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	checkout *service.CheckoutService,
	verifier *service.PaymentVerifier,
	coupons *service.CouponService,
	analytics *service.AnalyticsService,
	auth *Authenticator,
) *Handler {
	return &Handler{
		checkout:  checkout,
		verifier:  verifier,
		coupons:   coupons,
		analytics: analytics,
		auth:      auth,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(util.ServiceName))
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api", h.auth.RequireUser())
	{
		payments := api.Group("/payments")
		payments.POST("/create-order", h.createOrder)
		payments.POST("/verify-payment", h.verifyPayment)

		coupons := api.Group("/coupons")
		coupons.GET("", h.getCoupon)
		coupons.POST("/validate", h.validateCoupon)

		api.GET("/analytics", h.auth.RequireAdmin(), h.getAnalytics)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// createOrder prices the cart and opens a gateway order
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CheckoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid or empty products array",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.checkout.CreateCheckout(c.Request.Context(), userID(c), &req)
	if err != nil {
		h.respondError(c, err, "Error processing checkout")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// verifyPayment turns the gateway callback into an order
func (h *Handler) verifyPayment(c *gin.Context) {
	var req service.VerifyPaymentRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	resp, err := h.verifier.VerifyPayment(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err, "Error processing successful checkout")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// getCoupon returns the caller's active coupon
func (h *Handler) getCoupon(c *gin.Context) {
	coupon, err := h.coupons.GetMyCoupon(c.Request.Context(), userID(c))
	if err != nil {
		h.respondError(c, err, "Error getting coupon")
		return
	}

	c.JSON(http.StatusOK, coupon)
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

// validateCoupon checks a coupon code of the caller
func (h *Handler) validateCoupon(c *gin.Context) {
	var req validateCouponRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	coupon, err := h.coupons.ValidateCoupon(c.Request.Context(), userID(c), req.Code)
	if err != nil {
		h.respondError(c, err, "Error validating coupon")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":            "Coupon is valid",
		"code":               coupon.Code,
		"discountPercentage": coupon.DiscountPercentage,
	})
}

// getAnalytics returns dashboard sales data
func (h *Handler) getAnalytics(c *gin.Context) {
	resp, err := h.analytics.GetAnalytics(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Error fetching analytics")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// respondError maps service errors to status codes. Anything unrecognised
// is a 500 carrying message and the underlying error.
func (h *Handler) respondError(c *gin.Context, err error, message string) {
	var verr *service.ValidationError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, service.ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid payment signature"})
	case errors.Is(err, service.ErrPaymentNotCompleted):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Payment not completed"})
	case errors.Is(err, service.ErrCouponNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Coupon not found"})
	case errors.Is(err, service.ErrCouponExpired):
		c.JSON(http.StatusNotFound, gin.H{"message": "Coupon expired"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
	default:
		if errors.Is(err, service.ErrOrderPersistence) {
			message = "Error creating order"
		}
		util.LoggerFor(c.Request.Context(), h.logger).Error(message,
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": message,
			"error":   err.Error(),
		})
	}
}
