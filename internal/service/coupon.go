package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	giftCodePrefix   = "GIFT"
	giftCodeLength   = 6
	giftCodeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GiftCouponConfig holds the terms of issued gift coupons
type GiftCouponConfig struct {
	DiscountPercent float64
	Validity        time.Duration
}

// DefaultGiftCouponConfig is 10% off, valid for 30 days.
var DefaultGiftCouponConfig = GiftCouponConfig{
	DiscountPercent: 10,
	Validity:        30 * 24 * time.Hour,
}

// CouponService issues gift coupons and answers coupon queries
type CouponService struct {
	coupons store.CouponStore
	events  EventPublisher
	cfg     GiftCouponConfig
	logger  *zap.Logger

	now     func() time.Time
	newCode func() (string, error)
}

// NewCouponService creates a new coupon service
func NewCouponService(coupons store.CouponStore, events EventPublisher, cfg GiftCouponConfig) *CouponService {
	return &CouponService{
		coupons: coupons,
		events:  events,
		cfg:     cfg,
		logger:  util.GetLogger(),
		now:     time.Now,
		newCode: GenerateGiftCode,
	}
}

// GenerateGiftCode returns "GIFT" followed by six random characters from [0-9A-Z].
func GenerateGiftCode() (string, error) {
	limit := big.NewInt(int64(len(giftCodeAlphabet)))
	b := make([]byte, giftCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = giftCodeAlphabet[n.Int64()]
	}
	return giftCodePrefix + string(b), nil
}

// IssueGiftCoupon replaces whatever coupon userID holds with a fresh gift
// coupon. Code collisions across users are not checked.
func (s *CouponService) IssueGiftCoupon(ctx context.Context, userID string) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "CouponService.IssueGiftCoupon")
	defer span.End()

	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "user id is required"}
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("%w: generate code: %w", ErrCouponIssuance, err)
	}

	now := s.now().UTC()
	coupon := &models.Coupon{
		ID:                 uuid.New().String(),
		Code:               code,
		DiscountPercentage: s.cfg.DiscountPercent,
		ExpirationDate:     now.Add(s.cfg.Validity),
		UserID:             userID,
		IsActive:           true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	deleted, err := s.coupons.ReplaceUserCoupon(ctx, coupon)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCouponIssuance, err)
	}

	util.GiftCouponsIssuedTotal.Inc()
	s.logger.Info("Gift coupon issued",
		zap.String("user_id", userID),
		zap.String("coupon_code", coupon.Code),
		zap.Strings("replaced", deleted))

	err = s.events.PublishGiftCouponIssued(ctx, &models.GiftCouponIssuedEvent{
		BaseEvent:          newBaseEvent(models.EventTypeGiftCouponIssued),
		UserID:             userID,
		Code:               coupon.Code,
		DiscountPercentage: coupon.DiscountPercentage,
		ExpirationDate:     coupon.ExpirationDate,
	})
	logPublishError(s.logger, models.EventTypeGiftCouponIssued, err)

	return coupon, nil
}

// GetMyCoupon returns the active coupon held by userID
func (s *CouponService) GetMyCoupon(ctx context.Context, userID string) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "CouponService.GetMyCoupon")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthorized
	}

	coupon, err := s.coupons.FindActiveCouponByUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get coupon: %w", err)
	}
	return coupon, nil
}

// ValidateCoupon checks that code is an active, unexpired coupon of userID.
// An expired coupon is deactivated on the way out.
func (s *CouponService) ValidateCoupon(ctx context.Context, userID, code string) (*models.Coupon, error) {
	ctx, span := util.StartSpan(ctx, "CouponService.ValidateCoupon")
	defer span.End()

	if userID == "" {
		return nil, ErrUnauthorized
	}
	if code == "" {
		return nil, &ValidationError{Field: "code", Message: "coupon code is required"}
	}

	coupon, err := s.coupons.FindActiveCoupon(ctx, userID, code)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to validate coupon: %w", err)
	}

	if coupon.Expired(s.now()) {
		if err := s.coupons.DeactivateCoupon(ctx, userID, code); err != nil && !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("Failed to deactivate expired coupon",
				zap.String("user_id", userID),
				zap.String("coupon_code", code),
				zap.Error(err))
		}
		return nil, ErrCouponExpired
	}

	return coupon, nil
}
