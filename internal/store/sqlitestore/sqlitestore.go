// Package sqlitestore implements store.Store with gorm on an embedded SQLite
// database, for running the service without external infrastructure.
package sqlitestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type couponRecord struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	Code               string    `gorm:"size:32;not null;index:idx_coupons_user_code,priority:2"`
	DiscountPercentage float64   `gorm:"not null"`
	ExpirationDate     time.Time `gorm:"not null"`
	UserID             string    `gorm:"size:64;not null;index:idx_coupons_user_code,priority:1"`
	IsActive           bool      `gorm:"not null"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (couponRecord) TableName() string { return "coupons" }

type orderRecord struct {
	ID                string            `gorm:"primaryKey;size:36"`
	UserID            string            `gorm:"size:64;not null;index"`
	TotalAmount       int64             `gorm:"not null"`
	RazorpayOrderID   string            `gorm:"size:64;not null;uniqueIndex"`
	RazorpayPaymentID string            `gorm:"size:64;not null;uniqueIndex"`
	RazorpaySignature string            `gorm:"size:128"`
	Items             []orderItemRecord `gorm:"foreignKey:OrderID"`
	CreatedAt         time.Time         `gorm:"index"`
	UpdatedAt         time.Time
}

func (orderRecord) TableName() string { return "orders" }

type orderItemRecord struct {
	ID        uint    `gorm:"primaryKey"`
	OrderID   string  `gorm:"size:36;not null;index"`
	ProductID string  `gorm:"size:64;not null"`
	Quantity  int     `gorm:"not null"`
	Price     float64 `gorm:"not null"`
}

func (orderItemRecord) TableName() string { return "order_items" }

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// New opens (or creates) the SQLite database at path and migrates it.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if err := db.AutoMigrate(&couponRecord{}, &orderRecord{}, &orderItemRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toCoupon(r *couponRecord) *models.Coupon {
	return &models.Coupon{
		ID:                 r.ID,
		Code:               r.Code,
		DiscountPercentage: r.DiscountPercentage,
		ExpirationDate:     r.ExpirationDate,
		UserID:             r.UserID,
		IsActive:           r.IsActive,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func (s *Store) findCoupon(ctx context.Context, query string, args ...any) (*models.Coupon, error) {
	var r couponRecord
	err := s.db.WithContext(ctx).Where(query, args...).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toCoupon(&r), nil
}

func (s *Store) FindActiveCoupon(ctx context.Context, userID, code string) (*models.Coupon, error) {
	return s.findCoupon(ctx, "user_id = ? AND code = ? AND is_active = ?", userID, code, true)
}

func (s *Store) FindActiveCouponByUser(ctx context.Context, userID string) (*models.Coupon, error) {
	return s.findCoupon(ctx, "user_id = ? AND is_active = ?", userID, true)
}

func (s *Store) DeactivateCoupon(ctx context.Context, userID, code string) error {
	var r couponRecord
	err := s.db.WithContext(ctx).Where("user_id = ? AND code = ?", userID, code).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Model(&r).Updates(map[string]any{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}).Error
}

func (s *Store) ReplaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error) {
	var deleted []string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&couponRecord{}).Where("user_id = ?", c.UserID).Pluck("code", &deleted).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", c.UserID).Delete(&couponRecord{}).Error; err != nil {
			return fmt.Errorf("failed to delete existing coupons: %w", err)
		}
		return tx.Create(&couponRecord{
			ID:                 c.ID,
			Code:               c.Code,
			DiscountPercentage: c.DiscountPercentage,
			ExpirationDate:     c.ExpirationDate.UTC(),
			UserID:             c.UserID,
			IsActive:           c.IsActive,
			CreatedAt:          c.CreatedAt.UTC(),
			UpdatedAt:          c.UpdatedAt.UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	r := orderRecord{
		ID:                order.ID,
		UserID:            order.UserID,
		TotalAmount:       order.TotalAmount,
		RazorpayOrderID:   order.RazorpayOrderID,
		RazorpayPaymentID: order.RazorpayPaymentID,
		RazorpaySignature: order.RazorpaySignature,
		CreatedAt:         order.CreatedAt.UTC(),
		UpdatedAt:         order.UpdatedAt.UTC(),
	}
	for _, item := range order.Products {
		r.Items = append(r.Items, orderItemRecord{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	err := s.db.WithContext(ctx).Create(&r).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", store.ErrDuplicateKey, err)
	}
	return err
}

func (s *Store) GetOrderByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	var r orderRecord
	err := s.db.WithContext(ctx).Preload("Items").
		Where("razorpay_order_id = ?", razorpayOrderID).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	o := &models.Order{
		ID:                r.ID,
		UserID:            r.UserID,
		TotalAmount:       r.TotalAmount,
		RazorpayOrderID:   r.RazorpayOrderID,
		RazorpayPaymentID: r.RazorpayPaymentID,
		RazorpaySignature: r.RazorpaySignature,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	for _, item := range r.Items {
		o.Products = append(o.Products, models.OrderItem{
			OrderID:   item.OrderID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return o, nil
}

func (s *Store) SalesTotals(ctx context.Context) (*models.SalesTotals, error) {
	var totals models.SalesTotals
	err := s.db.WithContext(ctx).Model(&orderRecord{}).
		Select("COUNT(DISTINCT user_id) AS users, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS amount_minor").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&orderItemRecord{}).
		Select("COUNT(DISTINCT product_id)").
		Scan(&totals.Products).Error
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

func (s *Store) DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyTotal, error) {
	var totals []models.DailyTotal
	err := s.db.WithContext(ctx).Model(&orderRecord{}).
		Select("strftime('%Y-%m-%d', created_at) AS date, COUNT(*) AS orders, COALESCE(SUM(total_amount), 0) AS amount_minor").
		Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC()).
		Group("date").
		Order("date").
		Scan(&totals).Error
	return totals, err
}
