package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkout-service/internal/models"
)

const couponColumns = `id, code, discount_percentage, expiration_date, user_id, is_active,
	created_at, updated_at`

// FindActiveCoupon retrieves the active coupon for a user by code
func (s *PostgresStore) FindActiveCoupon(ctx context.Context, userID, code string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.GetContext(ctx, &c,
		"SELECT "+couponColumns+" FROM coupons WHERE user_id = $1 AND code = $2 AND is_active = TRUE LIMIT 1",
		userID, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindActiveCouponByUser retrieves any active coupon owned by a user
func (s *PostgresStore) FindActiveCouponByUser(ctx context.Context, userID string) (*models.Coupon, error) {
	var c models.Coupon
	err := s.db.GetContext(ctx, &c,
		"SELECT "+couponColumns+" FROM coupons WHERE user_id = $1 AND is_active = TRUE LIMIT 1",
		userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeactivateCoupon marks the coupon matching (user, code) inactive
func (s *PostgresStore) DeactivateCoupon(ctx context.Context, userID, code string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE coupons SET is_active = FALSE, updated_at = NOW()
		WHERE id = (SELECT id FROM coupons WHERE user_id = $1 AND code = $2 LIMIT 1)`,
		userID, code)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceUserCoupon deletes the user's coupons and inserts c in one transaction
func (s *PostgresStore) ReplaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var deleted []string
	err = tx.SelectContext(ctx, &deleted,
		"DELETE FROM coupons WHERE user_id = $1 RETURNING code", c.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete existing coupons: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.Code, c.DiscountPercentage, c.ExpirationDate, c.UserID, c.IsActive,
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert coupon: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return deleted, nil
}
