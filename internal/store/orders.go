package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"
)

const orderColumns = `id, user_id, total_amount, razorpay_order_id, razorpay_payment_id,
	razorpay_signature, created_at, updated_at`

// CreateOrder inserts an order and its items in one transaction
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		order.ID, order.UserID, order.TotalAmount, order.RazorpayOrderID,
		order.RazorpayPaymentID, order.RazorpaySignature, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		}
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.Products {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)",
			order.ID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

// GetOrderByRazorpayOrderID retrieves an order and its items by gateway order id
func (s *PostgresStore) GetOrderByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT "+orderColumns+" FROM orders WHERE razorpay_order_id = $1", razorpayOrderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	err = s.db.SelectContext(ctx, &order.Products,
		"SELECT order_id, product_id, quantity, price FROM order_items WHERE order_id = $1", order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	return &order, nil
}

// SalesTotals aggregates all orders
func (s *PostgresStore) SalesTotals(ctx context.Context) (*models.SalesTotals, error) {
	var totals models.SalesTotals
	err := s.db.GetContext(ctx, &totals, `
		SELECT
			(SELECT COUNT(DISTINCT user_id) FROM orders) AS users,
			(SELECT COUNT(DISTINCT product_id) FROM order_items) AS products,
			COUNT(*) AS orders,
			COALESCE(SUM(total_amount), 0) AS amount
		FROM orders`)
	if err != nil {
		return nil, err
	}
	return &totals, nil
}

// DailyTotals aggregates orders created in [from, to) per UTC day
func (s *PostgresStore) DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyTotal, error) {
	var totals []models.DailyTotal
	err := s.db.SelectContext(ctx, &totals, `
		SELECT
			to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS date,
			COUNT(*) AS orders,
			COALESCE(SUM(total_amount), 0) AS amount
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1
		ORDER BY 1`, from, to)
	return totals, err
}
