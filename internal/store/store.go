package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"checkout-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when no record matches a filter.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicateKey is returned when an insert violates a unique constraint.
	ErrDuplicateKey = errors.New("store: duplicate key")
)

// CouponStore persists coupons.
type CouponStore interface {
	// FindActiveCoupon returns the active coupon owned by userID with the given code.
	FindActiveCoupon(ctx context.Context, userID, code string) (*models.Coupon, error)
	// FindActiveCouponByUser returns any active coupon owned by userID.
	FindActiveCouponByUser(ctx context.Context, userID string) (*models.Coupon, error)
	// DeactivateCoupon clears the active flag of the coupon matching (userID, code).
	DeactivateCoupon(ctx context.Context, userID, code string) error
	// ReplaceUserCoupon deletes every coupon owned by c.UserID and inserts c.
	// It returns the codes of the deleted coupons.
	ReplaceUserCoupon(ctx context.Context, c *models.Coupon) ([]string, error)
}

// OrderStore persists orders.
type OrderStore interface {
	// CreateOrder inserts the order and its items. A second order with the same
	// gateway order id or payment id yields ErrDuplicateKey.
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Order, error)
	SalesTotals(ctx context.Context) (*models.SalesTotals, error)
	// DailyTotals aggregates orders created in [from, to) per UTC day.
	DailyTotals(ctx context.Context, from, to time.Time) ([]models.DailyTotal, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	CouponStore
	OrderStore
	Close() error
}

// PostgresStore implements Store on PostgreSQL.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to PostgreSQL and applies the schema
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresStore{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates tables and indexes if they do not exist
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *PostgresStore) GetDB() *sqlx.DB {
	return s.db
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
