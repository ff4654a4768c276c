// Package memstore is an in-process store.Store used by tests and by
// DB_DRIVER=memory for local runs. It enforces the same unique keys as the
// database backends.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
)

type Store struct {
	mu      sync.RWMutex
	coupons []*models.Coupon
	orders  []*models.Order

	byRazorpayOrder   map[string]*models.Order
	byRazorpayPayment map[string]*models.Order
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		byRazorpayOrder:   make(map[string]*models.Order),
		byRazorpayPayment: make(map[string]*models.Order),
	}
}

func (s *Store) FindActiveCoupon(_ context.Context, userID, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coupons {
		if c.UserID == userID && c.Code == code && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) FindActiveCouponByUser(_ context.Context, userID string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.coupons {
		if c.UserID == userID && c.IsActive {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) DeactivateCoupon(_ context.Context, userID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.coupons {
		if c.UserID == userID && c.Code == code {
			c.IsActive = false
			c.UpdatedAt = time.Now()
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) ReplaceUserCoupon(_ context.Context, c *models.Coupon) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted []string
	kept := s.coupons[:0]
	for _, existing := range s.coupons {
		if existing.UserID == c.UserID {
			deleted = append(deleted, existing.Code)
			continue
		}
		kept = append(kept, existing)
	}
	cp := *c
	s.coupons = append(kept, &cp)
	return deleted, nil
}

// PutCoupon inserts a coupon as-is. Used to seed state.
func (s *Store) PutCoupon(c *models.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.coupons = append(s.coupons, &cp)
}

// Coupons returns copies of every coupon owned by userID.
func (s *Store) Coupons(userID string) []models.Coupon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Coupon
	for _, c := range s.coupons {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out
}

func (s *Store) CreateOrder(_ context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byRazorpayOrder[order.RazorpayOrderID]; ok {
		return store.ErrDuplicateKey
	}
	if _, ok := s.byRazorpayPayment[order.RazorpayPaymentID]; ok {
		return store.ErrDuplicateKey
	}

	cp := *order
	cp.Products = append([]models.OrderItem(nil), order.Products...)
	s.orders = append(s.orders, &cp)
	s.byRazorpayOrder[cp.RazorpayOrderID] = &cp
	s.byRazorpayPayment[cp.RazorpayPaymentID] = &cp
	return nil
}

func (s *Store) GetOrderByRazorpayOrderID(_ context.Context, razorpayOrderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byRazorpayOrder[razorpayOrderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *o
	cp.Products = append([]models.OrderItem(nil), o.Products...)
	return &cp, nil
}

// OrderCount returns the number of persisted orders.
func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}

func (s *Store) SalesTotals(_ context.Context) (*models.SalesTotals, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make(map[string]struct{})
	products := make(map[string]struct{})
	totals := &models.SalesTotals{}
	for _, o := range s.orders {
		totals.Orders++
		totals.AmountMinor += o.TotalAmount
		users[o.UserID] = struct{}{}
		for _, item := range o.Products {
			products[item.ProductID] = struct{}{}
		}
	}
	totals.Users = int64(len(users))
	totals.Products = int64(len(products))
	return totals, nil
}

func (s *Store) DailyTotals(_ context.Context, from, to time.Time) ([]models.DailyTotal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]*models.DailyTotal)
	for _, o := range s.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		day := o.CreatedAt.UTC().Format("2006-01-02")
		t, ok := byDay[day]
		if !ok {
			t = &models.DailyTotal{Date: day}
			byDay[day] = t
		}
		t.Orders++
		t.AmountMinor += o.TotalAmount
	}

	out := make([]models.DailyTotal, 0, len(byDay))
	for _, t := range byDay {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (s *Store) Close() error { return nil }
