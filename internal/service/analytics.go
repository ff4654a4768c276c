package service

import (
	"context"
	"fmt"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store"
	"checkout-service/internal/util"

	"go.uber.org/zap"
)

const analyticsDays = 7

// AnalyticsService aggregates sales for the admin dashboard
type AnalyticsService struct {
	orders store.OrderStore
	logger *zap.Logger
	now    func() time.Time
}

// NewAnalyticsService creates a new analytics service
func NewAnalyticsService(orders store.OrderStore) *AnalyticsService {
	return &AnalyticsService{
		orders: orders,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// AnalyticsResponse is the dashboard payload
type AnalyticsResponse struct {
	AnalyticsData  models.SalesSummary `json:"analyticsData"`
	DailySalesData []models.DailySales `json:"dailySalesData"`
}

// GetAnalytics returns all-time totals and the last seven days of sales,
// today included.
func (s *AnalyticsService) GetAnalytics(ctx context.Context) (*AnalyticsResponse, error) {
	ctx, span := util.StartSpan(ctx, "AnalyticsService.GetAnalytics")
	defer span.End()

	summary, err := s.SalesSummary(ctx)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(analyticsDays - 1))
	daily, err := s.DailySales(ctx, from, today.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Analytics computed",
		zap.Int64("orders", summary.TotalSales),
		zap.Time("from", from))

	return &AnalyticsResponse{AnalyticsData: *summary, DailySalesData: daily}, nil
}

func (s *AnalyticsService) SalesSummary(ctx context.Context) (*models.SalesSummary, error) {
	totals, err := s.orders.SalesTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales: %w", err)
	}
	return &models.SalesSummary{
		Users:        totals.Users,
		Products:     totals.Products,
		TotalSales:   totals.Orders,
		TotalRevenue: models.MinorToMajor(totals.AmountMinor),
	}, nil
}

// DailySales returns one entry per UTC day in [from, to); days without
// orders are reported as zero.
func (s *AnalyticsService) DailySales(ctx context.Context, from, to time.Time) ([]models.DailySales, error) {
	totals, err := s.orders.DailyTotals(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily sales: %w", err)
	}

	byDate := make(map[string]models.DailyTotal, len(totals))
	for _, t := range totals {
		byDate[t.Date] = t
	}

	var out []models.DailySales
	for d := from.UTC(); d.Before(to); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		t := byDate[date]
		out = append(out, models.DailySales{
			Date:    date,
			Sales:   t.Orders,
			Revenue: models.MinorToMajor(t.AmountMinor),
		})
	}
	return out, nil
}
