package service

import (
	"context"
	"testing"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestGetAnalytics(t *testing.T) {
	mem := memstore.New()
	ctx := context.Background()

	put := func(id, user, product string, amount int64, at time.Time) {
		require.NoError(t, mem.CreateOrder(ctx, &models.Order{
			ID:                id,
			UserID:            user,
			TotalAmount:       amount,
			RazorpayOrderID:   "order_" + id,
			RazorpayPaymentID: "pay_" + id,
			CreatedAt:         at,
			UpdatedAt:         at,
			Products:          []models.OrderItem{{ProductID: product, Quantity: 1, Price: float64(amount) / 100}},
		}))
	}
	put("1", "u1", "p1", 10000, time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC))
	put("2", "u1", "p2", 25050, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC))
	put("3", "u2", "p1", 5000, time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC))
	put("4", "u3", "p1", 5000, time.Date(2024, 3, 7, 11, 0, 0, 0, time.UTC))

	svc := NewAnalyticsService(mem)
	svc.logger = zaptest.NewLogger(t)
	svc.now = func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }

	resp, err := svc.GetAnalytics(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.SalesSummary{
		Users:        3,
		Products:     2,
		TotalSales:   4,
		TotalRevenue: 450.5,
	}, resp.AnalyticsData)

	require.Len(t, resp.DailySalesData, 7)
	assert.Equal(t, models.DailySales{Date: "2024-03-01", Sales: 1, Revenue: 250.5}, resp.DailySalesData[0])
	for _, d := range resp.DailySalesData[1:6] {
		assert.Equal(t, int64(0), d.Sales, d.Date)
		assert.Equal(t, 0.0, d.Revenue, d.Date)
	}
	assert.Equal(t, models.DailySales{Date: "2024-03-07", Sales: 2, Revenue: 100}, resp.DailySalesData[6])
}
