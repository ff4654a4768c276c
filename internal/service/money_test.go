package service

import (
	"math"
	"testing"

	"checkout-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name  string
		items []models.OrderItem
		want  int64
	}{
		{"single line", []models.OrderItem{{Price: 1500, Quantity: 2}}, 300000},
		{"rounds each line before multiplying", []models.OrderItem{{Price: 19.99, Quantity: 3}}, 5997},
		{"float drift", []models.OrderItem{{Price: 0.29, Quantity: 1}, {Price: 0.1, Quantity: 7}}, 99},
		{"free item", []models.OrderItem{{Price: 0, Quantity: 5}}, 0},
		{"empty", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeTotal(tt.items)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestComputeTotal_OutOfRange(t *testing.T) {
	tests := []struct {
		name  string
		items []models.OrderItem
	}{
		{"unit price past int64", []models.OrderItem{{Price: 1e17, Quantity: 1}}},
		{"infinite price", []models.OrderItem{{Price: math.Inf(1), Quantity: 1}}},
		{"line wraps to zero", []models.OrderItem{{Price: 1, Quantity: 1 << 62}}},
		{"line wraps to small positive", []models.OrderItem{{Price: 1, Quantity: 1<<62 + 1}}},
		{"sum past int64", []models.OrderItem{
			{Price: 5e16, Quantity: 1},
			{Price: 5e16, Quantity: 1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeTotal(tt.items)
			assert.ErrorIs(t, err, ErrAmountOutOfRange)
		})
	}
}

func TestComputeTotal_LargestAmount(t *testing.T) {
	got, err := ComputeTotal([]models.OrderItem{{Price: 0.01, Quantity: math.MaxInt64}})
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)
}

func TestLineTotalMinor_ExactForTwoDecimals(t *testing.T) {
	for cents := int64(0); cents <= 1000000; cents += 7 {
		price := float64(cents) / 100
		if got, err := LineTotalMinor(price, 3); err != nil || got != cents*3 {
			t.Fatalf("LineTotalMinor(%v, 3) = %d, want %d", price, got, cents*3)
		}
	}
}

func TestApplyDiscount(t *testing.T) {
	assert.Equal(t, int64(90000), ApplyDiscount(100000, 10))
	assert.Equal(t, int64(849), ApplyDiscount(999, 15), "discount 149.85 rounds to 150")
	assert.Equal(t, int64(1000), ApplyDiscount(1000, 0))
	assert.Equal(t, int64(0), ApplyDiscount(1000, 100))
	assert.Equal(t, int64(0), ApplyDiscount(math.MaxInt64, 100))
	assert.Equal(t, int64(1000), ApplyDiscount(1000, -5))
}
