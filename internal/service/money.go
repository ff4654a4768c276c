package service

import (
	"errors"
	"fmt"
	"math"
	"math/bits"

	"checkout-service/internal/models"
)

// ErrAmountOutOfRange is returned when a minor-unit amount does not fit in int64.
var ErrAmountOutOfRange = errors.New("amount out of range")

// LineTotalMinor converts a major-unit price to minor units, rounding the
// single unit price, then multiplies by quantity. Negative, non-finite and
// overflowing inputs yield ErrAmountOutOfRange.
func LineTotalMinor(price float64, quantity int) (int64, error) {
	unit := math.Round(price * 100)
	if math.IsNaN(unit) || unit < 0 || unit >= math.MaxInt64 || quantity < 0 {
		return 0, ErrAmountOutOfRange
	}
	hi, lo := bits.Mul64(uint64(unit), uint64(quantity))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrAmountOutOfRange
	}
	return int64(lo), nil
}

// ComputeTotal sums the line totals of items in minor units.
func ComputeTotal(items []models.OrderItem) (int64, error) {
	var total int64
	for i, item := range items {
		line, err := LineTotalMinor(item.Price, item.Quantity)
		if err != nil {
			return 0, fmt.Errorf("line %d: %w", i, err)
		}
		if line > math.MaxInt64-total {
			return 0, fmt.Errorf("line %d: %w", i, ErrAmountOutOfRange)
		}
		total += line
	}
	return total, nil
}

// ApplyDiscount takes percent off total, rounding the discount once.
func ApplyDiscount(total int64, percent float64) int64 {
	switch {
	case percent <= 0 || math.IsNaN(percent):
		return total
	case percent >= 100:
		return 0
	}
	return total - int64(math.Round(float64(total)*percent/100))
}
