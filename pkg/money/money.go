// Package money holds fixed-precision helpers for prices and order totals.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits stored for every monetary amount.
const Scale int32 = 2

// MaxQuantity caps the units on a cart line or order.
const MaxQuantity = 10000

// MaxAmount is the largest value a numeric(12,2) column holds.
var MaxAmount = decimal.RequireFromString("9999999999.99")

// Parse reads a decimal string and rejects values with more than two fractional digits.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if !d.Equal(d.Round(Scale)) {
		return decimal.Zero, fmt.Errorf("amount %q has more than %d fractional digits", value, Scale)
	}
	return d.Round(Scale), nil
}

// Normalize rounds an amount to the stored scale.
func Normalize(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// HasScale reports whether d fits in the stored scale without rounding.
func HasScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(Scale))
}

// InRange reports whether d fits the stored precision.
func InRange(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// Total multiplies a unit price by a quantity at the stored scale.
func Total(unit decimal.Decimal, quantity int) decimal.Decimal {
	return Normalize(unit.Mul(decimal.NewFromInt(int64(quantity))))
}

// Equal compares two amounts at the stored scale.
func Equal(a, b decimal.Decimal) bool {
	return Normalize(a).Equal(Normalize(b))
}

// String formats an amount with exactly two fractional digits.
func String(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}
