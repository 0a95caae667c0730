// Package money converts between major currency units (20.50 GHS) and
// the integer minor units (2050 pesewas) payment gateways charge in.
package money

import (
	"errors"
	"math"
)

var ErrInvalidAmount = errors.New("amount must be a non-negative number")

// ToMinorUnits multiplies by 100 and rounds half-up. For any amount
// with at most two decimal places, FromMinorUnits inverts it exactly.
func ToMinorUnits(amount float64) (int64, error) {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, ErrInvalidAmount
	}
	return int64(math.Floor(amount*100 + 0.5)), nil
}

func FromMinorUnits(minor int64) float64 {
	return float64(minor) / 100
}
