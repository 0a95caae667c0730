package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		name   string
		amount float64
		want   int64
	}{
		{"whole amount", 50, 5000},
		{"two decimals", 20.50, 2050},
		{"zero", 0, 0},
		{"rounds half up", 0.005, 1},
		{"rounds down below half", 10.004, 1000},
		{"float representation noise", 19.99, 1999},
		{"large amount", 125000.75, 12500075},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ToMinorUnits(tc.amount)
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToMinorUnits_RejectsNegative(t *testing.T) {
	_, err := ToMinorUnits(-0.01)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFromMinorUnits(t *testing.T) {
	assert.Equal(t, 50.0, FromMinorUnits(5000))
	assert.Equal(t, 0.01, FromMinorUnits(1))
	assert.Equal(t, 0.0, FromMinorUnits(0))
}

// Round-trip: any amount with at most two decimal places survives
// conversion to minor units and back unchanged.
func TestRoundTrip(t *testing.T) {
	for cents := int64(0); cents <= 100000; cents++ {
		amount := float64(cents) / 100
		minor, err := ToMinorUnits(amount)
		assert.NoError(t, err)
		assert.Equal(t, cents, minor, "amount %.2f", amount)
		assert.Equal(t, amount, FromMinorUnits(minor), "amount %.2f", amount)
	}
}
