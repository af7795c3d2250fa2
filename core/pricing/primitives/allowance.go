package primitives

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillableUnits returns used minus the free allowance, floored at zero.
func BillableUnits(used decimal.Decimal, included int64) decimal.Decimal {
	return decimal.Max(decimal.Zero, used.Sub(decimal.NewFromInt(included)))
}

// EffectiveSeats clamps a reported seat count into [minimum, maximum].
// An absent report bills the minimum. The floor is applied before the
// ceiling, so a maximum below the minimum bills the maximum.
func EffectiveSeats(reported *int64, minimum int64, maximum *int64) int64 {
	actual := minimum
	if reported != nil {
		actual = *reported
	}

	billable := actual
	if billable < minimum {
		billable = minimum
	}
	if maximum != nil && billable > *maximum {
		billable = *maximum
	}
	return billable
}

// WithinWindow reports whether at lies in [from, to], both ends inclusive,
// comparing absolute instants.
func WithinWindow(at, from, to time.Time) bool {
	return !at.Before(from) && !at.After(to)
}
