// Package primitives - Centralized pricing math
// Evaluators declare intent, not do math.
// All amount computation flows through these primitives, on exact decimals.
package primitives

import (
	"github.com/shopspring/decimal"
)

// Band is one bracket of a tiered price. To is inclusive; nil means the
// band is open-ended.
type Band struct {
	From       int64
	To         *int64
	UnitPrice  decimal.Decimal
	FlatAmount decimal.Decimal // zero when the tier has none
}

// Contains reports whether used falls inside the band: From <= used and,
// when bounded, used <= To.
func (b Band) Contains(used decimal.Decimal) bool {
	if used.LessThan(decimal.NewFromInt(b.From)) {
		return false
	}
	return b.To == nil || used.LessThanOrEqual(decimal.NewFromInt(*b.To))
}

// Capacity returns the number of units the band holds, To - From + 1.
// The second result is false for an open-ended band. A band whose To lies
// below its From holds nothing.
func (b Band) Capacity() (decimal.Decimal, bool) {
	if b.To == nil {
		return decimal.Zero, false
	}
	size := *b.To - b.From + 1
	if size < 0 {
		size = 0
	}
	return decimal.NewFromInt(size), true
}

// Gap describes a hole in tier coverage: units in [From, To] match no band.
// A nil To means everything from From upwards is uncovered.
type Gap struct {
	From int64
	To   *int64
}
