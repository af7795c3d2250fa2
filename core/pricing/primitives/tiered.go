// Package primitives - Tiered pricing primitives
// Handles volume and graduated bracket pricing
package primitives

import (
	"sort"

	"github.com/shopspring/decimal"
)

// VolumeResult is the outcome of pricing usage against a single band
type VolumeResult struct {
	// Matched is false when no band contains the usage; Amount is then zero.
	Matched bool
	Index   int
	Band    Band
	Amount  decimal.Decimal
}

// Volume prices all of used at the first band, in listed order, that
// contains it: used * UnitPrice + FlatAmount.
// Usage outside every band is billed nothing.
func Volume(used decimal.Decimal, bands []Band) VolumeResult {
	for i, band := range bands {
		if !band.Contains(used) {
			continue
		}
		return VolumeResult{
			Matched: true,
			Index:   i,
			Band:    band,
			Amount:  used.Mul(band.UnitPrice).Add(band.FlatAmount),
		}
	}
	return VolumeResult{Index: -1, Amount: decimal.Zero}
}

// Portion is the slice of usage billed inside one band
type Portion struct {
	Index     int
	Units     decimal.Decimal
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// GraduatedResult is the outcome of pricing usage across consecutive bands
type GraduatedResult struct {
	Amount   decimal.Decimal
	Portions []Portion
	// Uncovered is usage left over once every band is exhausted. It is
	// never billed.
	Uncovered decimal.Decimal
}

// Graduated consumes used band by band in listed order. Every band visited
// while usage remains bills min(remaining, capacity) * UnitPrice plus its
// FlatAmount.
func Graduated(used decimal.Decimal, bands []Band) GraduatedResult {
	result := GraduatedResult{Amount: decimal.Zero, Uncovered: decimal.Zero}
	remaining := used

	for i, band := range bands {
		if !remaining.IsPositive() {
			break
		}

		units := remaining
		if capacity, bounded := band.Capacity(); bounded {
			units = decimal.Min(remaining, capacity)
		}

		amount := units.Mul(band.UnitPrice).Add(band.FlatAmount)
		result.Amount = result.Amount.Add(amount)
		result.Portions = append(result.Portions, Portion{
			Index:     i,
			Units:     units,
			UnitPrice: band.UnitPrice,
			Amount:    amount,
		})
		remaining = remaining.Sub(units)
	}

	if remaining.IsPositive() {
		result.Uncovered = remaining
	}
	return result
}

// Gaps returns the integer ranges from zero upwards that no band covers.
// Bands may be listed in any order and may overlap.
func Gaps(bands []Band) []Gap {
	sorted := make([]Band, len(bands))
	copy(sorted, bands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].From < sorted[j].From
	})

	var gaps []Gap
	next := int64(0) // lowest unit not yet known to be covered
	for _, band := range sorted {
		if band.To != nil && *band.To < band.From {
			continue // empty band
		}
		if band.From > next {
			to := band.From - 1
			gaps = append(gaps, Gap{From: next, To: &to})
		}
		if band.To == nil {
			return gaps
		}
		if *band.To+1 > next {
			next = *band.To + 1
		}
	}
	return append(gaps, Gap{From: next})
}

// Seams returns the band ends t, ascending, for which fractional usage
// strictly between t and t+1 falls into no band even though t+1 itself is
// covered. Volume pricing bills such quantities at zero. Uncovered whole
// units are reported by Gaps instead.
func Seams(bands []Band) []int64 {
	var seams []int64
	seen := make(map[int64]bool)
	for _, band := range bands {
		if band.To == nil || *band.To < band.From {
			continue
		}
		t := *band.To
		if seen[t] || spans(bands, t) || !contains(bands, t+1) {
			continue
		}
		seen[t] = true
		seams = append(seams, t)
	}
	sort.Slice(seams, func(i, j int) bool { return seams[i] < seams[j] })
	return seams
}

// spans reports whether one band covers the whole open interval (t, t+1)
func spans(bands []Band, t int64) bool {
	for _, band := range bands {
		if band.From <= t && (band.To == nil || *band.To >= t+1) {
			return true
		}
	}
	return false
}

func contains(bands []Band, n int64) bool {
	for _, band := range bands {
		if band.From <= n && (band.To == nil || *band.To >= n) {
			return true
		}
	}
	return false
}

// AverageUnitPrice returns amount / max(used, 1). It is a display value and
// must never be used to re-derive an amount.
func AverageUnitPrice(amount, used decimal.Decimal) decimal.Decimal {
	return amount.Div(decimal.Max(used, decimal.NewFromInt(1)))
}
