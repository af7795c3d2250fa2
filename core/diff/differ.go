// Package diff compares two pricing results line item by line item.
// It answers "what would this tenant pay under the new plan version" for
// price migrations.
package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

// DiffResult is the complete diff between two pricing results
type DiffResult struct {
	Currency string

	// Overall summary
	TotalBefore decimal.Decimal
	TotalAfter  decimal.Decimal
	TotalDelta  decimal.Decimal

	// DeltaPercent is nil when the before total is zero
	DeltaPercent *decimal.Decimal

	// Items holds one entry per component, in after order followed by
	// removed components in before order
	Items []*ItemDiff

	// Counts
	AddedCount     int
	RemovedCount   int
	ChangedCount   int
	UnchangedCount int
}

// ItemDiff describes changes to a single component's line item
type ItemDiff struct {
	ComponentID   uuid.UUID
	ComponentName string
	ChangeType    ChangeType

	Before *model.LineItem
	After  *model.LineItem
	Delta  decimal.Decimal

	// What drove the change
	Reasons []ChangeReason
}

// ChangeType indicates the type of change
type ChangeType int

const (
	ChangeAdded     ChangeType = iota // Component only priced after
	ChangeRemoved                     // Component only priced before
	ChangeModified                    // Amount changed
	ChangeUnchanged                   // Same amount
)

// String returns the change type name
func (c ChangeType) String() string {
	switch c {
	case ChangeAdded:
		return "added"
	case ChangeRemoved:
		return "removed"
	case ChangeModified:
		return "modified"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// ChangeReason explains why an amount changed
type ChangeReason struct {
	Category string // "rate", "quantity", "component"
	What     string
}

// Diff computes the diff between before and after. Both results must
// belong to the same tenant and currency; amounts are compared exactly.
func Diff(before, after *model.Result) (*DiffResult, error) {
	if before == nil || after == nil {
		return nil, errors.New(errors.TypeInvariant, "cannot diff a nil result")
	}
	if before.TenantID != after.TenantID {
		return nil, errors.TenantMismatch(after.TenantID.String(), before.TenantID.String())
	}
	if before.Currency != after.Currency {
		return nil, errors.Validationf("currency", "cannot compare %s with %s", before.Currency, after.Currency)
	}

	result := &DiffResult{
		Currency:    after.Currency,
		TotalBefore: before.TotalAmount,
		TotalAfter:  after.TotalAmount,
		TotalDelta:  after.TotalAmount.Sub(before.TotalAmount),
	}
	if !before.TotalAmount.IsZero() {
		pct := result.TotalDelta.Div(before.TotalAmount).Mul(decimal.NewFromInt(100))
		result.DeltaPercent = &pct
	}

	beforeItems := make(map[uuid.UUID]*model.LineItem, len(before.LineItems))
	for i := range before.LineItems {
		beforeItems[before.LineItems[i].ComponentID] = &before.LineItems[i]
	}
	seen := make(map[uuid.UUID]bool, len(after.LineItems))

	for i := range after.LineItems {
		a := &after.LineItems[i]
		seen[a.ComponentID] = true

		b, existed := beforeItems[a.ComponentID]
		if !existed {
			result.add(&ItemDiff{
				ComponentID:   a.ComponentID,
				ComponentName: a.ComponentName,
				ChangeType:    ChangeAdded,
				After:         a,
				Delta:         a.Amount,
				Reasons:       []ChangeReason{{Category: "component", What: "new component: " + a.ComponentName}},
			})
			continue
		}
		result.add(compareItems(b, a))
	}

	for i := range before.LineItems {
		b := &before.LineItems[i]
		if seen[b.ComponentID] {
			continue
		}
		result.add(&ItemDiff{
			ComponentID:   b.ComponentID,
			ComponentName: b.ComponentName,
			ChangeType:    ChangeRemoved,
			Before:        b,
			Delta:         b.Amount.Neg(),
			Reasons:       []ChangeReason{{Category: "component", What: "component removed: " + b.ComponentName}},
		})
	}

	return result, nil
}

func (r *DiffResult) add(d *ItemDiff) {
	r.Items = append(r.Items, d)
	switch d.ChangeType {
	case ChangeAdded:
		r.AddedCount++
	case ChangeRemoved:
		r.RemovedCount++
	case ChangeModified:
		r.ChangedCount++
	default:
		r.UnchangedCount++
	}
}

func compareItems(before, after *model.LineItem) *ItemDiff {
	d := &ItemDiff{
		ComponentID:   after.ComponentID,
		ComponentName: after.ComponentName,
		Before:        before,
		After:         after,
		Delta:         after.Amount.Sub(before.Amount),
	}

	if d.Delta.IsZero() {
		d.ChangeType = ChangeUnchanged
		return d
	}
	d.ChangeType = ChangeModified

	if before.ComponentType != after.ComponentType {
		d.Reasons = append(d.Reasons, ChangeReason{
			Category: "component",
			What:     fmt.Sprintf("priced as %s instead of %s", after.ComponentType, before.ComponentType),
		})
	}
	if !before.UnitPrice.Equal(after.UnitPrice) {
		d.Reasons = append(d.Reasons, ChangeReason{
			Category: "rate",
			What:     fmt.Sprintf("unit price %s -> %s", before.UnitPrice, after.UnitPrice),
		})
	}
	if !before.Quantity.Equal(after.Quantity) {
		d.Reasons = append(d.Reasons, ChangeReason{
			Category: "quantity",
			What:     fmt.Sprintf("quantity %s -> %s", before.Quantity, after.Quantity),
		})
	}
	return d
}

// Summary provides a human-readable summary
func (r *DiffResult) Summary() string {
	var b strings.Builder

	// Overall change
	switch {
	case r.TotalDelta.IsZero():
		b.WriteString("No price change\n")
	case r.TotalDelta.IsNegative():
		fmt.Fprintf(&b, "Price decreased by %s %s", r.Currency, r.TotalDelta.Neg())
	default:
		fmt.Fprintf(&b, "Price increased by %s %s", r.Currency, r.TotalDelta)
	}
	if !r.TotalDelta.IsZero() {
		if r.DeltaPercent != nil {
			fmt.Fprintf(&b, " (%s%%)", r.DeltaPercent.Abs().StringFixed(2))
		}
		b.WriteString("\n")
	}

	// Component changes
	if r.AddedCount > 0 {
		fmt.Fprintf(&b, "  + %d component(s) added\n", r.AddedCount)
	}
	if r.RemovedCount > 0 {
		fmt.Fprintf(&b, "  - %d component(s) removed\n", r.RemovedCount)
	}
	if r.ChangedCount > 0 {
		fmt.Fprintf(&b, "  ~ %d component(s) changed\n", r.ChangedCount)
	}

	return b.String()
}

// TopChanges returns the n items with the largest absolute delta. Ties keep
// their Items order.
func (r *DiffResult) TopChanges(n int) []*ItemDiff {
	var all []*ItemDiff
	for _, d := range r.Items {
		if d.ChangeType != ChangeUnchanged {
			all = append(all, d)
		}
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Delta.Abs().GreaterThan(all[j].Delta.Abs())
	})

	if n > len(all) {
		n = len(all)
	}
	return all[:n]
}
