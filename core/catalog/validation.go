// Package catalog - Plan version linting
// Flags plan versions that publish cleanly but bill in surprising ways.
package catalog

import (
	"fmt"

	"github.com/google/uuid"

	"plan-pricing/core/model"
	"plan-pricing/core/pricing/primitives"
)

// Finding is one lint result for a plan version
type Finding struct {
	PlanVersionID uuid.UUID `json:"planVersionId"`
	ComponentID   uuid.UUID `json:"componentId,omitempty"`
	Rule          string    `json:"rule"`
	Message       string    `json:"message"`
}

// String renders the finding for terminal output
func (f Finding) String() string {
	if f.ComponentID == uuid.Nil {
		return fmt.Sprintf("%s: [%s] %s", f.PlanVersionID, f.Rule, f.Message)
	}
	return fmt.Sprintf("%s/%s: [%s] %s", f.PlanVersionID, f.ComponentID, f.Rule, f.Message)
}

// ValidationRule inspects one plan version
type ValidationRule func(*model.PlanVersion) []Finding

// DefaultValidationRules returns the standard lint rules
func DefaultValidationRules() []ValidationRule {
	return []ValidationRule{
		validateTierCoverage,
		validateSeatBounds,
		validateTimeBoundWindow,
		validateUniqueComponentIDs,
	}
}

// FractionalUsageRules returns the standard rules plus checks that only
// matter when usage is metered in fractional units.
func FractionalUsageRules() []ValidationRule {
	return append(DefaultValidationRules(), validateFractionalSeams)
}

// Lint runs rules against a single plan version
func Lint(pv *model.PlanVersion, rules []ValidationRule) []Finding {
	var findings []Finding
	for _, rule := range rules {
		findings = append(findings, rule(pv)...)
	}
	return findings
}

// Validate runs rules against every stored version, in All() order
func (c *Catalog) Validate(rules []ValidationRule) []Finding {
	var findings []Finding
	for _, pv := range c.All() {
		findings = append(findings, Lint(pv, rules)...)
	}
	return findings
}

// validateTierCoverage flags usage ranges a tiered component bills at zero
func validateTierCoverage(pv *model.PlanVersion) []Finding {
	var findings []Finding
	for _, comp := range pv.Components() {
		tiered, ok := comp.(model.Tiered)
		if !ok {
			continue
		}

		switch tiered.TierMode {
		case model.TierVolume:
			for _, gap := range primitives.Gaps(tiered.Bands()) {
				findings = append(findings, Finding{
					PlanVersionID: pv.ID(),
					ComponentID:   tiered.ID,
					Rule:          "tier_gap",
					Message:       fmt.Sprintf("usage %s matches no tier and bills zero", describeGap(gap)),
				})
			}
		case model.TierGraduated:
			if !hasOpenTier(tiered.Tiers) {
				findings = append(findings, Finding{
					PlanVersionID: pv.ID(),
					ComponentID:   tiered.ID,
					Rule:          "tier_gap",
					Message:       "no open-ended tier: usage beyond the last tier bills zero",
				})
			}
		}
	}
	return findings
}

// validateFractionalSeams flags volume tiers that end at t while the next
// starts at t+1, leaving usage strictly between them unpriced.
func validateFractionalSeams(pv *model.PlanVersion) []Finding {
	var findings []Finding
	for _, comp := range pv.Components() {
		tiered, ok := comp.(model.Tiered)
		if !ok || tiered.TierMode != model.TierVolume {
			continue
		}
		for _, t := range primitives.Seams(tiered.Bands()) {
			findings = append(findings, Finding{
				PlanVersionID: pv.ID(),
				ComponentID:   tiered.ID,
				Rule:          "fractional_tier_seam",
				Message:       fmt.Sprintf("usage strictly between %d and %d matches no tier and bills zero", t, t+1),
			})
		}
	}
	return findings
}

// validateSeatBounds flags a maximum below the minimum
func validateSeatBounds(pv *model.PlanVersion) []Finding {
	var findings []Finding
	for _, comp := range pv.Components() {
		seat, ok := comp.(model.Seat)
		if !ok || seat.MaximumSeats == nil {
			continue
		}
		if *seat.MaximumSeats < seat.MinimumSeats {
			findings = append(findings, Finding{
				PlanVersionID: pv.ID(),
				ComponentID:   seat.ID,
				Rule:          "seat_bounds",
				Message: fmt.Sprintf("maximumSeats %d is below minimumSeats %d; every period bills %d seat(s)",
					*seat.MaximumSeats, seat.MinimumSeats, *seat.MaximumSeats),
			})
		}
	}
	return findings
}

// validateTimeBoundWindow flags windows that can never be active
func validateTimeBoundWindow(pv *model.PlanVersion) []Finding {
	var findings []Finding
	for _, comp := range pv.Components() {
		tb, ok := comp.(model.TimeBound)
		if !ok {
			continue
		}
		if tb.ValidTo.Before(tb.ValidFrom) {
			findings = append(findings, Finding{
				PlanVersionID: pv.ID(),
				ComponentID:   tb.ID,
				Rule:          "empty_window",
				Message:       "validTo is before validFrom; the fee never applies",
			})
		}
	}
	return findings
}

// validateUniqueComponentIDs flags components sharing an id, which then
// share one usage entry
func validateUniqueComponentIDs(pv *model.PlanVersion) []Finding {
	var findings []Finding
	seen := make(map[uuid.UUID]bool)
	for _, comp := range pv.Components() {
		id := comp.Meta().ID
		if seen[id] {
			findings = append(findings, Finding{
				PlanVersionID: pv.ID(),
				ComponentID:   id,
				Rule:          "duplicate_component",
				Message:       "component id is used more than once",
			})
		}
		seen[id] = true
	}
	return findings
}

func hasOpenTier(tiers []model.Tier) bool {
	for _, t := range tiers {
		if t.To == nil {
			return true
		}
	}
	return false
}

func describeGap(g primitives.Gap) string {
	if g.To == nil {
		return fmt.Sprintf("from %d upwards", g.From)
	}
	if *g.To == g.From {
		return fmt.Sprintf("of %d", g.From)
	}
	return fmt.Sprintf("from %d to %d", g.From, *g.To)
}
