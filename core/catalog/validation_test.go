package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-pricing/core/model"
)

func tiered(mode model.TierMode, tiers ...model.Tier) model.Tiered {
	return model.Tiered{
		Base:     model.Base{ID: uuid.New(), Name: "Storage"},
		TierMode: mode,
		UnitName: "GB",
		Tiers:    tiers,
	}
}

func tier(from int64, to *int64) model.Tier {
	return model.Tier{From: from, To: to, UnitPrice: decimal.NewFromInt(1)}
}

func lint(t *testing.T, components ...model.Component) []Finding {
	t.Helper()
	pv, err := model.Publish(draft(tenantA, 1, "2024-01-01T00:00:00Z", components...))
	require.NoError(t, err)
	return Lint(pv, DefaultValidationRules())
}

func TestLintCleanPlan(t *testing.T) {
	findings := lint(t,
		fee(100),
		tiered(model.TierVolume, tier(0, i64(10)), tier(11, nil)),
		tiered(model.TierGraduated, tier(0, i64(100)), tier(101, nil)),
	)
	assert.Empty(t, findings)
}

func TestLintTierGaps(t *testing.T) {
	volume := tiered(model.TierVolume, tier(0, i64(10)), tier(20, i64(50)))
	graduated := tiered(model.TierGraduated, tier(0, i64(100)))

	findings := lint(t, volume, graduated)
	require.Len(t, findings, 3)

	assert.Equal(t, volume.ID, findings[0].ComponentID)
	assert.Equal(t, "usage from 11 to 19 matches no tier and bills zero", findings[0].Message)
	assert.Equal(t, "usage from 51 upwards matches no tier and bills zero", findings[1].Message)
	assert.Equal(t, graduated.ID, findings[2].ComponentID)
	for _, f := range findings {
		assert.Equal(t, "tier_gap", f.Rule)
	}
}

func TestLintFractionalSeams(t *testing.T) {
	volume := tiered(model.TierVolume, tier(0, i64(10)), tier(11, i64(50)), tier(51, nil))
	overlapping := tiered(model.TierVolume, tier(0, i64(11)), tier(11, nil))
	graduated := tiered(model.TierGraduated, tier(0, i64(100)), tier(101, nil))

	pv, err := model.Publish(draft(tenantA, 1, "2024-01-01T00:00:00Z", volume, overlapping, graduated))
	require.NoError(t, err)

	assert.Empty(t, Lint(pv, DefaultValidationRules()), "whole-unit usage is fully covered")

	findings := Lint(pv, FractionalUsageRules())
	require.Len(t, findings, 2)
	for _, f := range findings {
		assert.Equal(t, "fractional_tier_seam", f.Rule)
		assert.Equal(t, volume.ID, f.ComponentID)
	}
	assert.Equal(t, "usage strictly between 10 and 11 matches no tier and bills zero", findings[0].Message)
	assert.Equal(t, "usage strictly between 50 and 51 matches no tier and bills zero", findings[1].Message)
}

func TestLintSeatBounds(t *testing.T) {
	seat := model.Seat{
		Base:         model.Base{ID: uuid.New(), Name: "Seats"},
		PricePerSeat: decimal.NewFromInt(1000),
		MinimumSeats: 5,
		MaximumSeats: i64(2),
	}
	findings := lint(t, seat)
	require.Len(t, findings, 1)
	assert.Equal(t, "seat_bounds", findings[0].Rule)
	assert.Contains(t, findings[0].String(), seat.ID.String())
}

func TestLintEmptyWindowAndDuplicates(t *testing.T) {
	promo := model.TimeBound{
		Base:      model.Base{ID: uuid.New(), Name: "Promo"},
		Amount:    decimal.NewFromInt(5),
		ValidFrom: at("2024-02-01T00:00:00Z"),
		ValidTo:   at("2024-01-01T00:00:00Z"),
	}
	findings := lint(t, promo, fee(1), fee(2))
	require.Len(t, findings, 2)
	assert.Equal(t, "empty_window", findings[0].Rule)
	assert.Equal(t, "duplicate_component", findings[1].Rule)
}

func TestCatalogValidate(t *testing.T) {
	c := New()
	_, err := c.Publish(draft(tenantA, 1, "2024-01-01T00:00:00Z",
		tiered(model.TierGraduated, tier(0, i64(10)))))
	require.NoError(t, err)
	_, err = c.Publish(draft(tenantA, 2, "2024-02-01T00:00:00Z"))
	require.NoError(t, err)

	assert.Len(t, c.Validate(DefaultValidationRules()), 1)
}
