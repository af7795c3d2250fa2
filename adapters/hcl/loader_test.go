package hcl

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

func TestParseFile(t *testing.T) {
	doc, err := NewLoader().ParseFile(filepath.Join("testdata", "growth.hcl"))
	require.NoError(t, err)

	require.Len(t, doc.Plans, 1)
	plan := doc.Plans[0]
	assert.Equal(t, "Growth", plan.Name)
	assert.True(t, plan.IsActive)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", plan.TenantID.String())

	require.Len(t, doc.Versions, 1)
	d := doc.Versions[0]
	assert.Equal(t, 1, d.Version)
	assert.Equal(t, "NGN", d.Currency)
	assert.Nil(t, d.EffectiveTo)
	assert.Equal(t, "finance", d.Metadata["owner"])
	assert.Equal(t, []interface{}{"self-serve", "monthly"}, d.Metadata["labels"])

	require.Len(t, d.Components, 4)
	assert.True(t, d.Components[0].(model.FlatFee).Amount.Equal(decimal.NewFromInt(5000)))

	usage := d.Components[1].(model.Usage)
	assert.Equal(t, "0.01", usage.UnitPrice.String(), "unit price must be exact")
	assert.Equal(t, int64(1000), usage.IncludedUnits)

	seat := d.Components[2].(model.Seat)
	assert.Equal(t, int64(0), seat.MinimumSeats, "defaults are applied by Publish")
	assert.Nil(t, seat.MaximumSeats)

	tiered := d.Components[3].(model.Tiered)
	assert.Equal(t, model.TierVolume, tiered.TierMode)
	require.Len(t, tiered.Tiers, 3)
	assert.Equal(t, int64(10), *tiered.Tiers[0].To)
	assert.Nil(t, tiered.Tiers[0].FlatAmount)
	assert.Nil(t, tiered.Tiers[2].To)
	assert.True(t, tiered.Tiers[2].UnitPrice.Equal(decimal.NewFromInt(50)), "quoted numbers are accepted")
	require.NotNil(t, tiered.Tiers[2].FlatAmount)
	assert.True(t, tiered.Tiers[2].FlatAmount.IsZero())

	_, err = model.Publish(d)
	assert.NoError(t, err)
}

func TestLoadDir(t *testing.T) {
	doc, err := NewLoader().LoadDir("testdata")
	require.NoError(t, err)
	require.Len(t, doc.Versions, 2)

	promo := doc.Versions[1]
	require.NotNil(t, promo.EffectiveTo)
	assert.Equal(t, "2024-01-20T08:30:00Z", promo.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"))

	tb := promo.Components[0].(model.TimeBound)
	assert.Equal(t, "250.75", tb.Amount.String())
	assert.Equal(t, "February only", tb.Description)

	graduated := promo.Components[1].(model.Tiered)
	assert.Equal(t, model.TierGraduated, graduated.TierMode)
	assert.Equal(t, "0.1", graduated.Tiers[2].UnitPrice.String())

	for _, d := range doc.Versions {
		_, err := model.Publish(d)
		assert.NoError(t, err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		errType errors.Type
		field   string
	}{
		{
			name:    "syntax error",
			src:     `plan_version {`,
			errType: errors.TypeParsing,
		},
		{
			name:    "missing required attribute",
			src:     `plan_version { id = "x" }`,
			errType: errors.TypeParsing,
		},
		{
			name: "bad uuid",
			src: `plan_version {
  id = "not-a-uuid"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].id",
		},
		{
			name: "bad timestamp",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "January 1st"
  created_at = "2024-01-01T00:00:00Z"
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].effective_from",
		},
		{
			name: "unknown component type",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
  component "discount" {
    id = "44444444-4444-4444-4444-444444444444"
    name = "Ten percent off"
  }
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].component[0].type",
		},
		{
			name: "offset timestamp",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T01:00:00+01:00"
  created_at = "2024-01-01T00:00:00Z"
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].effective_from",
		},
		{
			name: "non numeric amount",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
  component "flat_fee" {
    id = "44444444-4444-4444-4444-444444444444"
    name = "Base"
    amount = "lots"
  }
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].component[0].amount",
		},
		{
			name: "missing amount",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
  component "flat_fee" {
    id = "44444444-4444-4444-4444-444444444444"
    name = "Base"
  }
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].component[0].amount",
		},
		{
			name: "zero minimum seats",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
  component "seat" {
    id = "44444444-4444-4444-4444-444444444444"
    name = "Seats"
    price_per_seat = 1000
    minimum_seats = 0
  }
}`,
			errType: errors.TypeValidation,
			field:   "plan_version[0].component[0].minimum_seats",
		},
		{
			name: "variable reference",
			src: `plan_version {
  id = "33333333-3333-3333-3333-333333333333"
  plan_id = "22222222-2222-2222-2222-222222222222"
  tenant_id = "11111111-1111-1111-1111-111111111111"
  version = 1
  currency = "NGN"
  effective_from = "2024-01-01T00:00:00Z"
  created_at = "2024-01-01T00:00:00Z"
  component "flat_fee" {
    id = "44444444-4444-4444-4444-444444444444"
    name = "Base"
    amount = var.base_fee
  }
}`,
			errType: errors.TypeParsing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Parse([]byte(tt.src), tt.name+".hcl")
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
			if tt.field != "" {
				assert.Equal(t, tt.field, errors.FieldOf(err))
			}
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := NewLoader().ParseFile(filepath.Join("testdata", "absent.hcl"))
	assert.True(t, errors.IsType(err, errors.TypeParsing))
}
