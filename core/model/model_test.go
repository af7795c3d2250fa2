package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plan-pricing/internal/errors"
)

var (
	tenantID  = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	planID    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	versionID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
	flatID    = uuid.MustParse("44444444-4444-4444-4444-444444444444")
	tieredID  = uuid.MustParse("77777777-7777-7777-7777-777777777777")
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func i64(v int64) *int64 { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func baseDraft(components ...Component) PlanVersionDraft {
	return PlanVersionDraft{
		ID:            versionID,
		PlanID:        planID,
		TenantID:      tenantID,
		Version:       1,
		Currency:      "NGN",
		Components:    components,
		EffectiveFrom: ts("2024-01-01T00:00:00Z"),
		CreatedAt:     ts("2024-01-01T00:00:00Z"),
	}
}

func flatFee(amount string) FlatFee {
	return FlatFee{Base: Base{ID: flatID, Name: "Base Subscription"}, Amount: dec(amount)}
}

func tiered() Tiered {
	flat := dec("10")
	return Tiered{
		Base:     Base{ID: tieredID, Name: "Storage"},
		TierMode: TierVolume,
		UnitName: "GB",
		Tiers: []Tier{
			{From: 0, To: i64(10), UnitPrice: dec("100"), FlatAmount: &flat},
			{From: 11, UnitPrice: dec("80")},
		},
	}
}

func TestNormalizeComponentAppliesDefaults(t *testing.T) {
	seat, err := NormalizeComponent(Seat{
		Base:         Base{ID: uuid.New(), Name: "Seats"},
		PricePerSeat: dec("1000"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), seat.(Seat).MinimumSeats)

	usage, err := NormalizeComponent(Usage{
		Base:      Base{ID: uuid.New(), Name: "API"},
		UnitPrice: dec("0.01"),
		UnitName:  "call",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.(Usage).IncludedUnits)
}

func TestNormalizeComponentRejects(t *testing.T) {
	tests := []struct {
		name      string
		component Component
		field     string
	}{
		{"nil component", nil, ""},
		{"nil pointer", (*FlatFee)(nil), ""},
		{"missing id", FlatFee{Base: Base{Name: "x"}, Amount: dec("1")}, "id"},
		{"empty name", FlatFee{Base: Base{ID: flatID}, Amount: dec("1")}, "name"},
		{"negative flat amount", flatFee("-1"), "amount"},
		{"vanishingly small negative amount", flatFee("-1e-400"), "amount"},
		{"usage without unit name", Usage{Base: Base{ID: flatID, Name: "u"}}, "unitName"},
		{"negative included units", Usage{Base: Base{ID: flatID, Name: "u"}, UnitName: "call", IncludedUnits: -1}, "includedUnits"},
		{"zero maximum seats", Seat{Base: Base{ID: flatID, Name: "s"}, MaximumSeats: i64(0)}, "maximumSeats"},
		{"negative minimum seats", Seat{Base: Base{ID: flatID, Name: "s"}, MinimumSeats: -2}, "minimumSeats"},
		{"unknown tier mode", func() Component { c := tiered(); c.TierMode = "stairstep"; return c }(), "tierMode"},
		{"no tiers", func() Component { c := tiered(); c.Tiers = nil; return c }(), "tiers"},
		{"negative tier price", func() Component { c := tiered(); c.Tiers[1].UnitPrice = dec("-0.5"); return c }(), "tiers[1].unitPrice"},
		{"tiny negative tier price", func() Component { c := tiered(); c.Tiers[0].UnitPrice = dec("-1e-400"); return c }(), "tiers[0].unitPrice"},
		{"tiny negative tier flat amount", func() Component {
			c := tiered()
			flat := dec("-1e-400")
			c.Tiers[0].FlatAmount = &flat
			return c
		}(), "tiers[0].flatAmount"},
		{"zero tier upper bound", func() Component { c := tiered(); c.Tiers[0].To = i64(0); return c }(), "tiers[0].to"},
		{"time bound without window", TimeBound{Base: Base{ID: flatID, Name: "promo"}, Amount: dec("5")}, "validFrom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NormalizeComponent(tt.component)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
			assert.Equal(t, tt.field, errors.FieldOf(err))
		})
	}
}

func TestNormalizeComponentAcceptsMaximumBelowMinimum(t *testing.T) {
	_, err := NormalizeComponent(Seat{
		Base:         Base{ID: flatID, Name: "s"},
		MinimumSeats: 5,
		MaximumSeats: i64(2),
	})
	assert.NoError(t, err)
}

func TestNormalizeComponentDoesNotAliasInput(t *testing.T) {
	in := tiered()
	out, err := NormalizeComponent(in)
	require.NoError(t, err)

	*in.Tiers[0].To = 999
	in.Tiers[0].UnitPrice = dec("1")

	got := out.(Tiered)
	assert.Equal(t, int64(10), *got.Tiers[0].To)
	assert.True(t, got.Tiers[0].UnitPrice.Equal(dec("100")))
}

func TestNormalizeContext(t *testing.T) {
	upper := "AAAAAAAA-0000-0000-0000-000000000001"
	seats := int64(4)
	in := Context{
		TenantID:            tenantID,
		EvaluationTimestamp: ts("2024-01-15T12:00:00Z"),
		BillingPeriodStart:  ts("2024-01-01T00:00:00Z"),
		BillingPeriodEnd:    ts("2024-01-31T23:59:59.999Z"),
		Usage:               map[string]decimal.Decimal{upper: dec("12"), "requests": dec("3")},
		Seats:               &seats,
		Metadata:            map[string]interface{}{"source": map[string]interface{}{"meter": "a"}},
	}

	out, err := NormalizeContext(in)
	require.NoError(t, err)

	id := uuid.MustParse(upper)
	assert.True(t, out.UsageFor(id).Equal(dec("12")))
	assert.Contains(t, out.Usage, "requests")
	assert.True(t, out.UsageFor(uuid.New()).IsZero())

	// the copy is independent of the input
	seats = 99
	in.Metadata["source"].(map[string]interface{})["meter"] = "b"
	assert.Equal(t, int64(4), *out.Seats)
	assert.Equal(t, "a", out.Metadata["source"].(map[string]interface{})["meter"])
}

func TestNormalizeContextDefaultsUsage(t *testing.T) {
	out, err := NormalizeContext(Context{
		TenantID:            tenantID,
		EvaluationTimestamp: ts("2024-01-15T12:00:00Z"),
		BillingPeriodStart:  ts("2024-01-01T00:00:00Z"),
		BillingPeriodEnd:    ts("2024-01-31T00:00:00Z"),
	})
	require.NoError(t, err)
	assert.NotNil(t, out.Usage)
	assert.Empty(t, out.Usage)
	assert.Nil(t, out.Seats)
}

func TestNormalizeContextRejects(t *testing.T) {
	valid := func() Context {
		return Context{
			TenantID:            tenantID,
			EvaluationTimestamp: ts("2024-01-15T12:00:00Z"),
			BillingPeriodStart:  ts("2024-01-01T00:00:00Z"),
			BillingPeriodEnd:    ts("2024-01-31T00:00:00Z"),
		}
	}

	tests := []struct {
		name   string
		mutate func(*Context)
		field  string
	}{
		{"nil tenant", func(c *Context) { c.TenantID = uuid.Nil }, "tenantId"},
		{"missing evaluation timestamp", func(c *Context) { c.EvaluationTimestamp = time.Time{} }, "evaluationTimestamp"},
		{"missing period end", func(c *Context) { c.BillingPeriodEnd = time.Time{} }, "billingPeriodEnd"},
		{"negative seats", func(c *Context) { c.Seats = i64(-1) }, "seats"},
		{"negative usage", func(c *Context) {
			c.Usage = map[string]decimal.Decimal{"k": dec("-0.1")}
		}, "usage[k]"},
		{"tiny negative usage", func(c *Context) {
			c.Usage = map[string]decimal.Decimal{"k": dec("-1e-400")}
		}, "usage[k]"},
		{"duplicate canonical usage key", func(c *Context) {
			c.Usage = map[string]decimal.Decimal{
				"aaaaaaaa-0000-0000-0000-000000000001": dec("1"),
				"AAAAAAAA-0000-0000-0000-000000000001": dec("2"),
			}
		}, "usage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := valid()
			tt.mutate(&ctx)
			_, err := NormalizeContext(ctx)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "got %v", err)
			assert.Equal(t, tt.field, errors.FieldOf(err))
		})
	}
}

func TestPublishRejectsMalformedDrafts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlanVersionDraft)
		field  string
	}{
		{"empty components", func(d *PlanVersionDraft) { d.Components = nil }, "components"},
		{"currency length", func(d *PlanVersionDraft) { d.Currency = "NAIRA" }, "currency"},
		{"nil plan id", func(d *PlanVersionDraft) { d.PlanID = uuid.Nil }, "planId"},
		{"zero version", func(d *PlanVersionDraft) { d.Version = 0 }, "version"},
		{"bad component", func(d *PlanVersionDraft) {
			d.Components = append(d.Components, flatFee("-5"))
		}, "components[1].amount"},
		{"tiny negative component", func(d *PlanVersionDraft) {
			d.Components = append(d.Components, flatFee("-1e-400"))
		}, "components[1].amount"},
		{"unserialisable metadata", func(d *PlanVersionDraft) {
			d.Metadata = map[string]interface{}{"ch": make(chan int)}
		}, "metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := baseDraft(flatFee("5000"))
			tt.mutate(&d)
			pv, err := Publish(d)
			require.Error(t, err)
			assert.Nil(t, pv)
			assert.True(t, errors.IsValidation(err), "got %v", err)
			assert.Equal(t, tt.field, errors.FieldOf(err))
		})
	}
}

func TestPublishedVersionIsIsolatedFromDraft(t *testing.T) {
	draft := baseDraft(flatFee("5000"), tiered())
	draft.Metadata = map[string]interface{}{"owner": "finance"}

	pv, err := Publish(draft)
	require.NoError(t, err)
	require.NoError(t, AssertImmutable(pv))

	// mutate everything reachable from the draft
	draft.Components[0] = flatFee("1")
	draft.Components[1].(Tiered).Tiers[0].UnitPrice = dec("0")
	*draft.Components[1].(Tiered).Tiers[0].To = 1
	draft.Metadata["owner"] = "someone else"

	// and everything reachable from the accessors
	comps := pv.Components()
	comps[0] = flatFee("2")
	*comps[1].(Tiered).Tiers[0].FlatAmount = dec("999")
	pv.Metadata()["owner"] = "mallory"

	fresh := pv.Components()
	assert.True(t, fresh[0].(FlatFee).Amount.Equal(dec("5000")))
	tier := fresh[1].(Tiered).Tiers[0]
	assert.True(t, tier.UnitPrice.Equal(dec("100")))
	assert.Equal(t, int64(10), *tier.To)
	assert.True(t, tier.Flat().Equal(dec("10")))
	assert.Equal(t, "finance", pv.Metadata()["owner"])

	assert.True(t, pv.Verify())
	require.NoError(t, AssertImmutable(pv))
}

func TestPublishedMetadataIsDeeplyFrozen(t *testing.T) {
	draft := baseDraft(flatFee("5000"))
	draft.Metadata = map[string]interface{}{
		"tags":     []string{"pro", "monthly"},
		"labels":   map[string]string{"k": "v"},
		"revision": 7,
	}

	pv, err := Publish(draft)
	require.NoError(t, err)

	draft.Metadata["tags"].([]string)[0] = "free"
	draft.Metadata["labels"].(map[string]string)["k"] = "draft"

	md := pv.Metadata()
	require.IsType(t, []interface{}{}, md["tags"])
	require.IsType(t, map[string]interface{}{}, md["labels"])
	assert.Equal(t, json.Number("7"), md["revision"])

	md["tags"].([]interface{})[0] = "mallory"
	md["labels"].(map[string]interface{})["k"] = "mallory"

	fresh := pv.Metadata()
	assert.Equal(t, []interface{}{"pro", "monthly"}, fresh["tags"])
	assert.Equal(t, map[string]interface{}{"k": "v"}, fresh["labels"])
	assert.True(t, pv.Verify())
	require.NoError(t, AssertImmutable(pv))

	same, err := Publish(baseDraftWithMetadata(map[string]interface{}{
		"tags":     []interface{}{"pro", "monthly"},
		"labels":   map[string]interface{}{"k": "v"},
		"revision": int64(7),
	}))
	require.NoError(t, err)
	assert.Equal(t, same.ContentHash(), pv.ContentHash())
}

func baseDraftWithMetadata(md map[string]interface{}) PlanVersionDraft {
	d := baseDraft(flatFee("5000"))
	d.Metadata = md
	return d
}

func TestAssertImmutableRejectsUnpublished(t *testing.T) {
	err := AssertImmutable(&PlanVersion{})
	require.Error(t, err)
	assert.True(t, errors.IsInvariantViolation(err))

	err = AssertImmutable(nil)
	assert.True(t, errors.IsInvariantViolation(err))
}

func TestContentHashIsStable(t *testing.T) {
	a, err := Publish(baseDraft(flatFee("5000"), tiered()))
	require.NoError(t, err)
	b, err := Publish(baseDraft(flatFee("5000"), tiered()))
	require.NoError(t, err)
	c, err := Publish(baseDraft(flatFee("5001"), tiered()))
	require.NoError(t, err)

	assert.Equal(t, a.ContentHash(), b.ContentHash())
	assert.NotEqual(t, a.ContentHash(), c.ContentHash())
}

func TestPlanVersionJSONCarriesDiscriminator(t *testing.T) {
	pv, err := Publish(baseDraft(flatFee("5000")))
	require.NoError(t, err)

	data, err := json.Marshal(pv)
	require.NoError(t, err)

	var decoded struct {
		ID         string                   `json:"id"`
		Components []map[string]interface{} `json:"components"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, versionID.String(), decoded.ID)
	require.Len(t, decoded.Components, 1)
	assert.Equal(t, "flat_fee", decoded.Components[0]["type"])
	assert.Equal(t, flatID.String(), decoded.Components[0]["id"])
	assert.Equal(t, "5000", decoded.Components[0]["amount"])
}

func TestIsEffectiveAt(t *testing.T) {
	d := baseDraft(flatFee("1"))
	end := ts("2024-02-01T00:00:00Z")
	d.EffectiveTo = &end
	pv, err := Publish(d)
	require.NoError(t, err)

	assert.False(t, pv.IsEffectiveAt(ts("2023-12-31T23:59:59Z")))
	assert.True(t, pv.IsEffectiveAt(ts("2024-01-01T00:00:00Z")))
	assert.True(t, pv.IsEffectiveAt(ts("2024-01-31T23:59:59Z")))
	assert.False(t, pv.IsEffectiveAt(end))
}

func TestPlanValidate(t *testing.T) {
	p := Plan{ID: planID, TenantID: tenantID, Name: "Growth", IsActive: true, CreatedAt: ts("2024-01-01T00:00:00Z")}
	assert.NoError(t, p.Validate())

	p.Name = ""
	err := p.Validate()
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "name", errors.FieldOf(err))
}
