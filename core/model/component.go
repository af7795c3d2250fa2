// Package model defines the pricing data model: the closed set of pricing
// components, the evaluation context, the published plan version and the
// evaluation result, together with their validation rules.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plan-pricing/core/pricing/primitives"
)

// ComponentType discriminates the pricing component variants
type ComponentType string

const (
	ComponentFlatFee   ComponentType = "flat_fee"
	ComponentUsage     ComponentType = "usage"
	ComponentSeat      ComponentType = "seat"
	ComponentTiered    ComponentType = "tiered"
	ComponentTimeBound ComponentType = "time_bound"
)

// ComponentTypes lists every variant in declaration order.
var ComponentTypes = []ComponentType{
	ComponentFlatFee,
	ComponentUsage,
	ComponentSeat,
	ComponentTiered,
	ComponentTimeBound,
}

// TierMode selects how tiered usage is priced
type TierMode string

const (
	// TierVolume prices all usage at the single tier it falls into
	TierVolume TierMode = "volume"
	// TierGraduated prices each tier's slice of usage at that tier's rate
	TierGraduated TierMode = "graduated"
)

// Component is one priced rule within a plan version.
//
// The set of implementations is closed: FlatFee, Usage, Seat, Tiered and
// TimeBound. The unexported method keeps other packages from adding variants.
type Component interface {
	// Meta returns the identity shared by every variant
	Meta() Base
	// Type returns the variant discriminator
	Type() ComponentType

	clone() Component
}

// Base holds the fields common to every component
type Base struct {
	ID          uuid.UUID `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
}

// Meta implements Component
func (b Base) Meta() Base { return b }

// FlatFee charges a fixed amount every period
type FlatFee struct {
	Base
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
}

// Usage charges per metered unit beyond an included allowance
type Usage struct {
	Base
	UnitPrice     decimal.Decimal `json:"unitPrice" validate:"gte=0"`
	UnitName      string          `json:"unitName" validate:"required"`
	IncludedUnits int64           `json:"includedUnits" validate:"gte=0"`
}

// Seat charges per seat, clamped between a minimum and an optional maximum.
// A zero MinimumSeats is normalised to 1.
type Seat struct {
	Base
	PricePerSeat decimal.Decimal `json:"pricePerSeat" validate:"gte=0"`
	MinimumSeats int64           `json:"minimumSeats" validate:"gte=0"`
	MaximumSeats *int64          `json:"maximumSeats,omitempty" validate:"omitempty,gt=0"`
}

// Tier is one bracket of a tiered component. To is inclusive; nil means
// the bracket is open-ended.
type Tier struct {
	From       int64            `json:"from" validate:"gte=0"`
	To         *int64           `json:"to,omitempty" validate:"omitempty,gt=0"`
	UnitPrice  decimal.Decimal  `json:"unitPrice" validate:"gte=0"`
	FlatAmount *decimal.Decimal `json:"flatAmount,omitempty" validate:"omitempty,gte=0"`
}

// Flat returns the tier's flat amount, zero when unset
func (t Tier) Flat() decimal.Decimal {
	if t.FlatAmount == nil {
		return decimal.Zero
	}
	return *t.FlatAmount
}

// Tiered charges usage against an ordered list of tiers
type Tiered struct {
	Base
	TierMode TierMode `json:"tierMode" validate:"oneof=volume graduated"`
	Tiers    []Tier   `json:"tiers" validate:"min=1,dive"`
	UnitName string   `json:"unitName" validate:"required"`
}

// Bands converts the tiers to the pricing primitives' form, in listed order
func (c Tiered) Bands() []primitives.Band {
	bands := make([]primitives.Band, len(c.Tiers))
	for i, t := range c.Tiers {
		bands[i] = primitives.Band{
			From:       t.From,
			To:         cloneInt(t.To),
			UnitPrice:  t.UnitPrice,
			FlatAmount: t.Flat(),
		}
	}
	return bands
}

// TimeBound charges a fixed amount only while the evaluation instant lies
// inside [ValidFrom, ValidTo].
type TimeBound struct {
	Base
	Amount    decimal.Decimal `json:"amount" validate:"gte=0"`
	ValidFrom time.Time       `json:"validFrom" validate:"required"`
	ValidTo   time.Time       `json:"validTo" validate:"required"`
}

func (FlatFee) Type() ComponentType { return ComponentFlatFee }
func (Usage) Type() ComponentType { return ComponentUsage }
func (Seat) Type() ComponentType { return ComponentSeat }
func (Tiered) Type() ComponentType { return ComponentTiered }
func (TimeBound) Type() ComponentType { return ComponentTimeBound }

func (c FlatFee) clone() Component { return c }
func (c Usage) clone() Component { return c }

func (c Seat) clone() Component {
	c.MaximumSeats = cloneInt(c.MaximumSeats)
	return c
}

func (c Tiered) clone() Component {
	tiers := make([]Tier, len(c.Tiers))
	for i, t := range c.Tiers {
		t.To = cloneInt(t.To)
		if t.FlatAmount != nil {
			flat := *t.FlatAmount
			t.FlatAmount = &flat
		}
		tiers[i] = t
	}
	c.Tiers = tiers
	return c
}

func (c TimeBound) clone() Component { return c }

// The wire form of every component carries its "type" discriminator.

func (c FlatFee) MarshalJSON() ([]byte, error) {
	type plain FlatFee
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		plain
	}{c.Type(), plain(c)})
}

func (c Usage) MarshalJSON() ([]byte, error) {
	type plain Usage
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		plain
	}{c.Type(), plain(c)})
}

func (c Seat) MarshalJSON() ([]byte, error) {
	type plain Seat
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		plain
	}{c.Type(), plain(c)})
}

func (c Tiered) MarshalJSON() ([]byte, error) {
	type plain Tiered
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		plain
	}{c.Type(), plain(c)})
}

func (c TimeBound) MarshalJSON() ([]byte, error) {
	type plain TimeBound
	return json.Marshal(struct {
		Type ComponentType `json:"type"`
		plain
	}{c.Type(), plain(c)})
}

func cloneInt(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
