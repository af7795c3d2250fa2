package codec

import (
	"fmt"

	"github.com/shopspring/decimal"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

type planWire struct {
	ID          string                 `json:"id" yaml:"id"`
	TenantID    string                 `json:"tenantId" yaml:"tenantId"`
	Name        string                 `json:"name" yaml:"name"`
	Description string                 `json:"description" yaml:"description"`
	IsActive    *bool                  `json:"isActive" yaml:"isActive"`
	CreatedAt   string                 `json:"createdAt" yaml:"createdAt"`
	Metadata    map[string]interface{} `json:"metadata" yaml:"metadata"`
}

type planVersionWire struct {
	ID            string                 `json:"id" yaml:"id"`
	PlanID        string                 `json:"planId" yaml:"planId"`
	TenantID      string                 `json:"tenantId" yaml:"tenantId"`
	Version       int                    `json:"version" yaml:"version"`
	Currency      string                 `json:"currency" yaml:"currency"`
	Components    []componentWire        `json:"components" yaml:"components"`
	EffectiveFrom string                 `json:"effectiveFrom" yaml:"effectiveFrom"`
	EffectiveTo   *string                `json:"effectiveTo" yaml:"effectiveTo"`
	CreatedAt     string                 `json:"createdAt" yaml:"createdAt"`
	Metadata      map[string]interface{} `json:"metadata" yaml:"metadata"`
}

// componentWire is the union of every variant's fields, discriminated by
// Type.
type componentWire struct {
	Type        string `json:"type" yaml:"type"`
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`

	Amount        *decimal.Decimal `json:"amount" yaml:"amount"`
	UnitPrice     *decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
	UnitName      string           `json:"unitName" yaml:"unitName"`
	IncludedUnits int64            `json:"includedUnits" yaml:"includedUnits"`
	PricePerSeat  *decimal.Decimal `json:"pricePerSeat" yaml:"pricePerSeat"`
	MinimumSeats  *int64           `json:"minimumSeats" yaml:"minimumSeats"`
	MaximumSeats  *int64           `json:"maximumSeats" yaml:"maximumSeats"`
	TierMode      string           `json:"tierMode" yaml:"tierMode"`
	Tiers         []tierWire       `json:"tiers" yaml:"tiers"`
	ValidFrom     string           `json:"validFrom" yaml:"validFrom"`
	ValidTo       string           `json:"validTo" yaml:"validTo"`
}

type tierWire struct {
	From       int64            `json:"from" yaml:"from"`
	To         *int64           `json:"to" yaml:"to"`
	UnitPrice  *decimal.Decimal `json:"unitPrice" yaml:"unitPrice"`
	FlatAmount *decimal.Decimal `json:"flatAmount" yaml:"flatAmount"`
}

// DecodePlan decodes a plan header. isActive defaults to true.
func DecodePlan(data []byte, f Format) (model.Plan, error) {
	var w planWire
	if err := unmarshal(data, f, &w); err != nil {
		return model.Plan{}, err
	}

	var err error
	p := model.Plan{
		Name:        w.Name,
		Description: w.Description,
		IsActive:    w.IsActive == nil || *w.IsActive,
		Metadata:    normalizeMetadata(w.Metadata),
	}
	if p.ID, err = parseUUID(w.ID, "id"); err != nil {
		return model.Plan{}, err
	}
	if p.TenantID, err = parseUUID(w.TenantID, "tenantId"); err != nil {
		return model.Plan{}, err
	}
	if p.CreatedAt, err = parseTime(w.CreatedAt, "createdAt"); err != nil {
		return model.Plan{}, err
	}
	return p, nil
}

// DecodePlanVersion decodes a plan version document into a draft ready for
// model.Publish.
func DecodePlanVersion(data []byte, f Format) (model.PlanVersionDraft, error) {
	var w planVersionWire
	if err := unmarshal(data, f, &w); err != nil {
		return model.PlanVersionDraft{}, err
	}
	return w.toDraft()
}

// ReadPlanVersion reads and decodes a plan version file, choosing the
// format from its extension.
func ReadPlanVersion(path string) (model.PlanVersionDraft, error) {
	data, err := readFile(path)
	if err != nil {
		return model.PlanVersionDraft{}, err
	}
	d, err := DecodePlanVersion(data, FormatFor(path))
	if err != nil {
		return model.PlanVersionDraft{}, withFile(err, path)
	}
	return d, nil
}

func (w planVersionWire) toDraft() (model.PlanVersionDraft, error) {
	var err error
	d := model.PlanVersionDraft{
		Version:  w.Version,
		Currency: w.Currency,
		Metadata: normalizeMetadata(w.Metadata),
	}

	if d.ID, err = parseUUID(w.ID, "id"); err != nil {
		return d, err
	}
	if d.PlanID, err = parseUUID(w.PlanID, "planId"); err != nil {
		return d, err
	}
	if d.TenantID, err = parseUUID(w.TenantID, "tenantId"); err != nil {
		return d, err
	}
	if d.EffectiveFrom, err = parseTime(w.EffectiveFrom, "effectiveFrom"); err != nil {
		return d, err
	}
	if d.EffectiveTo, err = parseOptionalTime(w.EffectiveTo, "effectiveTo"); err != nil {
		return d, err
	}
	if d.CreatedAt, err = parseTime(w.CreatedAt, "createdAt"); err != nil {
		return d, err
	}

	for i, cw := range w.Components {
		c, err := cw.toComponent(fmt.Sprintf("components[%d]", i))
		if err != nil {
			return d, err
		}
		d.Components = append(d.Components, c)
	}
	return d, nil
}

func (w componentWire) toComponent(path string) (model.Component, error) {
	id, err := parseUUID(w.ID, path+".id")
	if err != nil {
		return nil, err
	}
	base := model.Base{ID: id, Name: w.Name, Description: w.Description}

	switch model.ComponentType(w.Type) {
	case model.ComponentFlatFee:
		amount, err := requireDecimal(w.Amount, path+".amount")
		if err != nil {
			return nil, err
		}
		return model.FlatFee{Base: base, Amount: amount}, nil

	case model.ComponentUsage:
		price, err := requireDecimal(w.UnitPrice, path+".unitPrice")
		if err != nil {
			return nil, err
		}
		return model.Usage{
			Base:          base,
			UnitPrice:     price,
			UnitName:      w.UnitName,
			IncludedUnits: w.IncludedUnits,
		}, nil

	case model.ComponentSeat:
		price, err := requireDecimal(w.PricePerSeat, path+".pricePerSeat")
		if err != nil {
			return nil, err
		}
		minimum, err := positiveSeats(w.MinimumSeats, path+".minimumSeats")
		if err != nil {
			return nil, err
		}
		return model.Seat{
			Base:         base,
			PricePerSeat: price,
			MinimumSeats: minimum,
			MaximumSeats: w.MaximumSeats,
		}, nil

	case model.ComponentTiered:
		c := model.Tiered{Base: base, TierMode: model.TierMode(w.TierMode), UnitName: w.UnitName}
		for i, tw := range w.Tiers {
			price, err := requireDecimal(tw.UnitPrice, fmt.Sprintf("%s.tiers[%d].unitPrice", path, i))
			if err != nil {
				return nil, err
			}
			c.Tiers = append(c.Tiers, model.Tier{
				From:       tw.From,
				To:         tw.To,
				UnitPrice:  price,
				FlatAmount: tw.FlatAmount,
			})
		}
		return c, nil

	case model.ComponentTimeBound:
		amount, err := requireDecimal(w.Amount, path+".amount")
		if err != nil {
			return nil, err
		}
		c := model.TimeBound{Base: base, Amount: amount}
		if c.ValidFrom, err = parseTime(w.ValidFrom, path+".validFrom"); err != nil {
			return nil, err
		}
		if c.ValidTo, err = parseTime(w.ValidTo, path+".validTo"); err != nil {
			return nil, err
		}
		return c, nil

	case "":
		return nil, errors.Validation(path+".type", "is required")

	default:
		return nil, errors.Validationf(path+".type", "unknown component type %q", w.Type)
	}
}

func withFile(err error, path string) error {
	if e, ok := err.(*errors.Error); ok {
		return e.WithContext("file", path)
	}
	return err
}
