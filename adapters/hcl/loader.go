// Package hcl provides HCL plan definition parsing.
//
// A plan file declares optional plan headers and any number of plan
// versions:
//
//	plan "Growth" {
//	  id        = "22222222-2222-2222-2222-222222222222"
//	  tenant_id = "11111111-1111-1111-1111-111111111111"
//	  active    = true
//	  created_at = "2024-01-01T00:00:00Z"
//	}
//
//	plan_version {
//	  id             = "33333333-3333-3333-3333-333333333333"
//	  plan_id        = "22222222-2222-2222-2222-222222222222"
//	  tenant_id      = "11111111-1111-1111-1111-111111111111"
//	  version        = 1
//	  currency       = "NGN"
//	  effective_from = "2024-01-01T00:00:00Z"
//	  created_at     = "2024-01-01T00:00:00Z"
//
//	  component "usage" {
//	    id             = "55555555-5555-5555-5555-555555555555"
//	    name           = "API Calls"
//	    unit_price     = 0.01
//	    unit_name      = "call"
//	    included_units = 1000
//	  }
//
//	  component "tiered" {
//	    id        = "77777777-7777-7777-7777-777777777777"
//	    name      = "Storage"
//	    tier_mode = "volume"
//	    unit_name = "GB"
//	    tier {
//	      from       = 0
//	      to         = 10
//	      unit_price = 100
//	    }
//	  }
//	}
//
// The loader only decodes. Shape rules are enforced by model.Publish.
package hcl

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/shopspring/decimal"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

// Extension is the file extension LoadDir picks up
const Extension = ".hcl"

// Document is the decoded content of one or more plan files
type Document struct {
	Plans    []model.Plan
	Versions []model.PlanVersionDraft
}

type fileSchema struct {
	Plans    []planBlock    `hcl:"plan,block"`
	Versions []versionBlock `hcl:"plan_version,block"`
}

type planBlock struct {
	Name        string         `hcl:"name,label"`
	ID          string         `hcl:"id"`
	TenantID    string         `hcl:"tenant_id"`
	Description *string        `hcl:"description,optional"`
	Active      *bool          `hcl:"active,optional"`
	CreatedAt   string         `hcl:"created_at"`
	Metadata    hcl.Expression `hcl:"metadata,optional"`
}

type versionBlock struct {
	ID            string           `hcl:"id"`
	PlanID        string           `hcl:"plan_id"`
	TenantID      string           `hcl:"tenant_id"`
	Version       int              `hcl:"version"`
	Currency      string           `hcl:"currency"`
	EffectiveFrom string           `hcl:"effective_from"`
	EffectiveTo   *string          `hcl:"effective_to,optional"`
	CreatedAt     string           `hcl:"created_at"`
	Metadata      hcl.Expression   `hcl:"metadata,optional"`
	Components    []componentBlock `hcl:"component,block"`
}

// componentBlock carries the union of every variant's attributes. Which
// ones apply is decided by the label.
type componentBlock struct {
	Type        string  `hcl:"type,label"`
	ID          string  `hcl:"id"`
	Name        string  `hcl:"name"`
	Description *string `hcl:"description,optional"`

	Amount        hcl.Expression `hcl:"amount,optional"`
	UnitPrice     hcl.Expression `hcl:"unit_price,optional"`
	UnitName      *string        `hcl:"unit_name,optional"`
	IncludedUnits *int64         `hcl:"included_units,optional"`
	PricePerSeat  hcl.Expression `hcl:"price_per_seat,optional"`
	MinimumSeats  *int64         `hcl:"minimum_seats,optional"`
	MaximumSeats  *int64         `hcl:"maximum_seats,optional"`
	TierMode      *string        `hcl:"tier_mode,optional"`
	ValidFrom     *string        `hcl:"valid_from,optional"`
	ValidTo       *string        `hcl:"valid_to,optional"`
	Tiers         []tierBlock    `hcl:"tier,block"`
}

type tierBlock struct {
	From       int64          `hcl:"from"`
	To         *int64         `hcl:"to,optional"`
	UnitPrice  hcl.Expression `hcl:"unit_price"`
	FlatAmount hcl.Expression `hcl:"flat_amount,optional"`
}

// Loader parses HCL plan files
type Loader struct {
	parser *hclparse.Parser
}

// NewLoader creates a new HCL plan loader
func NewLoader() *Loader {
	return &Loader{
		parser: hclparse.NewParser(),
	}
}

// ParseFile reads and decodes a single plan file
func (l *Loader) ParseFile(path string) (*Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Parsing("failed to read plan file", err).WithContext("file", path)
	}
	return l.Parse(src, path)
}

// Parse decodes plan file source. filename is used in diagnostics and
// must be unique per Loader: the parser caches files by name.
func (l *Loader) Parse(src []byte, filename string) (*Document, error) {
	file, diags := l.parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diagError(diags).WithContext("file", filename)
	}

	var schema fileSchema
	if diags := gohcl.DecodeBody(file.Body, nil, &schema); diags.HasErrors() {
		return nil, diagError(diags).WithContext("file", filename)
	}

	doc := &Document{}
	for i, pb := range schema.Plans {
		p, err := pb.toModel(fmt.Sprintf("plan[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Plans = append(doc.Plans, p)
	}
	for i, vb := range schema.Versions {
		d, err := vb.toModel(fmt.Sprintf("plan_version[%d]", i))
		if err != nil {
			return nil, err
		}
		doc.Versions = append(doc.Versions, d)
	}
	return doc, nil
}

// LoadDir decodes every plan file directly inside dir, in file name order
func (l *Loader) LoadDir(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Parsing("failed to read plan directory", err).WithContext("dir", dir)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), Extension) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	doc := &Document{}
	for _, f := range files {
		part, err := l.ParseFile(f)
		if err != nil {
			return nil, err
		}
		doc.Plans = append(doc.Plans, part.Plans...)
		doc.Versions = append(doc.Versions, part.Versions...)
	}
	return doc, nil
}

func (b planBlock) toModel(path string) (model.Plan, error) {
	var err error
	p := model.Plan{Name: b.Name, IsActive: true}

	if p.ID, err = parseUUID(b.ID, path+".id"); err != nil {
		return model.Plan{}, err
	}
	if p.TenantID, err = parseUUID(b.TenantID, path+".tenant_id"); err != nil {
		return model.Plan{}, err
	}
	if p.CreatedAt, err = parseTime(b.CreatedAt, path+".created_at"); err != nil {
		return model.Plan{}, err
	}
	if b.Description != nil {
		p.Description = *b.Description
	}
	if b.Active != nil {
		p.IsActive = *b.Active
	}
	if p.Metadata, err = decodeMetadata(b.Metadata, path+".metadata"); err != nil {
		return model.Plan{}, err
	}
	return p, nil
}

func (b versionBlock) toModel(path string) (model.PlanVersionDraft, error) {
	var err error
	d := model.PlanVersionDraft{
		Version:  b.Version,
		Currency: b.Currency,
	}

	if d.ID, err = parseUUID(b.ID, path+".id"); err != nil {
		return d, err
	}
	if d.PlanID, err = parseUUID(b.PlanID, path+".plan_id"); err != nil {
		return d, err
	}
	if d.TenantID, err = parseUUID(b.TenantID, path+".tenant_id"); err != nil {
		return d, err
	}
	if d.EffectiveFrom, err = parseTime(b.EffectiveFrom, path+".effective_from"); err != nil {
		return d, err
	}
	if b.EffectiveTo != nil {
		to, err := parseTime(*b.EffectiveTo, path+".effective_to")
		if err != nil {
			return d, err
		}
		d.EffectiveTo = &to
	}
	if d.CreatedAt, err = parseTime(b.CreatedAt, path+".created_at"); err != nil {
		return d, err
	}
	if d.Metadata, err = decodeMetadata(b.Metadata, path+".metadata"); err != nil {
		return d, err
	}

	for i, cb := range b.Components {
		c, err := cb.toModel(fmt.Sprintf("%s.component[%d]", path, i))
		if err != nil {
			return d, err
		}
		d.Components = append(d.Components, c)
	}
	return d, nil
}

func (b componentBlock) toModel(path string) (model.Component, error) {
	id, err := parseUUID(b.ID, path+".id")
	if err != nil {
		return nil, err
	}
	base := model.Base{ID: id, Name: b.Name, Description: deref(b.Description)}

	switch model.ComponentType(b.Type) {
	case model.ComponentFlatFee:
		amount, err := money(b.Amount, path+".amount")
		if err != nil {
			return nil, err
		}
		return model.FlatFee{Base: base, Amount: amount}, nil

	case model.ComponentUsage:
		price, err := money(b.UnitPrice, path+".unit_price")
		if err != nil {
			return nil, err
		}
		c := model.Usage{Base: base, UnitPrice: price, UnitName: deref(b.UnitName)}
		if b.IncludedUnits != nil {
			c.IncludedUnits = *b.IncludedUnits
		}
		return c, nil

	case model.ComponentSeat:
		price, err := money(b.PricePerSeat, path+".price_per_seat")
		if err != nil {
			return nil, err
		}
		c := model.Seat{Base: base, PricePerSeat: price, MaximumSeats: b.MaximumSeats}
		if b.MinimumSeats != nil {
			if *b.MinimumSeats == 0 {
				return nil, errors.Validation(path+".minimum_seats", "must be greater than 0")
			}
			c.MinimumSeats = *b.MinimumSeats
		}
		return c, nil

	case model.ComponentTiered:
		c := model.Tiered{
			Base:     base,
			TierMode: model.TierMode(deref(b.TierMode)),
			UnitName: deref(b.UnitName),
		}
		for i, tb := range b.Tiers {
			tierPath := fmt.Sprintf("%s.tier[%d]", path, i)
			price, err := money(tb.UnitPrice, tierPath+".unit_price")
			if err != nil {
				return nil, err
			}
			flat, present, err := optionalMoney(tb.FlatAmount, tierPath+".flat_amount")
			if err != nil {
				return nil, err
			}
			tier := model.Tier{From: tb.From, To: tb.To, UnitPrice: price}
			if present {
				tier.FlatAmount = &flat
			}
			c.Tiers = append(c.Tiers, tier)
		}
		return c, nil

	case model.ComponentTimeBound:
		amount, err := money(b.Amount, path+".amount")
		if err != nil {
			return nil, err
		}
		c := model.TimeBound{Base: base, Amount: amount}
		if c.ValidFrom, err = parseTime(deref(b.ValidFrom), path+".valid_from"); err != nil {
			return nil, err
		}
		if c.ValidTo, err = parseTime(deref(b.ValidTo), path+".valid_to"); err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, errors.Validationf(path+".type", "unknown component type %q", b.Type)
	}
}

// money decodes a required decimal attribute
func money(expr hcl.Expression, field string) (decimal.Decimal, error) {
	d, present, err := optionalMoney(expr, field)
	if err != nil {
		return decimal.Zero, err
	}
	if !present {
		return decimal.Zero, errors.Validation(field, "is required")
	}
	return d, nil
}

func optionalMoney(expr hcl.Expression, field string) (decimal.Decimal, bool, error) {
	if expr == nil {
		return decimal.Zero, false, nil
	}
	val, err := evalExpr(expr, field)
	if err != nil {
		return decimal.Zero, false, errors.Wrap(errors.TypeParsing, "failed to evaluate "+field, err)
	}
	d, present, err := ctyDecimal(val)
	if err != nil {
		return decimal.Zero, false, errors.Validation(field, "must be a decimal number").WithContext("cause", err.Error())
	}
	return d, present, nil
}

func decodeMetadata(expr hcl.Expression, field string) (map[string]interface{}, error) {
	if expr == nil {
		return nil, nil
	}
	val, err := evalExpr(expr, field)
	if err != nil {
		return nil, errors.Wrap(errors.TypeParsing, "failed to evaluate "+field, err)
	}
	if val.IsNull() {
		return nil, nil
	}
	gv, err := ctyToGo(val)
	if err != nil {
		return nil, errors.Validation(field, err.Error())
	}
	m, ok := gv.(map[string]interface{})
	if !ok {
		return nil, errors.Validation(field, "must be an object")
	}
	return m, nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Validationf(field, "invalid UUID %q", s)
	}
	return id, nil
}

func parseTime(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.Validation(field, "is required")
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, errors.Validationf(field, "invalid RFC 3339 timestamp %q", s)
	}
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, errors.Validationf(field, "timestamp %q must be in UTC (Z suffix)", s)
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// diagError converts HCL diagnostics into a parsing error carrying the
// first error's position.
func diagError(diags hcl.Diagnostics) *errors.Error {
	var first *hcl.Diagnostic
	for _, d := range diags {
		if d.Severity == hcl.DiagError {
			first = d
			break
		}
	}
	if first == nil {
		return errors.Parsing("invalid plan file", diags)
	}

	err := errors.Parsing(first.Summary+": "+first.Detail, diags)
	if first.Subject != nil {
		err.WithContext("line", first.Subject.Start.Line).
			WithContext("column", first.Subject.Start.Column)
	}
	return err
}
