package model

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"plan-pricing/core/determinism"
	"plan-pricing/internal/errors"
)

// Context is the billing-period snapshot a plan version is evaluated against.
// Callers build a fresh Context per evaluation; the engine never mutates it.
type Context struct {
	TenantID            uuid.UUID `json:"tenantId" validate:"required"`
	EvaluationTimestamp time.Time `json:"evaluationTimestamp" validate:"required"`
	BillingPeriodStart  time.Time `json:"billingPeriodStart" validate:"required"`
	BillingPeriodEnd    time.Time `json:"billingPeriodEnd" validate:"required"`

	// Usage maps component ids to metered quantities. Missing keys mean zero.
	Usage map[string]decimal.Decimal `json:"usage" validate:"dive,gte=0"`

	// Seats is the reported seat count; nil lets seat components fall back
	// to their minimum.
	Seats *int64 `json:"seats,omitempty" validate:"omitempty,gte=0"`

	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UsageFor returns the metered quantity for a component, zero when absent.
func (c Context) UsageFor(componentID uuid.UUID) decimal.Decimal {
	if q, ok := c.Usage[componentID.String()]; ok {
		return q
	}
	return decimal.Zero
}

// NormalizeContext validates ctx and returns a deep copy with usage
// defaulted to an empty map. Usage keys that parse as UUIDs are rewritten
// to canonical lowercase form so lookups by component id always match.
func NormalizeContext(ctx Context) (Context, error) {
	if err := checkStruct(ctx); err != nil {
		return Context{}, err
	}

	out := ctx
	out.Usage = make(map[string]decimal.Decimal, len(ctx.Usage))
	var dupErr error
	determinism.RangeMapSorted(ctx.Usage, func(key string, qty decimal.Decimal) bool {
		canonical := key
		if id, err := uuid.Parse(key); err == nil {
			canonical = id.String()
		}
		if _, dup := out.Usage[canonical]; dup {
			dupErr = errors.Validationf("usage", "duplicate entry for component %s", canonical)
			return false
		}
		out.Usage[canonical] = qty
		return true
	})
	if dupErr != nil {
		return Context{}, dupErr
	}

	if ctx.Seats != nil {
		seats := *ctx.Seats
		out.Seats = &seats
	}
	metadata, err := freezeMetadata(ctx.Metadata)
	if err != nil {
		return Context{}, err
	}
	out.Metadata = metadata

	return out, nil
}

// freezeMetadata rebuilds m from its JSON encoding so every nested value is
// a map[string]interface{}, []interface{} or an immutable scalar. Numbers
// come back as json.Number to keep their exact digits.
func freezeMetadata(m map[string]interface{}) (map[string]interface{}, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Validation("metadata", "must be JSON-serialisable").WithContext("cause", err.Error())
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var out map[string]interface{}
	if err := decoder.Decode(&out); err != nil {
		return nil, errors.Invariant("metadata did not survive a JSON round trip", err)
	}
	return out, nil
}

// cloneMetadata deep-copies the JSON-shaped values an opaque metadata map
// can hold. Other values are copied by assignment.
func cloneMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return cloneMetadata(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
