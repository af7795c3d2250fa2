// Package hcl - Safe CTY value conversion
// CTY values are NEVER blindly passed through.
// Unknown values MUST be explicitly handled.
package hcl

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/shopspring/decimal"
	"github.com/zclconf/go-cty/cty"
)

// UnknownValueError indicates a value that should be known is unknown
type UnknownValueError struct {
	Context string
}

func (e *UnknownValueError) Error() string {
	return fmt.Sprintf("unknown value in %s: plan files must use literal values", e.Context)
}

// evalExpr evaluates a literal expression. Plan files carry no variables or
// functions, so evaluation runs without an EvalContext.
func evalExpr(expr hcl.Expression, field string) (cty.Value, error) {
	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return cty.NilVal, diagError(diags)
	}
	if !val.IsWhollyKnown() {
		return cty.NilVal, &UnknownValueError{Context: field}
	}
	return val, nil
}

// ctyDecimal converts a number, or a string holding one, to an exact decimal.
// The second result is false for a null value.
func ctyDecimal(val cty.Value) (decimal.Decimal, bool, error) {
	if val.IsNull() {
		return decimal.Zero, false, nil
	}

	switch {
	case val.Type() == cty.Number:
		// cty numbers are big floats; the shortest 'f' rendering
		// round-trips the literal without binary float loss.
		d, err := decimal.NewFromString(val.AsBigFloat().Text('f', -1))
		if err != nil {
			return decimal.Zero, false, err
		}
		return d, true, nil

	case val.Type() == cty.String:
		d, err := decimal.NewFromString(val.AsString())
		if err != nil {
			return decimal.Zero, false, err
		}
		return d, true, nil

	default:
		return decimal.Zero, false, fmt.Errorf("expected a number, got %s", val.Type().FriendlyName())
	}
}

// ctyToGo converts a known cty value into the JSON-shaped Go value used for
// metadata: string, float64, bool, []interface{} or map[string]interface{}.
func ctyToGo(val cty.Value) (interface{}, error) {
	if !val.IsKnown() {
		return nil, &UnknownValueError{Context: "metadata"}
	}
	if val.IsNull() {
		return nil, nil
	}

	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString(), nil

	case ty == cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil

	case ty == cty.Bool:
		return val.True(), nil

	case ty.IsListType() || ty.IsSetType() || ty.IsTupleType():
		out := make([]interface{}, 0, val.LengthInt())
		iter := val.ElementIterator()
		for iter.Next() {
			_, v := iter.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out = append(out, gv)
		}
		return out, nil

	case ty.IsMapType() || ty.IsObjectType():
		out := make(map[string]interface{}, val.LengthInt())
		iter := val.ElementIterator()
		for iter.Next() {
			k, v := iter.Element()
			gv, err := ctyToGo(v)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = gv
		}
		return out, nil

	default:
		return nil, fmt.Errorf("unhandled CTY type: %s", ty.FriendlyName())
	}
}
