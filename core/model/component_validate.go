package model

import (
	"fmt"
	"reflect"

	"plan-pricing/internal/errors"
)

// NormalizeComponent validates c against its variant's shape and returns a
// deep copy with defaults applied. The input is never modified.
//
// maximumSeats below minimumSeats is accepted; the seat clamp then bills
// maximumSeats.
func NormalizeComponent(c Component) (Component, error) {
	if c == nil || isNilPointer(c) {
		return nil, errors.Validation("", "component is required")
	}

	var out Component
	switch v := c.clone().(type) {
	case FlatFee, Usage, Tiered, TimeBound:
		out = v
	case Seat:
		if v.MinimumSeats == 0 {
			v.MinimumSeats = 1
		}
		out = v
	default:
		return nil, errors.Invariant(fmt.Sprintf("unknown component variant %T", c), nil)
	}

	if err := checkStruct(out); err != nil {
		return nil, err
	}
	return out, nil
}

// normalizeComponents validates every component of a plan version, rooting
// field paths at "components[i]".
func normalizeComponents(in []Component) ([]Component, error) {
	out := make([]Component, len(in))
	for i, c := range in {
		n, err := NormalizeComponent(c)
		if err != nil {
			return nil, prefixField(err, fmt.Sprintf("components[%d]", i))
		}
		out[i] = n
	}
	return out, nil
}

func isNilPointer(c Component) bool {
	rv := reflect.ValueOf(c)
	return rv.Kind() == reflect.Ptr && rv.IsNil()
}
