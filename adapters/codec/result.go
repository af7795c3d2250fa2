package codec

import (
	"encoding/json"
	"io"

	"plan-pricing/core/model"
	"plan-pricing/internal/errors"
)

// EncodeResult writes r as indented JSON. Money fields are rendered as
// decimal strings so no precision is lost on the way to a ledger.
func EncodeResult(w io.Writer, r *model.Result) error {
	if r == nil {
		return errors.New(errors.TypeInvariant, "cannot encode a nil result")
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return errors.Wrap(errors.TypeInvariant, "failed to encode result", err)
	}
	return nil
}

// DecodeResult reads a result previously written by EncodeResult.
func DecodeResult(data []byte) (*model.Result, error) {
	var r model.Result
	if err := unmarshal(data, FormatJSON, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
