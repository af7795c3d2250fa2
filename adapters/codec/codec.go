// Package codec decodes plan versions and pricing contexts from JSON or
// YAML documents and encodes pricing results.
//
// Decoding checks only what the wire format can get wrong (syntax, UUIDs,
// UTC timestamps, missing prices, unknown component types). Shape rules
// belong to the model.
package codec

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"plan-pricing/internal/errors"
)

// Format is a document encoding
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks a format from a file extension, defaulting to JSON
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// unmarshal decodes data into v. JSON numbers are kept exact through
// decimal.Decimal's own unmarshaler; YAML scalars reach decimals through
// encoding.TextUnmarshaler.
func unmarshal(data []byte, f Format, v interface{}) error {
	var err error
	switch f {
	case FormatYAML:
		err = yaml.Unmarshal(data, v)
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(v)
	default:
		return errors.Newf(errors.TypeParsing, "unsupported format %q", f)
	}
	if err != nil {
		return errors.Parsing("failed to decode "+string(f)+" document", err)
	}
	return nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Parsing("failed to read file", err).WithContext("file", path)
	}
	return data, nil
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, errors.Validation(field, "is required")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, errors.Validationf(field, "invalid UUID %q", s)
	}
	return id, nil
}

// parseTime accepts UTC RFC 3339 timestamps (Z suffix)
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

func parseOptionalTime(s *string, field string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := parseTime(*s, field)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func requireDecimal(d *decimal.Decimal, field string) (decimal.Decimal, error) {
	if d == nil {
		return decimal.Zero, errors.Validation(field, "is required")
	}
	return *d, nil
}

// positiveSeats rejects an explicit minimumSeats of zero. Leaving the field
// out lets the model default it to one.
func positiveSeats(n *int64, field string) (int64, error) {
	if n == nil {
		return 0, nil
	}
	if *n == 0 {
		return 0, errors.Validation(field, "must be greater than 0")
	}
	return *n, nil
}

// normalizeNumbers turns json.Number values left by UseNumber into int64
// or float64 so metadata holds plain Go numbers.
func normalizeNumbers(v interface{}) interface{} {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case map[string]interface{}:
		for k, e := range t {
			t[k] = normalizeNumbers(e)
		}
		return t
	case []interface{}:
		for i, e := range t {
			t[i] = normalizeNumbers(e)
		}
		return t
	default:
		return v
	}
}

func normalizeMetadata(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	return normalizeNumbers(m).(map[string]interface{})
}
