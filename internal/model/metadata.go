package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Metadata maps string keys to scalar values (string, bool or number).
type Metadata map[string]any

// Normalize returns a copy of m with every number converted to float64, so
// values compare equal after a JSON round trip. Non-scalar values are rejected.
func (m Metadata) Normalize() (Metadata, error) {
	out := make(Metadata, len(m))
	for k, v := range m {
		n, err := NormalizeValue(v)
		if err != nil {
			return nil, goerr.Wrap(err, "normalize metadata", goerr.V("key", k))
		}
		out[k] = n
	}
	return out, nil
}

// Matches reports whether every key in filter is present in m with an equal value.
// Both sides are expected to be normalized.
func (m Metadata) Matches(filter Metadata) bool {
	for k, want := range filter {
		got, ok := m[k]
		if !ok || got != want {
			return false
		}
	}
	return true
}

// NormalizeValue converts a scalar to its canonical form.
func NormalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case string, bool:
		return x, nil
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	}
	return nil, goerr.Wrap(ErrInvalidRecord, "metadata value must be a scalar", goerr.V("value", v))
}
