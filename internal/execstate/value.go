// SPDX-License-Identifier: AGPL-3.0-or-later

package execstate

import (
	"fmt"
	"sort"

	"github.com/keyfold-org/keyfold/internal/hashing"
)

// UnsupportedValueTypeError rejects a value that has no normalizable
// representation before it reaches hashing.
type UnsupportedValueTypeError struct {
	Property string
	Value    any
}

func (e *UnsupportedValueTypeError) Error() string {
	return fmt.Sprintf("property %q: unsupported value type %T", e.Property, e.Value)
}

// HashValue produces a deterministic hash for a scalar input value.
// Supported shapes are what YAML decoding yields: nil, bool, string,
// integers, floats, []any and map[string]any, recursively. Each value
// is folded with a type tag so e.g. the string "1" and the integer 1
// never collide.
func HashValue(property string, value any) (hashing.HashCode, error) {
	h := hashing.NewHasher()
	if err := putValue(h, property, value); err != nil {
		return hashing.HashCode{}, err
	}
	return h.Hash(), nil
}

func putValue(h *hashing.Hasher, property string, value any) error {
	switch v := value.(type) {
	case nil:
		h.PutString("NULL")
	case bool:
		h.PutString("BOOL").PutBool(v)
	case string:
		h.PutString("STRING").PutString(v)
	case int:
		h.PutString("INT").PutInt(int64(v))
	case int64:
		h.PutString("INT").PutInt(v)
	case uint64:
		h.PutString("INT").PutInt(int64(v))
	case float64:
		h.PutString("FLOAT").PutString(fmt.Sprintf("%g", v))
	case []any:
		h.PutString("LIST").PutInt(int64(len(v)))
		for _, item := range v {
			if err := putValue(h, property, item); err != nil {
				return err
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		h.PutString("MAP").PutInt(int64(len(v)))
		for _, k := range keys {
			h.PutString(k)
			if err := putValue(h, property, v[k]); err != nil {
				return err
			}
		}
	default:
		return &UnsupportedValueTypeError{Property: property, Value: value}
	}
	return nil
}
