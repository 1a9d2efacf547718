package dao

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkp/pkplib/internal/schema"
)

// EncodeValue serialises a setting value: strings raw, booleans as "1"/"0", numbers
// formatted, objects and arrays as JSON.
func EncodeValue(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case bool:
		if t {
			return "1", nil
		}

		return "0", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case uint:
		return strconv.FormatUint(uint64(t), 10), nil
	case uint64:
		return strconv.FormatUint(t, 10), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("encode setting value: %w", err)
		}

		return string(b), nil
	}
}

// DecodeValue converts a stored value back using the property type.
// Without a property the raw string is returned.
func DecodeValue(raw string, p *schema.Property) (any, error) {
	if p == nil {
		return raw, nil
	}

	return p.Coerce(raw)
}
