package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkp/pkplib/internal/dataobject"
)

// Coerce converts value to the Go representation of the property type:
// int64 for integers, float64 for numbers, bool, string, map[string]any for objects
// and []any for arrays. Strings holding JSON are decoded for objects and arrays.
// Empty strings coerce to nil for every non-string type.
func (p *Property) Coerce(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch p.Type {
	case TypeString:
		return coerceString(value), nil
	case TypeInteger:
		return coerceInteger(value)
	case TypeNumber:
		return coerceNumber(value)
	case TypeBoolean:
		return coerceBoolean(value), nil
	case TypeArray:
		return p.coerceArray(value)
	case TypeObject:
		return p.coerceObject(value)
	default:
		return value, nil
	}
}

// CoerceProp coerces the value of a property, handling multilingual values.
// Unknown properties pass through unchanged.
func (sc *Schema) CoerceProp(name string, value any) (any, error) {
	p := sc.Properties[name]
	if p == nil || value == nil {
		return value, nil
	}

	if !p.Multilingual {
		return p.Coerce(value)
	}

	values, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: multilingual value must be keyed by locale", name)
	}

	out := make(map[string]any, len(values))

	for locale, v := range values {
		c, err := p.Coerce(v)
		if err != nil {
			return nil, fmt.Errorf("%s[%s]: %w", name, locale, err)
		}

		out[locale] = c
	}

	return out, nil
}

// CoerceAll coerces every known property of props.
func (sc *Schema) CoerceAll(props map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(props))

	for name, value := range props {
		c, err := sc.CoerceProp(name, value)
		if err != nil {
			return nil, err
		}

		out[name] = c
	}

	return out, nil
}

func coerceString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "1"
		}

		return "0"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case map[string]any, []any:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

func coerceInteger(value any) (any, error) {
	if s, ok := value.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}

		value = s
	}

	if b, ok := value.(bool); ok {
		if b {
			return int64(1), nil
		}

		return int64(0), nil
	}

	i, ok := dataobject.ToInt64(value)
	if !ok {
		return nil, fmt.Errorf("can not convert %v to integer", value)
	}

	return i, nil
}

func coerceNumber(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("can not convert %q to number", v)
		}

		return f, nil
	default:
		i, ok := dataobject.ToInt64(value)
		if !ok {
			return nil, fmt.Errorf("can not convert %v to number", value)
		}

		return float64(i), nil
	}
}

func coerceBoolean(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "off", "no":
			return false
		default:
			return true
		}
	default:
		i, ok := dataobject.ToInt64(value)
		return ok && i != 0
	}
}

func (p *Property) coerceArray(value any) (any, error) {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}

		var decoded []any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("can not decode array: %w", err)
		}

		value = decoded
	}

	var items []any

	switch v := value.(type) {
	case []any:
		items = v
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	default:
		return nil, fmt.Errorf("can not convert %T to array", value)
	}

	out := make([]any, 0, len(items))

	for _, item := range items {
		if p.Items != nil {
			c, err := p.Items.Coerce(item)
			if err != nil {
				return nil, err
			}

			item = c
		}

		out = append(out, item)
	}

	return out, nil
}

func (p *Property) coerceObject(value any) (any, error) {
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}

		var decoded map[string]any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, fmt.Errorf("can not decode object: %w", err)
		}

		value = decoded
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("can not convert %T to object", value)
	}

	out := make(map[string]any, len(obj))

	for k, v := range obj {
		if sub := p.Properties[k]; sub != nil {
			c, err := sub.Coerce(v)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}

			v = c
		}

		out[k] = v
	}

	return out, nil
}
