// Package dataobject provides the property bag every content entity is built on.
//
// Properties are either plain values or localised values. A localised value is a
// map from locale to value; it is read with GetLocalized, which falls back to other
// locales when the requested one is missing.
package dataobject

import (
	"encoding/json"
	"maps"
	"slices"
	"strconv"
)

// IDKey is the property holding the object id.
const IDKey = "id"

// Localized is the value of a multilingual property.
type Localized = map[string]any

// DataObject is a loosely typed set of properties.
type DataObject struct {
	data map[string]any
}

// New creates an empty DataObject.
func New() *DataObject {
	return &DataObject{data: map[string]any{}}
}

// FromMap creates a DataObject holding a copy of props.
func FromMap(props map[string]any) *DataObject {
	d := New()
	d.SetAll(props)

	return d
}

// ID returns the object id or 0 when unset.
func (d *DataObject) ID() uint64 {
	id, _ := ToUint64(d.data[IDKey])
	return id
}

// SetID sets the object id.
func (d *DataObject) SetID(id uint64) {
	d.data[IDKey] = id
}

// Get returns a property. Localised properties are returned as Localized.
func (d *DataObject) Get(key string) any {
	return d.data[key]
}

// GetString returns a non-localised property as string.
func (d *DataObject) GetString(key string) string {
	switch v := d.data[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// GetInt returns a numeric property as int64, 0 when unset or not numeric.
func (d *DataObject) GetInt(key string) int64 {
	v, _ := ToInt64(d.data[key])
	return v
}

// GetBool returns a boolean property.
func (d *DataObject) GetBool(key string) bool {
	b, _ := d.data[key].(bool)
	return b
}

// GetLocalized returns the value of a localised property for locale. When that locale
// has no value the fallback locales are tried in order, then any remaining locale in
// sorted order. Empty strings count as missing.
func (d *DataObject) GetLocalized(key, locale string, fallbacks ...string) any {
	values, ok := d.data[key].(Localized)
	if !ok {
		return nil
	}

	for _, l := range append([]string{locale}, fallbacks...) {
		if v, ok := values[l]; ok && !IsEmpty(v) {
			return v
		}
	}

	for _, l := range slices.Sorted(maps.Keys(values)) {
		if v := values[l]; !IsEmpty(v) {
			return v
		}
	}

	return nil
}

// GetLocalizedString is GetLocalized for string properties.
func (d *DataObject) GetLocalizedString(key, locale string, fallbacks ...string) string {
	s, _ := d.GetLocalized(key, locale, fallbacks...).(string)
	return s
}

// Set sets a property. A nil value removes it.
func (d *DataObject) Set(key string, value any) {
	if value == nil {
		delete(d.data, key)
		return
	}

	d.data[key] = value
}

// SetLocalized sets one locale of a localised property. A nil value keeps the locale
// key so that a DAO update deletes the stored rows of that locale.
func (d *DataObject) SetLocalized(key string, value any, locale string) {
	values, ok := d.data[key].(Localized)
	if !ok {
		values = Localized{}
		d.data[key] = values
	}

	values[locale] = value
}

// Unset removes a property.
func (d *DataObject) Unset(key string) {
	delete(d.data, key)
}

// Has reports whether a property is set.
func (d *DataObject) Has(key string) bool {
	_, ok := d.data[key]
	return ok
}

// Keys returns the set property names in sorted order.
func (d *DataObject) Keys() []string {
	return slices.Sorted(maps.Keys(d.data))
}

// All returns a shallow copy of all properties.
func (d *DataObject) All() map[string]any {
	return maps.Clone(d.data)
}

// SetAll sets every property of props, keeping properties not mentioned.
func (d *DataObject) SetAll(props map[string]any) {
	for k, v := range props {
		d.Set(k, v)
	}
}

// MarshalJSON implements json.Marshaler.
func (d *DataObject) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.data)
}

// UnmarshalJSON implements json.Unmarshaler. Numbers decode as float64; callers coerce
// them through the entity schema.
func (d *DataObject) UnmarshalJSON(b []byte) error {
	data := map[string]any{}
	if err := json.Unmarshal(b, &data); err != nil {
		return err //nolint:wrapcheck
	}

	d.data = data

	return nil
}

// IsEmpty reports whether v counts as no value for sparse storage.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// ToInt64 converts the numeric shapes produced by gorm, json and the schema coercion.
func ToInt64(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint:
		return int64(t), true //nolint:gosec
	case uint32:
		return int64(t), true
	case uint64:
		return int64(t), true //nolint:gosec
	case float64:
		return int64(t), true
	case json.Number:
		i, err := t.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(t, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

// ToUint64 is ToInt64 for ids. Negative values are rejected.
func ToUint64(v any) (uint64, bool) {
	i, ok := ToInt64(v)
	if !ok || i < 0 {
		return 0, false
	}

	return uint64(i), true
}
