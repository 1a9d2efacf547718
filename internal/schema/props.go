package schema

import (
	"github.com/pkp/pkplib/internal/dataobject"
)

// Sanitize returns the props that are known to the schema and writable through the api.
func (sc *Schema) Sanitize(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))

	for name, value := range props {
		p := sc.Properties[name]
		if p == nil || p.ReadOnly || p.WriteDisabledInAPI {
			continue
		}

		out[name] = value
	}

	return out
}

// AddMissingMultilingualValues gives every multilingual prop in props an empty value
// for each locale it is missing.
func (sc *Schema) AddMissingMultilingualValues(props map[string]any, locales []string) {
	for _, name := range sc.MultilingualProps() {
		values, ok := props[name].(map[string]any)
		if !ok {
			continue
		}

		for _, locale := range locales {
			if _, ok = values[locale]; !ok {
				values[locale] = ""
			}
		}
	}
}

// SetDefaults sets the default of every prop missing from obj. Multilingual
// defaults are set for each of locales.
func (sc *Schema) SetDefaults(obj *dataobject.DataObject, locales []string) {
	for _, name := range sc.PropertyNames() {
		p := sc.Properties[name]
		if p.Default == nil || obj.Has(name) {
			continue
		}

		value, err := p.Coerce(p.Default)
		if err != nil {
			continue
		}

		if !p.Multilingual {
			obj.Set(name, value)
			continue
		}

		for _, locale := range locales {
			obj.SetLocalized(name, value, locale)
		}
	}
}

// Summary returns the api summary props of obj.
func (sc *Schema) Summary(obj *dataobject.DataObject) map[string]any {
	out := map[string]any{}

	for _, name := range sc.SummaryProps() {
		if obj.Has(name) {
			out[name] = obj.Get(name)
		}
	}

	return out
}
