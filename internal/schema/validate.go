package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/validation"
)

const (
	draft        = "https://json-schema.org/draft/2020-12/schema"
	msgRequired  = "This field is required."
	msgRuleBreak = "The value failed the %q rule."
	msgLocale    = "The locale %q is not supported."
)

// ValidateOptions controls Schema.Validate.
type ValidateOptions struct {
	// Locales allowed as keys of multilingual props.
	Locales []string
	// PrimaryLocale must have a value for required multilingual props.
	PrimaryLocale string
	// Partial skips required checks, as when editing an existing object.
	Partial bool
}

// Errors maps a property to its validation messages. Messages about one locale of a
// multilingual property are keyed "name.locale".
type Errors map[string][]string

// Add appends a message for field.
func (e Errors) Add(field, msg string) {
	e[field] = append(e[field], msg)
}

// Fields returns the failing fields in sorted order.
func (e Errors) Fields() []string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}

	sort.Strings(fields)

	return fields
}

func (e Errors) Error() string {
	parts := make([]string, 0, len(e))
	for _, f := range e.Fields() {
		parts = append(parts, f+": "+strings.Join(e[f], " "))
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks props against the schema. It returns nil when props are valid.
func (sc *Schema) Validate(props map[string]any, opts ValidateOptions) (Errors, error) {
	compiled, err := sc.compile()
	if err != nil {
		return nil, err
	}

	errs := Errors{}

	instance, err := toInstance(props)
	if err != nil {
		return nil, err
	}

	var ve *jsonschema.ValidationError
	if err = compiled.Validate(instance); err != nil {
		if !errors.As(err, &ve) {
			return nil, fmt.Errorf("validate %s: %w", sc.Name, err)
		}

		collect(ve, errs, message.NewPrinter(language.English))
	}

	sc.validateLocales(props, opts.Locales, errs)
	sc.validateRules(props, errs)

	if !opts.Partial {
		sc.validateRequired(props, opts.PrimaryLocale, errs)
	}

	if len(errs) == 0 {
		return nil, nil
	}

	return errs, nil
}

func (sc *Schema) validateLocales(props map[string]any, locales []string, errs Errors) {
	if len(locales) == 0 {
		return
	}

	for _, name := range sc.MultilingualProps() {
		values, _ := props[name].(map[string]any)

		keys := make([]string, 0, len(values))
		for locale := range values {
			keys = append(keys, locale)
		}

		sort.Strings(keys)

		for _, locale := range keys {
			if !slices.Contains(locales, locale) {
				errs.Add(name, fmt.Sprintf(msgLocale, locale))
			}
		}
	}
}

func (sc *Schema) validateRules(props map[string]any, errs Errors) {
	for name, value := range props {
		p := sc.Properties[name]
		if p == nil || p.Validation == "" || value == nil {
			continue
		}

		if !p.Multilingual {
			if err := validation.Var(value, p.Validation); err != nil {
				errs.Add(name, fmt.Sprintf(msgRuleBreak, p.Validation))
			}

			continue
		}

		values, ok := value.(map[string]any)
		if !ok {
			continue
		}

		for locale := range validation.ValidateLocalized(values, p.Validation) {
			errs.Add(name+"."+locale, fmt.Sprintf(msgRuleBreak, p.Validation))
		}
	}
}

func (sc *Schema) validateRequired(props map[string]any, primaryLocale string, errs Errors) {
	for _, name := range sc.Required {
		p := sc.Properties[name]
		value := props[name]

		if p != nil && p.Multilingual && primaryLocale != "" {
			values, _ := value.(map[string]any)
			if dataobject.IsEmpty(values[primaryLocale]) {
				errs.Add(name+"."+primaryLocale, msgRequired)
			}

			continue
		}

		if dataobject.IsEmpty(value) {
			errs.Add(name, msgRequired)
		}
	}
}

func collect(ve *jsonschema.ValidationError, errs Errors, p *message.Printer) {
	if len(ve.Causes) == 0 {
		errs.Add(strings.Join(ve.InstanceLocation, "."), ve.ErrorKind.LocalizedString(p))
		return
	}

	for _, c := range ve.Causes {
		collect(c, errs, p)
	}
}

func toInstance(props map[string]any) (any, error) {
	b, err := json.Marshal(props)
	if err != nil {
		return nil, fmt.Errorf("encode props: %w", err)
	}

	v, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode props: %w", err)
	}

	return v, nil
}

func (sc *Schema) compile() (*jsonschema.Schema, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.compiled != nil {
		return sc.compiled, nil
	}

	b, err := json.Marshal(sc.document())
	if err != nil {
		return nil, fmt.Errorf("encode schema %s: %w", sc.Name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", sc.Name, err)
	}

	url := sc.Name + ".json"

	c := jsonschema.NewCompiler()
	c.AssertFormat()

	if err = c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("add schema resource %s: %w", sc.Name, err)
	}

	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", sc.Name, err)
	}

	sc.compiled = compiled

	return compiled, nil
}

func (sc *Schema) document() map[string]any {
	props := make(map[string]any, len(sc.Properties))

	for name, p := range sc.Properties {
		d := p.document()

		if p.Multilingual {
			d = map[string]any{
				"type":                 []string{TypeObject, "null"},
				"additionalProperties": d,
			}
		}

		props[name] = d
	}

	return map[string]any{
		"$schema":    draft,
		"type":       TypeObject,
		"properties": props,
	}
}

// document renders the property as a nullable json schema.
func (p *Property) document() map[string]any {
	d := map[string]any{}

	if p.Type != "" {
		d["type"] = []string{p.Type, "null"}
	}

	if p.Format != "" {
		d["format"] = p.Format
	}

	if len(p.Enum) > 0 {
		d["enum"] = append(slices.Clone(p.Enum), nil)
	}

	if p.Minimum != nil {
		d["minimum"] = *p.Minimum
	}

	if p.MaxLength != nil {
		d["maxLength"] = *p.MaxLength
	}

	if p.Items != nil {
		d["items"] = p.Items.document()
	}

	if len(p.Properties) > 0 {
		sub := make(map[string]any, len(p.Properties))
		for name, sp := range p.Properties {
			sub[name] = sp.document()
		}

		d["properties"] = sub
	}

	return d
}
