// Package validation wraps go-playground/validator with the rules used by entity schemas
// and forms: locales, DOIs, ORCID iDs, ISSNs and url paths.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/language"
)

type (
	// ErrorResponse represents a validation error response.
	ErrorResponse struct {
		Error       bool
		FailedField string
		Tag         string
		Value       any
	}

	// XValidator validates structs with the library's custom rules registered.
	XValidator struct{}
)

var (
	doiRegexp       = regexp.MustCompile(`^10\.\d{4,9}/[-._;()/:A-Za-z0-9]+$`)
	doiPrefixRegexp = regexp.MustCompile(`^10\.\d{4,9}$`)
	orcidRegexp     = regexp.MustCompile(`^(?:https?://orcid\.org/)?(\d{4}-\d{4}-\d{4}-\d{3}[\dX])$`)
	issnRegexp      = regexp.MustCompile(`^(\d{4})-(\d{3})([\dX])$`)
	urlPathRegexp   = regexp.MustCompile(`^[a-z0-9]+([\-_][a-z0-9]+)*$`)

	validate = newValidator() //nolint:gochecknoglobals
)

func newValidator() *validator.Validate {
	v := validator.New()

	rules := map[string]func(string) bool{
		"locale":    IsLocale,
		"doi":       doiRegexp.MatchString,
		"doiprefix": doiPrefixRegexp.MatchString,
		"orcid":     IsORCID,
		"issn":      IsISSN,
		"urlpath":   urlPathRegexp.MatchString,
	}

	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String())
		}); err != nil {
			panic(fmt.Sprintf("validation: register %s: %v", tag, err))
		}
	}

	return v
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	return validate
}

// Validate performs validation on the provided data and returns a slice of ErrorResponse.
func (v XValidator) Validate(data any) []ErrorResponse {
	var validationErrors []ErrorResponse

	var errs validator.ValidationErrors
	if !errors.As(validate.Struct(data), &errs) {
		return nil
	}

	for _, err := range errs {
		validationErrors = append(validationErrors, ErrorResponse{
			Error:       true,
			FailedField: err.Field(),
			Tag:         err.Tag(),
			Value:       err.Value(),
		})
	}

	return validationErrors
}

// Var validates a single value against a tag list such as "omitempty,url".
func Var(value any, tag string) error {
	return validate.Var(value, tag) //nolint:wrapcheck
}

// ValidateLocalized validates every locale of a localised value against tag.
// The result maps failing locales to their error.
func ValidateLocalized(values map[string]any, tag string) map[string]error {
	failed := map[string]error{}

	for locale, value := range values {
		if value == nil {
			continue
		}

		if err := Var(value, tag); err != nil {
			failed[locale] = err
		}
	}

	return failed
}

// Messages renders validator errors as human readable strings.
func Messages(err error) []string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		if err == nil {
			return nil
		}

		return []string{err.Error()}
	}

	messages := make([]string, len(ve))
	for i, fe := range ve {
		messages[i] = "Field '" + fe.Field() + "' failed validation tag '" + fe.Tag() + "'"
	}

	return messages
}

// IsLocale reports whether s is a well formed locale such as en, fr_CA or sr@latin.
func IsLocale(s string) bool {
	if s == "" {
		return false
	}

	s, _, _ = strings.Cut(s, "@")
	_, err := language.Parse(strings.ReplaceAll(s, "_", "-"))

	return err == nil
}

// IsORCID validates the format and ISO 7064 11,2 check digit of an ORCID iD.
func IsORCID(s string) bool {
	m := orcidRegexp.FindStringSubmatch(s)
	if m == nil {
		return false
	}

	digits := strings.ReplaceAll(m[1], "-", "")
	total := 0

	for _, c := range digits[:15] {
		total = (total + int(c-'0')) * 2
	}

	check := (12 - total%11) % 11

	want := byte('0' + check)
	if check == 10 {
		want = 'X'
	}

	return digits[15] == want
}

// IsISSN validates the format and modulus 11 check digit of an ISSN.
func IsISSN(s string) bool {
	m := issnRegexp.FindStringSubmatch(s)
	if m == nil {
		return false
	}

	digits := m[1] + m[2]
	total := 0

	for i, c := range digits {
		total += int(c-'0') * (8 - i)
	}

	check := (11 - total%11) % 11

	want := byte('0' + check)
	if check == 10 {
		want = 'X'
	}

	return m[3][0] == want
}
