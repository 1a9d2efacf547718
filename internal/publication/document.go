package publication

import (
	"strings"
	"time"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/search"
)

// localizedFields maps multilingual publication props onto index fields.
var localizedFields = []struct { //nolint:gochecknoglobals
	prop  string
	field search.Field
}{
	{"title", search.FieldTitle},
	{"subtitle", search.FieldTitle},
	{"abstract", search.FieldAbstract},
	{"keywords", search.FieldKeyword},
	{"subjects", search.FieldSubject},
	{"coverage", search.FieldCoverage},
	{"fullText", search.FieldFullText},
}

// ToDocument builds the search document of a publication. Documents are keyed by
// submission so that a new version replaces the old one.
func ToDocument(obj *dataobject.DataObject) search.Document {
	doc := search.Document{
		ID: submissionID(obj),
	}

	doc.ContextID, _ = dataobject.ToUint64(obj.Get("contextId"))

	if t, err := time.Parse(time.DateOnly, obj.GetString("datePublished")); err == nil {
		doc.DatePublished = &t
	}

	for _, lf := range localizedFields {
		values, _ := obj.Get(lf.prop).(map[string]any)

		for locale, v := range values {
			doc.Add(lf.field, locale, text(v))
		}
	}

	for _, name := range AuthorNames(obj) {
		doc.Add(search.FieldAuthor, "", name)
	}

	return doc
}

// AuthorNames returns "given family" for each author in order.
func AuthorNames(obj *dataobject.DataObject) []string {
	authors, _ := obj.Get("authors").([]any)
	names := make([]string, 0, len(authors))

	for _, a := range authors {
		author, _ := a.(map[string]any)
		if name := strings.TrimSpace(text(author["givenName"]) + " " + text(author["familyName"])); name != "" {
			names = append(names, name)
		}
	}

	return names
}

// text flattens string and string list values.
func text(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}

		return strings.Join(parts, " ")
	default:
		return ""
	}
}
