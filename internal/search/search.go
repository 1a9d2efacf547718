// Package search defines the engine independent side of submission search: the indexed
// document, the query, the normalised result page, the query text parser and the
// keyword tokenizer. Back-ends live in the sub packages.
package search

import (
	"context"
	"errors"
	"time"
)

// Field is an indexed part of a submission. Values are bit flags so the keyword index
// can match a term against several fields at once.
type Field int

// Indexed fields.
const (
	FieldAuthor   Field = 0x01
	FieldTitle    Field = 0x02
	FieldAbstract Field = 0x04
	FieldSubject  Field = 0x10
	FieldKeyword  Field = 0x20
	FieldCoverage Field = 0x80
	FieldFullText Field = 0x100

	// FieldAll matches every field.
	FieldAll = FieldAuthor | FieldTitle | FieldAbstract | FieldSubject | FieldKeyword | FieldCoverage | FieldFullText
)

// Fields lists the single fields in index order.
var Fields = []Field{ //nolint:gochecknoglobals
	FieldAuthor, FieldTitle, FieldAbstract, FieldSubject, FieldKeyword, FieldCoverage, FieldFullText,
}

var fieldNames = map[Field]string{ //nolint:gochecknoglobals
	FieldAuthor:   "authors",
	FieldTitle:    "title",
	FieldAbstract: "abstract",
	FieldSubject:  "subjects",
	FieldKeyword:  "keywords",
	FieldCoverage: "coverage",
	FieldFullText: "fullText",
}

// String returns the field name used in documents and api queries.
func (f Field) String() string {
	if n, ok := fieldNames[f]; ok {
		return n
	}

	return "all"
}

// ParseField returns the field with name.
func ParseField(name string) (Field, bool) {
	for f, n := range fieldNames {
		if n == name {
			return f, true
		}
	}

	return 0, false
}

// Order of a result page.
const (
	OrderScore = "score"
	OrderDate  = "datePublished"
)

var (
	// ErrUnknownEngine is returned for an engine name without implementation.
	ErrUnknownEngine = errors.New("unknown search engine")
	// ErrEmptyQuery is returned when a query has no searchable term.
	ErrEmptyQuery = errors.New("empty search query")
)

// Document is one published submission as seen by the index.
type Document struct {
	ID            uint64 // submission id
	ContextID     uint64
	DatePublished *time.Time
	// Text holds the field texts keyed by locale.
	Text map[Field]map[string]string
}

// Add appends text to a field in locale.
func (d *Document) Add(f Field, locale, text string) {
	if text == "" {
		return
	}

	if d.Text == nil {
		d.Text = map[Field]map[string]string{}
	}

	if d.Text[f] == nil {
		d.Text[f] = map[string]string{}
	}

	if prev := d.Text[f][locale]; prev != "" {
		text = prev + " " + text
	}

	d.Text[f][locale] = text
}

// FieldText returns all locales of a field joined by spaces, in locale order.
func (d *Document) FieldText(f Field) string {
	locales := SortedLocales(d.Text[f])

	out := ""
	for _, l := range locales {
		if out != "" {
			out += " "
		}

		out += d.Text[f][l]
	}

	return out
}

// Query selects submissions.
type Query struct {
	// Text is matched against every field.
	Text string
	// Keywords are matched against one field each.
	Keywords      map[Field]string
	ContextID     uint64
	PublishedFrom *time.Time
	PublishedTo   *time.Time
	Page          int
	PerPage       int
	OrderBy       string
	Ascending     bool
}

// Clauses parses the query texts into field scoped clauses.
func (q Query) Clauses() []Clause {
	var out []Clause

	if q.Text != "" {
		for _, t := range ParseQuery(q.Text).Terms {
			out = append(out, Clause{Term: t, Fields: FieldAll})
		}
	}

	for _, f := range Fields {
		text, ok := q.Keywords[f]
		if !ok || text == "" {
			continue
		}

		for _, t := range ParseQuery(text).Terms {
			out = append(out, Clause{Term: t, Fields: f})
		}
	}

	return out
}

// Normalize applies defaults to paging and order.
func (q Query) Normalize(defaultPerPage int) Query {
	if q.Page < 1 {
		q.Page = 1
	}

	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	}

	if q.OrderBy != OrderDate {
		q.OrderBy = OrderScore
	}

	return q
}

// Offset returns the index of the first hit of the page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Clause is a parsed term scoped to fields.
type Clause struct {
	Term
	Fields Field
}

// Hit is one matching submission.
type Hit struct {
	ID    uint64  `json:"id"`
	Score float64 `json:"score"`
}

// Results is one page of hits. Total counts every match regardless of paging.
type Results struct {
	Total   int64 `json:"total"`
	Hits    []Hit `json:"hits"`
	Page    int   `json:"page"`
	PerPage int   `json:"perPage"`
}

// IDs returns the hit ids in order.
func (r *Results) IDs() []uint64 {
	ids := make([]uint64, len(r.Hits))
	for i, h := range r.Hits {
		ids[i] = h.ID
	}

	return ids
}

// Source feeds every indexable document to yield.
type Source func(ctx context.Context, yield func(Document) error) error

// Engine is a search back-end.
type Engine interface {
	Name() string
	Index(ctx context.Context, doc Document) error
	Delete(ctx context.Context, id uint64) error
	Search(ctx context.Context, q Query) (*Results, error)
	// Rebuild drops the whole index and indexes every document of src.
	Rebuild(ctx context.Context, src Source) error
	Close() error
}
