// Package bleveindex keeps the search index in an embedded bleve index, on disk or in
// memory.
package bleveindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/pkp/pkplib/internal/search"
)

// Name of the engine.
const Name = "bleve"

const (
	fieldContext   = "contextId"
	fieldPublished = "datePublished"
	batchSize      = 500
)

// zeroTime leaves a date range open on that side.
var zeroTime time.Time //nolint:gochecknoglobals

// Engine is the embedded index.
type Engine struct {
	mu      sync.RWMutex
	index   bleve.Index
	path    string
	tok     *search.Tokenizer
	perPage int
}

// New opens the index at path, creating it when missing. An empty path keeps the index
// in memory.
func New(path string, tok *search.Tokenizer, perPage int) (*Engine, error) {
	idx, err := open(path)
	if err != nil {
		return nil, err
	}

	return &Engine{index: idx, path: path, tok: tok, perPage: perPage}, nil
}

func open(path string) (bleve.Index, error) {
	if path == "" {
		return bleve.NewMemOnly(indexMapping())
	}

	idx, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		idx, err = bleve.New(path, indexMapping())
	}

	if err != nil {
		return nil, fmt.Errorf("open bleve index %s: %w", path, err)
	}

	return idx, nil
}

func indexMapping() *mapping.IndexMappingImpl {
	doc := bleve.NewDocumentMapping()

	for _, f := range search.Fields {
		doc.AddFieldMappingsAt(f.String(), bleve.NewTextFieldMapping())
	}

	doc.AddFieldMappingsAt(fieldContext, bleve.NewNumericFieldMapping())
	doc.AddFieldMappingsAt(fieldPublished, bleve.NewDateTimeFieldMapping())

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc

	return m
}

// Name implements search.Engine.
func (e *Engine) Name() string { return Name }

// Close closes the index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.index.Close()
}

// Index implements search.Engine.
func (e *Engine) Index(_ context.Context, doc search.Document) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.index.Index(strconv.FormatUint(doc.ID, 10), e.fields(doc))
}

// Delete implements search.Engine.
func (e *Engine) Delete(_ context.Context, id uint64) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.index.Delete(strconv.FormatUint(id, 10))
}

// Rebuild replaces the index with a fresh one holding the documents of src.
func (e *Engine) Rebuild(ctx context.Context, src search.Source) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.index.Close(); err != nil {
		return err
	}

	if e.path != "" {
		if err := os.RemoveAll(e.path); err != nil {
			return err
		}
	}

	idx, err := open(e.path)
	if err != nil {
		return err
	}

	e.index = idx

	batch := idx.NewBatch()

	err = src(ctx, func(doc search.Document) error {
		if err := batch.Index(strconv.FormatUint(doc.ID, 10), e.fields(doc)); err != nil {
			return err
		}

		if batch.Size() < batchSize {
			return nil
		}

		err := idx.Batch(batch)
		batch.Reset()

		return err
	})
	if err != nil {
		return err
	}

	return idx.Batch(batch)
}

// fields flattens a document into one normalized text per field.
func (e *Engine) fields(doc search.Document) map[string]any {
	out := map[string]any{fieldContext: float64(doc.ContextID)}

	if doc.DatePublished != nil {
		out[fieldPublished] = doc.DatePublished.UTC()
	}

	for _, f := range search.Fields {
		var kws []string

		for _, locale := range search.SortedLocales(doc.Text[f]) {
			kws = append(kws, e.tok.Tokenize(doc.Text[f][locale], locale)...)
		}

		if len(kws) > 0 {
			out[f.String()] = strings.Join(kws, " ")
		}
	}

	return out
}

// Search implements search.Engine.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	q = q.Normalize(e.perPage)

	clauses := q.Clauses()
	if len(clauses) == 0 {
		return nil, search.ErrEmptyQuery
	}

	bq, ok := e.buildQuery(q, clauses)
	if !ok {
		return search.Page(nil, q), nil
	}

	req := bleve.NewSearchRequestOptions(bq, q.PerPage, q.Offset(), false)
	req.SortBy(sortOrder(q))

	e.mu.RLock()
	res, err := e.index.SearchInContext(ctx, req)
	e.mu.RUnlock()

	if err != nil {
		return nil, fmt.Errorf("bleve query: %w", err)
	}

	out := &search.Results{
		Total:   int64(res.Total), //nolint:gosec
		Page:    q.Page,
		PerPage: q.PerPage,
		Hits:    make([]search.Hit, 0, len(res.Hits)),
	}

	for _, h := range res.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("hit id %q: %w", h.ID, err)
		}

		out.Hits = append(out.Hits, search.Hit{ID: id, Score: h.Score})
	}

	return out, nil
}

// buildQuery turns the clauses into a boolean query. It reports false when no clause
// can match on its own.
func (e *Engine) buildQuery(q search.Query, clauses []search.Clause) (query.Query, bool) {
	var must, should, mustNot []query.Query

	for _, c := range clauses {
		kws := e.tok.TermKeywords(c.Term, "")
		if len(kws) == 0 {
			continue
		}

		var alts []query.Query
		for _, f := range search.Fields {
			if c.Fields&f != 0 {
				alts = append(alts, fieldQuery(f.String(), kws, c.Prefix))
			}
		}

		cq := query.Query(bleve.NewDisjunctionQuery(alts...))
		if len(alts) == 1 {
			cq = alts[0]
		}

		switch c.Occur {
		case search.Must:
			must = append(must, cq)
		case search.Should:
			should = append(should, cq)
		case search.MustNot:
			mustNot = append(mustNot, cq)
		}
	}

	if len(must) == 0 && len(should) == 0 {
		return nil, false
	}

	must = append(must, filters(q)...)

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)
	bq.AddMustNot(mustNot...)

	if len(should) > 0 {
		bq.AddShould(should...)
		bq.SetMinShould(1)
	}

	return bq, true
}

func fieldQuery(field string, kws []string, prefix bool) query.Query {
	if prefix {
		last := bleve.NewPrefixQuery(kws[len(kws)-1])
		last.SetField(field)

		if len(kws) == 1 {
			return last
		}

		head := bleve.NewMatchPhraseQuery(strings.Join(kws[:len(kws)-1], " "))
		head.SetField(field)

		return bleve.NewConjunctionQuery(head, last)
	}

	if len(kws) == 1 {
		m := bleve.NewMatchQuery(kws[0])
		m.SetField(field)

		return m
	}

	p := bleve.NewMatchPhraseQuery(strings.Join(kws, " "))
	p.SetField(field)

	return p
}

func filters(q search.Query) []query.Query {
	var out []query.Query

	if q.ContextID != 0 {
		id := float64(q.ContextID)
		inclusive := true

		r := bleve.NewNumericRangeInclusiveQuery(&id, &id, &inclusive, &inclusive)
		r.SetField(fieldContext)

		out = append(out, r)
	}

	if q.PublishedFrom != nil || q.PublishedTo != nil {
		var r *query.DateRangeQuery

		switch {
		case q.PublishedFrom == nil:
			r = bleve.NewDateRangeQuery(zeroTime, q.PublishedTo.UTC())
		case q.PublishedTo == nil:
			r = bleve.NewDateRangeQuery(q.PublishedFrom.UTC(), zeroTime)
		default:
			r = bleve.NewDateRangeQuery(q.PublishedFrom.UTC(), q.PublishedTo.UTC())
		}

		inclusive := true
		r.InclusiveEnd = &inclusive
		r.SetField(fieldPublished)

		out = append(out, r)
	}

	return out
}

func sortOrder(q search.Query) []string {
	dir := "-"
	if q.Ascending {
		dir = ""
	}

	if q.OrderBy == search.OrderDate {
		return []string{dir + fieldPublished, "-_score", "_id"}
	}

	return []string{dir + "_score", "-" + fieldPublished, "_id"}
}
