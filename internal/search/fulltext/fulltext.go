// Package fulltext searches one flattened row per submission with the fulltext support
// of the database: FTS5 on SQLite, MATCH AGAINST on MySQL and text search on PostgreSQL.
package fulltext

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/search"
)

// Name of the engine.
const Name = "fulltext"

// Indexed columns of search_documents.
const (
	colTitle   = "title"
	colAuthors = "authors"
	colBody    = "body"
)

var allColumns = []string{colTitle, colAuthors, colBody} //nolint:gochecknoglobals

// term is a query clause reduced to normalized keywords and the columns it applies to.
type term struct {
	search.Occur
	Keywords []string
	Phrase   bool
	Prefix   bool
	Columns  []string
}

// match is a submission found by a dialect query.
type match struct {
	SubmissionID  uint64
	DatePublished *time.Time
	Score         float64
}

type dialect interface {
	setup(db *gorm.DB) error
	index(tx *gorm.DB, doc *models.SearchDocument) error
	remove(tx *gorm.DB, id uint64) error
	clear(tx *gorm.DB) error
	// query returns the matches for the terms. At least one term is positive.
	query(tx *gorm.DB, terms []term, q search.Query) ([]match, error)
}

// Engine is the database fulltext engine.
type Engine struct {
	db      *gorm.DB
	tok     *search.Tokenizer
	perPage int
	dialect dialect
}

// New creates the engine for the dialect of db and prepares the fulltext structures.
func New(db *gorm.DB, tok *search.Tokenizer, perPage int) (*Engine, error) {
	var d dialect

	switch name := db.Dialector.Name(); name {
	case "sqlite":
		d = sqliteDialect{}
	case "mysql":
		d = mysqlDialect{}
	case "postgres":
		d = postgresDialect{}
	default:
		return nil, fmt.Errorf("fulltext search on %q: %w", name, search.ErrUnknownEngine)
	}

	if err := d.setup(db); err != nil {
		return nil, fmt.Errorf("prepare fulltext index: %w", err)
	}

	return &Engine{db: db, tok: tok, perPage: perPage, dialect: d}, nil
}

// Name implements search.Engine.
func (e *Engine) Name() string { return Name }

// Close implements search.Engine.
func (e *Engine) Close() error { return nil }

// Index stores the flattened document.
func (e *Engine) Index(ctx context.Context, doc search.Document) error {
	row := e.flatten(doc)

	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "submission_id"}},
			UpdateAll: true,
		}).Create(row).Error
		if err != nil {
			return fmt.Errorf("store search document: %w", err)
		}

		return e.dialect.index(tx, row)
	})
}

// Delete removes a submission.
func (e *Engine) Delete(ctx context.Context, id uint64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.dialect.remove(tx, id); err != nil {
			return err
		}

		return tx.Delete(&models.SearchDocument{}, "submission_id = ?", id).Error
	})
}

// Rebuild clears all documents and indexes src.
func (e *Engine) Rebuild(ctx context.Context, src search.Source) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := e.dialect.clear(tx); err != nil {
			return err
		}

		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SearchDocument{}).Error
	})
	if err != nil {
		return fmt.Errorf("clear fulltext index: %w", err)
	}

	return src(ctx, func(doc search.Document) error {
		return e.Index(ctx, doc)
	})
}

// Search implements search.Engine.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	q = q.Normalize(e.perPage)

	clauses := q.Clauses()
	if len(clauses) == 0 {
		return nil, search.ErrEmptyQuery
	}

	var (
		terms    []term
		positive bool
	)

	for _, c := range clauses {
		kws := e.tok.TermKeywords(c.Term, "")
		if len(kws) == 0 {
			continue
		}

		terms = append(terms, term{
			Occur:    c.Occur,
			Keywords: kws,
			Phrase:   c.Phrase || len(kws) > 1,
			Prefix:   c.Prefix,
			Columns:  columns(c.Fields),
		})

		if c.Occur != search.MustNot {
			positive = true
		}
	}

	if !positive {
		return search.Page(nil, q), nil
	}

	matches, err := e.dialect.query(e.db.WithContext(ctx), terms, q)
	if err != nil {
		return nil, fmt.Errorf("fulltext search: %w", err)
	}

	cands := make([]search.Candidate, len(matches))
	for i, m := range matches {
		cands[i] = search.Candidate{ID: m.SubmissionID, Score: m.Score, DatePublished: m.DatePublished}
	}

	return search.Page(cands, q), nil
}

// flatten joins the normalized keywords of the document fields into the three columns.
func (e *Engine) flatten(doc search.Document) *models.SearchDocument {
	var title, authors, body []string

	for _, f := range search.Fields {
		for _, locale := range search.SortedLocales(doc.Text[f]) {
			kws := e.tok.Tokenize(doc.Text[f][locale], locale)

			switch f {
			case search.FieldTitle:
				title = append(title, kws...)
			case search.FieldAuthor:
				authors = append(authors, kws...)
			default:
				body = append(body, kws...)
			}
		}
	}

	return &models.SearchDocument{
		SubmissionID:  doc.ID,
		ContextID:     doc.ContextID,
		Title:         strings.Join(title, " "),
		Authors:       strings.Join(authors, " "),
		Body:          strings.Join(body, " "),
		DatePublished: doc.DatePublished,
	}
}

// columns maps a field mask onto the flattened columns. Masks spanning several columns
// use all of them, as MySQL needs a fulltext index for each column list.
func columns(f search.Field) []string {
	switch f {
	case search.FieldTitle:
		return []string{colTitle}
	case search.FieldAuthor:
		return []string{colAuthors}
	}

	if f&(search.FieldTitle|search.FieldAuthor) == 0 {
		return []string{colBody}
	}

	return allColumns
}

// filter adds the context and date restrictions on the search_documents alias d.
func filter(tx *gorm.DB, q search.Query) *gorm.DB {
	if q.ContextID != 0 {
		tx = tx.Where("d.context_id = ?", q.ContextID)
	}

	if q.PublishedFrom != nil {
		tx = tx.Where("d.date_published >= ?", q.PublishedFrom.UTC())
	}

	if q.PublishedTo != nil {
		tx = tx.Where("d.date_published <= ?", q.PublishedTo.UTC())
	}

	return tx
}

// predicate builds a per term condition and score for the dialects that test every
// term separately.
type predicate func(t term) (cond, score string, arg any)

// combine adds the conditions of every term to tx and selects the summed score.
func combine(tx *gorm.DB, terms []term, pred predicate) *gorm.DB {
	var (
		scores    []string
		scoreArgs []any
		should    []string
		shouldArg []any
	)

	for _, t := range terms {
		cond, score, arg := pred(t)

		switch t.Occur {
		case search.Must:
			tx = tx.Where(cond, arg)
		case search.Should:
			should = append(should, cond)
			shouldArg = append(shouldArg, arg)
		case search.MustNot:
			tx = tx.Where("NOT "+cond, arg)

			continue
		}

		scores = append(scores, score)
		scoreArgs = append(scoreArgs, arg)
	}

	if len(should) > 0 {
		tx = tx.Where("("+strings.Join(should, " OR ")+")", shouldArg...)
	}

	return tx.Select(
		"d.submission_id AS submission_id, d.date_published AS date_published, ("+strings.Join(scores, " + ")+") AS score",
		scoreArgs...,
	)
}
