// Package database implements search on the keyword index kept in the submission
// search tables: a keyword dictionary, one search object per indexed field and the
// position of every keyword inside each object.
package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/search"
)

// Name of the engine.
const Name = "database"

const batchSize = 500

// Engine searches the keyword index.
type Engine struct {
	db      *gorm.DB
	tok     *search.Tokenizer
	perPage int
}

// New creates the keyword index engine.
func New(db *gorm.DB, tok *search.Tokenizer, perPage int) *Engine {
	return &Engine{db: db, tok: tok, perPage: perPage}
}

// Name implements search.Engine.
func (e *Engine) Name() string { return Name }

// Close implements search.Engine.
func (e *Engine) Close() error { return nil }

// Index replaces the indexed objects of a submission.
func (e *Engine) Index(ctx context.Context, doc search.Document) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := deleteObjects(tx, doc.ID); err != nil {
			return err
		}

		keywords := map[string]uint64{}

		for _, f := range search.Fields {
			texts := doc.Text[f]
			if len(texts) == 0 {
				continue
			}

			obj := models.SearchObject{
				SubmissionID:  doc.ID,
				ContextID:     doc.ContextID,
				Type:          int(f),
				DatePublished: doc.DatePublished,
			}
			if err := tx.Create(&obj).Error; err != nil {
				return fmt.Errorf("create search object: %w", err)
			}

			var rows []models.SearchObjectKeyword

			for _, locale := range search.SortedLocales(texts) {
				for _, kw := range e.tok.Tokenize(texts[locale], locale) {
					id, err := keywordID(tx, keywords, kw)
					if err != nil {
						return err
					}

					rows = append(rows, models.SearchObjectKeyword{ObjectID: obj.ID, Pos: len(rows), KeywordID: id})
				}
			}

			if len(rows) == 0 {
				continue
			}

			if err := tx.CreateInBatches(rows, batchSize).Error; err != nil {
				return fmt.Errorf("index keywords: %w", err)
			}
		}

		return nil
	})
}

// Delete removes a submission from the index.
func (e *Engine) Delete(ctx context.Context, id uint64) error {
	return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteObjects(tx, id)
	})
}

// Rebuild clears the index tables and indexes every document of src.
func (e *Engine) Rebuild(ctx context.Context, src search.Source) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&models.SearchObjectKeyword{}, &models.SearchObject{}, &models.SearchKeyword{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(m).Error; err != nil {
				return fmt.Errorf("clear search index: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	return src(ctx, func(doc search.Document) error {
		return e.Index(ctx, doc)
	})
}

// Search implements search.Engine. Every keyword of a clause counts as one hit for the
// score; phrases need their keywords at consecutive positions of the same object.
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Results, error) {
	q = q.Normalize(e.perPage)

	all := q.Clauses()
	if len(all) == 0 {
		return nil, search.ErrEmptyQuery
	}

	var (
		clauses []search.Clause
		matches []map[uint64]float64
	)

	for _, c := range all {
		kws := e.tok.TermKeywords(c.Term, "")
		if len(kws) == 0 {
			continue
		}

		m, err := e.match(ctx, kws, c, q)
		if err != nil {
			return nil, err
		}

		clauses = append(clauses, c)
		matches = append(matches, m)
	}

	scores := search.Combine(clauses, matches)

	cands, err := e.candidates(ctx, scores)
	if err != nil {
		return nil, err
	}

	return search.Page(cands, q), nil
}

func (e *Engine) match(ctx context.Context, kws []string, c search.Clause, q search.Query) (map[uint64]float64, error) {
	tx := e.db.WithContext(ctx).
		Table("submission_search_objects AS o").
		Select("o.submission_id AS submission_id, COUNT(*) AS hits").
		Joins("JOIN submission_search_object_keywords ok0 ON ok0.object_id = o.object_id")

	for i, kw := range kws {
		if i > 0 {
			tx = tx.Joins(fmt.Sprintf(
				"JOIN submission_search_object_keywords ok%[1]d ON ok%[1]d.object_id = o.object_id AND ok%[1]d.pos = ok0.pos + %[1]d", i,
			))
		}

		tx = tx.Joins(fmt.Sprintf("JOIN submission_search_keyword_list k%[1]d ON k%[1]d.keyword_id = ok%[1]d.keyword_id", i))

		if c.Prefix && i == len(kws)-1 {
			tx = tx.Where(fmt.Sprintf("k%d.keyword_text LIKE ?", i), kw+"%")
		} else {
			tx = tx.Where(fmt.Sprintf("k%d.keyword_text = ?", i), kw)
		}
	}

	tx = tx.Where("(o.type & ?) != 0", int(c.Fields))

	if q.ContextID != 0 {
		tx = tx.Where("o.context_id = ?", q.ContextID)
	}

	if q.PublishedFrom != nil {
		tx = tx.Where("o.date_published >= ?", q.PublishedFrom.UTC())
	}

	if q.PublishedTo != nil {
		tx = tx.Where("o.date_published <= ?", q.PublishedTo.UTC())
	}

	var rows []struct {
		SubmissionID uint64
		Hits         int64
	}

	if err := tx.Group("o.submission_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("search keywords: %w", err)
	}

	out := make(map[uint64]float64, len(rows))
	for _, r := range rows {
		out[r.SubmissionID] = float64(r.Hits)
	}

	return out, nil
}

func (e *Engine) candidates(ctx context.Context, scores map[uint64]float64) ([]search.Candidate, error) {
	if len(scores) == 0 {
		return nil, nil
	}

	ids := make([]uint64, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}

	var objs []models.SearchObject
	if err := e.db.WithContext(ctx).Select("submission_id", "date_published").
		Where("submission_id IN ?", ids).Find(&objs).Error; err != nil {
		return nil, fmt.Errorf("load publication dates: %w", err)
	}

	dates := map[uint64]*models.SearchObject{}
	for i := range objs {
		if objs[i].DatePublished != nil {
			dates[objs[i].SubmissionID] = &objs[i]
		}
	}

	cands := make([]search.Candidate, 0, len(ids))
	for _, id := range ids {
		c := search.Candidate{ID: id, Score: scores[id]}
		if o, ok := dates[id]; ok {
			c.DatePublished = o.DatePublished
		}

		cands = append(cands, c)
	}

	return cands, nil
}

func keywordID(tx *gorm.DB, seen map[string]uint64, kw string) (uint64, error) {
	if id, ok := seen[kw]; ok {
		return id, nil
	}

	var k models.SearchKeyword

	err := tx.Where("keyword_text = ?", kw).Take(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		k = models.SearchKeyword{KeywordText: kw}
		err = tx.Create(&k).Error
	}

	if err != nil {
		return 0, fmt.Errorf("keyword %q: %w", kw, err)
	}

	seen[kw] = k.ID

	return k.ID, nil
}

func deleteObjects(tx *gorm.DB, submissionID uint64) error {
	objects := tx.Model(&models.SearchObject{}).Select("object_id").Where("submission_id = ?", submissionID)

	if err := tx.Where("object_id IN (?)", objects).Delete(&models.SearchObjectKeyword{}).Error; err != nil {
		return fmt.Errorf("delete object keywords: %w", err)
	}

	if err := tx.Where("submission_id = ?", submissionID).Delete(&models.SearchObject{}).Error; err != nil {
		return fmt.Errorf("delete search objects: %w", err)
	}

	return nil
}
