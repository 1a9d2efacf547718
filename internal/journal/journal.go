// Package journal manages contexts: the journals or presses of an installation.
package journal

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/entity"
	"github.com/pkp/pkplib/internal/schema"
)

// Repository reads and writes contexts.
type Repository struct {
	entity.Service[models.Journal, *models.Journal]
}

// Filter narrows GetMany.
type Filter struct {
	Enabled *bool
	// SearchPhrase matches the context name in any locale or the url path.
	SearchPhrase string
}

// New creates the repository on the context schema.
func New(db *gorm.DB, schemas *schema.Service, locales []string, primaryLocale string) (*Repository, error) {
	sch, err := schemas.Get(schema.Context)
	if err != nil {
		return nil, err
	}

	return &Repository{entity.Service[models.Journal, *models.Journal]{
		DAO:           dao.NewSchemaDAO[models.Journal](db, sch, "journal_settings", "journal_id", models.JournalColumns),
		Locales:       locales,
		PrimaryLocale: primaryLocale,
	}}, nil
}

// GetByPath returns the context with the url path.
func (r *Repository) GetByPath(ctx context.Context, path string) (*dataobject.DataObject, error) {
	objs, err := r.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("path = ?", path)
	}, dao.Paging{})
	if err != nil {
		return nil, err
	}

	if len(objs) == 0 {
		return nil, dao.ErrNotFound
	}

	return objs[0], nil
}

// GetMany returns one page of contexts ordered by seq and the total matching f.
func (r *Repository) GetMany(ctx context.Context, f Filter, paging dao.Paging) ([]*dataobject.DataObject, int64, error) {
	scope := f.scope

	total, err := r.DAO.Count(ctx, scope)
	if err != nil {
		return nil, 0, err
	}

	objs, err := r.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return scope(db).Order("seq, journal_id")
	}, paging)
	if err != nil {
		return nil, 0, err
	}

	return objs, total, nil
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.Enabled != nil {
		db = db.Where("enabled = ?", *f.Enabled)
	}

	if f.SearchPhrase != "" {
		like := "%" + strings.ToLower(f.SearchPhrase) + "%"
		db = db.Where(
			"(LOWER(path) LIKE ? OR journal_id IN (SELECT journal_id FROM journal_settings WHERE setting_name = 'name' AND LOWER(setting_value) LIKE ?))",
			like, like,
		)
	}

	return db
}

// Locales returns the supported locales of a context, falling back to its primary locale.
func Locales(obj *dataobject.DataObject) []string {
	var out []string

	if list, ok := obj.Get("supportedLocales").([]any); ok {
		for _, l := range list {
			if s, ok := l.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}

	if len(out) == 0 {
		if primary := obj.GetString("primaryLocale"); primary != "" {
			out = append(out, primary)
		}
	}

	return out
}
