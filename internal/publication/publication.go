// Package publication manages publications and keeps published ones in the search
// index.
package publication

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/entity"
	"github.com/pkp/pkplib/internal/schema"
	"github.com/pkp/pkplib/internal/search"
)

const rebuildPageSize = 100

// Indexer receives published submissions.
type Indexer interface {
	Index(ctx context.Context, doc search.Document) error
	Delete(ctx context.Context, id uint64) error
}

// Repository reads and writes publications.
type Repository struct {
	entity.Service[models.Publication, *models.Publication]

	// Indexer may be nil.
	Indexer Indexer
}

// Filter narrows GetMany. Zero values do not filter.
type Filter struct {
	ContextID    uint64
	SubmissionID uint64
	Status       []int
	// DoiIDs selects the publications identified by these DOIs.
	DoiIDs []uint64
	// SearchPhrase matches the title in any locale.
	SearchPhrase string
}

// New creates the repository on the publication schema.
func New(db *gorm.DB, schemas *schema.Service, indexer Indexer, locales []string, primaryLocale string) (*Repository, error) {
	sch, err := schemas.Get(schema.Publication)
	if err != nil {
		return nil, err
	}

	return &Repository{
		Service: entity.Service[models.Publication, *models.Publication]{
			DAO: dao.NewSchemaDAO[models.Publication](
				db, sch, "publication_settings", "publication_id", models.PublicationColumns,
			),
			Locales:       locales,
			PrimaryLocale: primaryLocale,
		},
		Indexer: indexer,
	}, nil
}

// Add inserts a publication and indexes it when it is published.
func (r *Repository) Add(ctx context.Context, props map[string]any) (*dataobject.DataObject, schema.Errors, error) {
	obj, verrs, err := r.Service.Add(ctx, withDefaultStatus(props))
	if err != nil {
		return nil, verrs, err
	}

	if obj, err = r.touch(ctx, obj.ID()); err != nil {
		return nil, nil, err
	}

	r.sync(ctx, obj)

	return obj, nil, nil
}

// Edit updates a publication and brings the index up to date with its status.
func (r *Repository) Edit(
	ctx context.Context, id uint64, props map[string]any,
) (*dataobject.DataObject, schema.Errors, error) {
	_, verrs, err := r.Service.Edit(ctx, id, props)
	if err != nil {
		return nil, verrs, err
	}

	obj, err := r.touch(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	r.sync(ctx, obj)

	return obj, nil, nil
}

// Delete removes a publication and its index entry.
func (r *Repository) Delete(ctx context.Context, id uint64) error {
	obj, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	if err = r.Service.Delete(ctx, id); err != nil {
		return err
	}

	r.unindex(ctx, submissionID(obj))

	return nil
}

// GetMany returns one page of publications and the total matching f.
func (r *Repository) GetMany(ctx context.Context, f Filter, paging dao.Paging) ([]*dataobject.DataObject, int64, error) {
	total, err := r.DAO.Count(ctx, f.scope)
	if err != nil {
		return nil, 0, err
	}

	objs, err := r.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return f.scope(db).Order("date_published DESC, publication_id DESC")
	}, paging)
	if err != nil {
		return nil, 0, err
	}

	return objs, total, nil
}

// GetBySubmissions returns the latest version of each submission in the order of ids.
// Unknown ids are skipped.
func (r *Repository) GetBySubmissions(ctx context.Context, ids []uint64) ([]*dataobject.DataObject, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	objs, err := r.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("submission_id IN ?", ids).Order("version")
	}, dao.Paging{})
	if err != nil {
		return nil, err
	}

	latest := make(map[uint64]*dataobject.DataObject, len(objs))
	for _, o := range objs {
		latest[submissionID(o)] = o
	}

	out := make([]*dataobject.DataObject, 0, len(ids))
	for _, id := range ids {
		if o, ok := latest[id]; ok {
			out = append(out, o)
		}
	}

	return out, nil
}

// SetDoi links a publication to a DOI; a zero doiID removes the link.
func (r *Repository) SetDoi(ctx context.Context, id, doiID uint64) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	var value any
	if doiID != 0 {
		value = doiID
	}

	return r.DAO.DB.WithContext(ctx).Model(&models.Publication{}).
		Where("publication_id = ?", id).
		Update("doi_id", value).Error
}

// Source feeds every published publication to a search index rebuild.
func (r *Repository) Source() search.Source {
	return func(ctx context.Context, yield func(search.Document) error) error {
		f := Filter{Status: []int{models.StatusPublished}}

		for page := 1; ; page++ {
			objs, err := r.DAO.List(ctx, func(db *gorm.DB) *gorm.DB {
				return f.scope(db).Order("publication_id")
			}, dao.Paging{Page: page, PerPage: rebuildPageSize})
			if err != nil {
				return err
			}

			for _, o := range objs {
				if err = yield(ToDocument(o)); err != nil {
					return err
				}
			}

			if len(objs) < rebuildPageSize {
				return nil
			}
		}
	}
}

func (r *Repository) sync(ctx context.Context, obj *dataobject.DataObject) {
	if r.Indexer == nil {
		return
	}

	if obj.GetInt("status") != models.StatusPublished {
		r.unindex(ctx, submissionID(obj))

		return
	}

	if err := r.Indexer.Index(ctx, ToDocument(obj)); err != nil {
		log.Warn().Err(err).Uint64("publication", obj.ID()).Msg("failed to index publication")
	}
}

func (r *Repository) unindex(ctx context.Context, id uint64) {
	if r.Indexer == nil {
		return
	}

	if err := r.Indexer.Delete(ctx, id); err != nil {
		log.Warn().Err(err).Uint64("submission", id).Msg("failed to remove submission from search index")
	}
}

// touch sets the modification time and returns the stored publication.
func (r *Repository) touch(ctx context.Context, id uint64) (*dataobject.DataObject, error) {
	err := r.DAO.DB.WithContext(ctx).Model(&models.Publication{}).
		Where("publication_id = ?", id).
		Update("last_modified", time.Now().UTC()).Error
	if err != nil {
		return nil, err
	}

	return r.Get(ctx, id)
}

func withDefaultStatus(props map[string]any) map[string]any {
	if props == nil {
		props = map[string]any{}
	}

	if _, ok := props["status"]; !ok {
		props["status"] = models.StatusQueued
	}

	return props
}

func (f Filter) scope(db *gorm.DB) *gorm.DB {
	if f.ContextID != 0 {
		db = db.Where("context_id = ?", f.ContextID)
	}

	if f.SubmissionID != 0 {
		db = db.Where("submission_id = ?", f.SubmissionID)
	}

	if len(f.Status) > 0 {
		db = db.Where("status IN ?", f.Status)
	}

	if len(f.DoiIDs) > 0 {
		db = db.Where("doi_id IN ?", f.DoiIDs)
	}

	if f.SearchPhrase != "" {
		db = db.Where(
			"publication_id IN (SELECT publication_id FROM publication_settings WHERE setting_name = 'title' AND LOWER(setting_value) LIKE ?)",
			"%"+strings.ToLower(f.SearchPhrase)+"%",
		)
	}

	return db
}

func submissionID(obj *dataobject.DataObject) uint64 {
	id, _ := dataobject.ToUint64(obj.Get("submissionId"))

	return id
}
