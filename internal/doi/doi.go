// Package doi assigns DOIs to publications and deposits them with a registration agency.
package doi

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/db/models"
	"github.com/pkp/pkplib/internal/validation"
)

var (
	// ErrNotFound is returned when a DOI does not exist.
	ErrNotFound = errors.New("doi not found")
	// ErrInvalid is returned for a malformed DOI or prefix.
	ErrInvalid = errors.New("invalid doi")
	// ErrDuplicate is returned when the DOI is already assigned.
	ErrDuplicate = errors.New("doi already exists")
)

// maxSuffixAttempts bounds the retries when a generated suffix collides.
const maxSuffixAttempts = 5

var statusNames = map[int]string{ //nolint:gochecknoglobals
	models.DoiStatusUnregistered: "unregistered",
	models.DoiStatusSubmitted:    "submitted",
	models.DoiStatusRegistered:   "registered",
	models.DoiStatusError:        "error",
	models.DoiStatusStale:        "stale",
}

// StatusName returns the name of a status.
func StatusName(status int) string {
	return statusNames[status]
}

// ParseStatus returns the status with name.
func ParseStatus(name string) (int, bool) {
	for s, n := range statusNames {
		if n == strings.ToLower(name) {
			return s, true
		}
	}

	return 0, false
}

// Format joins prefix and suffix.
func Format(prefix, suffix string) string {
	return prefix + "/" + suffix
}

// Validate checks that doi is well formed.
func Validate(doi string) error {
	if err := validation.Var(doi, "required,doi"); err != nil {
		return fmt.Errorf("%q: %w", doi, ErrInvalid)
	}

	return nil
}

// Repository stores DOIs.
type Repository struct {
	DB *gorm.DB
}

// NewRepository returns a repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{DB: db}
}

// Get returns a DOI by id.
func (r *Repository) Get(ctx context.Context, id uint64) (*models.Doi, error) {
	return r.take(ctx, "doi_id = ?", id)
}

// GetByDoi returns a DOI by its value. DOIs compare case insensitively.
func (r *Repository) GetByDoi(ctx context.Context, doi string) (*models.Doi, error) {
	return r.take(ctx, "LOWER(doi) = ?", strings.ToLower(doi))
}

func (r *Repository) take(ctx context.Context, query string, args ...any) (*models.Doi, error) {
	var d models.Doi
	if err := r.DB.WithContext(ctx).Where(query, args...).Take(&d).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	return &d, nil
}

// Create validates and stores d.
func (r *Repository) Create(ctx context.Context, d *models.Doi) error {
	if err := Validate(d.Doi); err != nil {
		return err
	}

	if _, err := r.GetByDoi(ctx, d.Doi); err == nil {
		return fmt.Errorf("%q: %w", d.Doi, ErrDuplicate)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	if d.Status == 0 {
		d.Status = models.DoiStatusUnregistered
	}

	d.ID = 0

	return r.DB.WithContext(ctx).Create(d).Error
}

// Assign creates a DOI with a generated suffix below prefix.
func (r *Repository) Assign(ctx context.Context, contextID uint64, prefix string, suffixLength int) (*models.Doi, error) {
	if err := validation.Var(prefix, "required,doiprefix"); err != nil {
		return nil, fmt.Errorf("prefix %q: %w", prefix, ErrInvalid)
	}

	var err error

	for range maxSuffixAttempts {
		d := &models.Doi{ContextID: contextID, Doi: Format(prefix, GenerateSuffix(suffixLength))}
		if err = r.Create(ctx, d); err == nil {
			return d, nil
		}

		if !errors.Is(err, ErrDuplicate) {
			return nil, err
		}
	}

	return nil, err
}

// ByStatus returns the DOIs of a context in one of statuses, oldest first.
func (r *Repository) ByStatus(ctx context.Context, contextID uint64, statuses ...int) ([]models.Doi, error) {
	var out []models.Doi

	err := r.DB.WithContext(ctx).
		Where("context_id = ? AND status IN ?", contextID, statuses).
		Order("doi_id").
		Find(&out).Error

	return out, err
}

// MarkSubmitted queues DOIs for the next deposit.
func (r *Repository) MarkSubmitted(ctx context.Context, ids ...uint64) error {
	return r.DB.WithContext(ctx).Model(&models.Doi{}).
		Where("doi_id IN ?", ids).
		Updates(map[string]any{"status": models.DoiStatusSubmitted, "error_message": ""}).Error
}

// MarkStale flags registered DOIs whose metadata changed so they are deposited again.
func (r *Repository) MarkStale(ctx context.Context, ids ...uint64) error {
	return r.DB.WithContext(ctx).Model(&models.Doi{}).
		Where("doi_id IN ? AND status = ?", ids, models.DoiStatusRegistered).
		Update("status", models.DoiStatusStale).Error
}

// SetStatus records the outcome of a deposit. A registered DOI gets its registration
// date; an error keeps message.
func (r *Repository) SetStatus(ctx context.Context, id uint64, status int, agency, message string) error {
	if _, ok := statusNames[status]; !ok {
		return fmt.Errorf("status %d: %w", status, ErrInvalid)
	}

	if _, err := r.Get(ctx, id); err != nil {
		return err
	}

	values := map[string]any{
		"status":              status,
		"error_message":       message,
		"registration_agency": agency,
	}

	if status == models.DoiStatusRegistered {
		values["date_registered"] = time.Now().UTC()
		values["error_message"] = ""
	}

	return r.DB.WithContext(ctx).Model(&models.Doi{}).Where("doi_id = ?", id).Updates(values).Error
}

// Delete removes a DOI.
func (r *Repository) Delete(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Delete(&models.Doi{}, "doi_id = ?", id)
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
