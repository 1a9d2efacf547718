// Package entity implements the add, edit and delete flow shared by the schema backed
// repositories: sanitize the incoming props, coerce them to the schema types, validate
// and store them through a SchemaDAO.
package entity

import (
	"context"
	"errors"
	"fmt"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/schema"
)

// ErrInvalid is returned when props fail validation. The validation errors are returned
// next to it.
var ErrInvalid = errors.New("invalid properties")

// Rules checks an entity as it would be stored, after defaults and merging. It adds
// its findings to errs.
type Rules func(ctx context.Context, obj *dataobject.DataObject, errs schema.Errors) error

// Service runs the edit flow for one entity type.
type Service[T any, P dao.RowPointer[T]] struct {
	DAO           *dao.SchemaDAO[T, P]
	Locales       []string
	PrimaryLocale string
	// Rules is optional.
	Rules Rules
}

// Schema returns the schema of the entity.
func (s *Service[T, P]) Schema() *schema.Schema {
	return s.DAO.Schema
}

// Prepare drops props that cannot be written and coerces the rest.
func (s *Service[T, P]) Prepare(props map[string]any) (map[string]any, error) {
	props, err := s.Schema().CoerceAll(s.Schema().Sanitize(props))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return props, nil
}

// Validate checks prepared props. Partial validation skips required props.
func (s *Service[T, P]) Validate(props map[string]any, partial bool) (schema.Errors, error) {
	return s.Schema().Validate(props, schema.ValidateOptions{
		Locales:       s.Locales,
		PrimaryLocale: s.PrimaryLocale,
		Partial:       partial,
	})
}

// Get returns the entity with id.
func (s *Service[T, P]) Get(ctx context.Context, id uint64) (*dataobject.DataObject, error) {
	return s.DAO.Get(ctx, id)
}

// Add validates props as a complete entity and inserts it with schema defaults for the
// props it lacks.
func (s *Service[T, P]) Add(ctx context.Context, props map[string]any) (*dataobject.DataObject, schema.Errors, error) {
	props, err := s.Prepare(props)
	if err != nil {
		return nil, nil, err
	}

	verrs, err := s.Validate(props, false)
	if err != nil {
		return nil, nil, err
	}

	if verrs != nil {
		return nil, verrs, ErrInvalid
	}

	obj := dataobject.FromMap(props)
	s.Schema().SetDefaults(obj, s.Locales)

	if verrs, err = s.check(ctx, obj); verrs != nil || err != nil {
		return nil, verrs, err
	}

	if _, err = s.DAO.Insert(ctx, obj); err != nil {
		return nil, nil, err
	}

	return obj, nil, nil
}

// Edit validates props as a partial update, merges them into the stored entity and
// saves it. Localized props are merged per locale.
func (s *Service[T, P]) Edit(
	ctx context.Context, id uint64, props map[string]any,
) (*dataobject.DataObject, schema.Errors, error) {
	obj, err := s.DAO.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	props, err = s.Prepare(props)
	if err != nil {
		return nil, nil, err
	}

	verrs, err := s.Validate(props, true)
	if err != nil {
		return nil, nil, err
	}

	if verrs != nil {
		return nil, verrs, ErrInvalid
	}

	Merge(s.Schema(), obj, props)

	if verrs, err = s.check(ctx, obj); verrs != nil || err != nil {
		return nil, verrs, err
	}

	if err = s.DAO.Update(ctx, obj); err != nil {
		return nil, nil, err
	}

	obj, err = s.DAO.Get(ctx, id)

	return obj, nil, err
}

func (s *Service[T, P]) check(ctx context.Context, obj *dataobject.DataObject) (schema.Errors, error) {
	if s.Rules == nil {
		return nil, nil
	}

	errs := schema.Errors{}
	if err := s.Rules(ctx, obj, errs); err != nil {
		return nil, err
	}

	if len(errs) > 0 {
		return errs, ErrInvalid
	}

	return nil, nil
}

// Delete removes the entity with id.
func (s *Service[T, P]) Delete(ctx context.Context, id uint64) error {
	return s.DAO.DeleteByID(ctx, id)
}

// Merge writes props over obj. Empty values unset a prop; for multilingual props each
// locale is merged on its own and an empty value removes that locale.
func Merge(sc *schema.Schema, obj *dataobject.DataObject, props map[string]any) {
	for name, value := range props {
		p := sc.Property(name)

		if p == nil || !p.Multilingual {
			if dataobject.IsEmpty(value) {
				obj.Unset(name)
			} else {
				obj.Set(name, value)
			}

			continue
		}

		values, _ := value.(map[string]any)
		for locale, v := range values {
			if dataobject.IsEmpty(v) {
				v = nil
			}

			obj.SetLocalized(name, v, locale)
		}
	}
}
