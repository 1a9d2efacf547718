// Package site reads and writes the installation wide settings described by the site
// schema.
package site

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/cache"
	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/db/controller/setting"
	"github.com/pkp/pkplib/internal/db/dao"
	"github.com/pkp/pkplib/internal/schema"
)

const cacheKey = "site_settings"

// ErrInvalid is returned by Edit when the props do not validate.
var ErrInvalid = errors.New("invalid site settings")

// raw is the cached form of the settings: name -> locale -> stored value.
type raw map[string]map[string]string

// Service gives typed access to the site settings.
type Service struct {
	DB            *gorm.DB
	Schema        *schema.Schema
	Cache         *cache.Cache
	Locales       []string
	PrimaryLocale string
}

// Get returns every site setting with schema defaults for missing props.
func (s *Service) Get(ctx context.Context) (*dataobject.DataObject, error) {
	rows, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	obj := dataobject.New()

	for name, locales := range rows {
		p := s.Schema.Property(name)

		for locale, value := range locales {
			v, err := dao.DecodeValue(value, p)
			if err != nil {
				return nil, fmt.Errorf("site setting %s: %w", name, err)
			}

			if (p != nil && p.Multilingual) || (p == nil && locale != "") {
				obj.SetLocalized(name, v, locale)
			} else {
				obj.Set(name, v)
			}
		}
	}

	s.Schema.SetDefaults(obj, s.Locales)

	return obj, nil
}

// Setting returns one setting. Multilingual settings fall back to the primary locale.
func (s *Service) Setting(ctx context.Context, name, locale string) (any, error) {
	obj, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}

	if p := s.Schema.Property(name); p != nil && p.Multilingual {
		return obj.GetLocalized(name, locale, s.PrimaryLocale), nil
	}

	return obj.Get(name), nil
}

// Edit validates props and stores them. Props missing from the map are untouched.
func (s *Service) Edit(ctx context.Context, props map[string]any) (schema.Errors, error) {
	props, err := s.Schema.CoerceAll(s.Schema.Sanitize(props))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	verrs, err := s.Schema.Validate(props, schema.ValidateOptions{
		Locales:       s.Locales,
		PrimaryLocale: s.PrimaryLocale,
		Partial:       true,
	})
	if err != nil {
		return nil, err
	}

	if verrs != nil {
		return verrs, ErrInvalid
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for name, value := range props {
			if err := s.store(tx, name, value); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if err = s.Cache.Invalidate(cacheKey); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate site settings cache")
	}

	return nil, nil
}

func (s *Service) store(tx *gorm.DB, name string, value any) error {
	p := s.Schema.Property(name)

	if !p.Multilingual {
		encoded, err := encode(value)
		if err != nil {
			return err
		}

		_, err = setting.Set(tx, name, "", encoded)

		return err
	}

	values, _ := value.(map[string]any)
	for locale, v := range values {
		encoded, err := encode(v)
		if err != nil {
			return err
		}

		if _, err = setting.Set(tx, name, locale, encoded); err != nil {
			return err
		}
	}

	return nil
}

func encode(v any) ([]byte, error) {
	if dataobject.IsEmpty(v) {
		return nil, nil
	}

	s, err := dao.EncodeValue(v)
	if err != nil {
		return nil, err
	}

	return []byte(s), nil
}

func (s *Service) load(ctx context.Context) (raw, error) {
	var rows raw

	found, err := s.Cache.Get(cacheKey, &rows)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read site settings cache")
	}

	if found {
		return rows, nil
	}

	all, err := setting.GetAll(s.DB.WithContext(ctx))
	if err != nil {
		return nil, err
	}

	rows = raw{}
	for _, r := range all {
		if rows[r.Name] == nil {
			rows[r.Name] = map[string]string{}
		}

		rows[r.Name][r.Locale] = string(r.Value)
	}

	if err = s.Cache.Set(cacheKey, rows); err != nil {
		log.Warn().Err(err).Msg("failed to write site settings cache")
	}

	return rows, nil
}
