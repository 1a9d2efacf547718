package dao

import (
	"context"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/schema"
)

const (
	localeColumn = "locale"
	nameColumn   = "setting_name"
	valueColumn  = "setting_value"
)

// SettingsDAO reads and writes one entity settings table.
type SettingsDAO struct {
	DB       *gorm.DB
	Table    string
	IDColumn string
	// Schema types decoded values and tells localised props apart. Optional.
	Schema *schema.Schema
}

type settingRow struct {
	EntityID     uint64
	Locale       string
	SettingName  string
	SettingValue string
}

// NewSettingsDAO creates a SettingsDAO for table keyed by idColumn.
func NewSettingsDAO(db *gorm.DB, table, idColumn string, sch *schema.Schema) *SettingsDAO {
	return &SettingsDAO{DB: db, Table: table, IDColumn: idColumn, Schema: sch}
}

// WithTx returns a copy using tx.
func (s *SettingsDAO) WithTx(tx *gorm.DB) *SettingsDAO {
	c := *s
	c.DB = tx

	return &c
}

func (s *SettingsDAO) query(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx).Table(s.Table)
}

func (s *SettingsDAO) property(name string) *schema.Property {
	if s.Schema == nil {
		return nil
	}

	return s.Schema.Property(name)
}

func (s *SettingsDAO) localized(name, locale string) bool {
	if p := s.property(name); p != nil {
		return p.Multilingual
	}

	return locale != ""
}

// Get returns one setting value. Localised settings need a locale.
func (s *SettingsDAO) Get(ctx context.Context, id uint64, name, locale string) (any, error) {
	if s.DB == nil {
		return nil, ErrDBNil
	}

	if name == "" {
		return nil, ErrSettingNameEmpty
	}

	var row settingRow

	err := s.query(ctx).
		Select(s.IDColumn+" AS entity_id, locale, setting_name, setting_value").
		Where(s.IDColumn+" = ? AND "+nameColumn+" = ? AND "+localeColumn+" = ?", id, name, locale).
		Take(&row).Error
	if err != nil {
		return nil, notFound(err)
	}

	return DecodeValue(row.SettingValue, s.property(name))
}

// GetAll returns every setting of an entity. Localised settings are grouped into a
// dataobject.Localized map.
func (s *SettingsDAO) GetAll(ctx context.Context, id uint64) (map[string]any, error) {
	all, err := s.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	if props, ok := all[id]; ok {
		return props, nil
	}

	return map[string]any{}, nil
}

// Load reads the settings of many entities with one query.
func (s *SettingsDAO) Load(ctx context.Context, ids ...uint64) (map[uint64]map[string]any, error) {
	if s.DB == nil {
		return nil, ErrDBNil
	}

	out := make(map[uint64]map[string]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []settingRow

	err := s.query(ctx).
		Select(s.IDColumn+" AS entity_id, locale, setting_name, setting_value").
		Where(s.IDColumn+" IN ?", ids).
		Order(s.IDColumn).Order(nameColumn).Order(localeColumn).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", s.Table, err)
	}

	for _, r := range rows {
		props, ok := out[r.EntityID]
		if !ok {
			props = map[string]any{}
			out[r.EntityID] = props
		}

		value, err := DecodeValue(r.SettingValue, s.property(r.SettingName))
		if err != nil {
			return nil, fmt.Errorf("decode %s.%s: %w", s.Table, r.SettingName, err)
		}

		if !s.localized(r.SettingName, r.Locale) {
			props[r.SettingName] = value
			continue
		}

		values, ok := props[r.SettingName].(dataobject.Localized)
		if !ok {
			values = dataobject.Localized{}
			props[r.SettingName] = values
		}

		values[r.Locale] = value
	}

	return out, nil
}

// Update replaces every row of a setting. A localised value must be keyed by locale;
// empty values are dropped.
func (s *SettingsDAO) Update(ctx context.Context, id uint64, name string, value any, localized bool) error {
	if s.DB == nil {
		return ErrDBNil
	}

	if name == "" {
		return ErrSettingNameEmpty
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.WithTx(tx).replace(ctx, id, name, value, localized)
	})
}

// UpdateLocales replaces only the given locales of a localised setting and leaves the
// other locales untouched.
func (s *SettingsDAO) UpdateLocales(ctx context.Context, id uint64, name string, values map[string]any) error {
	if s.DB == nil {
		return ErrDBNil
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.WithTx(tx).replaceLocales(ctx, id, name, values)
	})
}

// Delete removes a setting. Without locales every locale is removed.
func (s *SettingsDAO) Delete(ctx context.Context, id uint64, name string, locales ...string) error {
	if s.DB == nil {
		return ErrDBNil
	}

	q := s.query(ctx).Where(s.IDColumn+" = ? AND "+nameColumn+" = ?", id, name)
	if len(locales) > 0 {
		q = q.Where(localeColumn+" IN ?", locales)
	}

	if err := q.Delete(map[string]any{}).Error; err != nil {
		return fmt.Errorf("delete %s.%s: %w", s.Table, name, err)
	}

	return nil
}

// DeleteAll removes every setting of an entity.
func (s *SettingsDAO) DeleteAll(ctx context.Context, id uint64) error {
	if s.DB == nil {
		return ErrDBNil
	}

	if err := s.query(ctx).Where(s.IDColumn+" = ?", id).Delete(map[string]any{}).Error; err != nil {
		return fmt.Errorf("delete %s: %w", s.Table, err)
	}

	return nil
}

func (s *SettingsDAO) replace(ctx context.Context, id uint64, name string, value any, localized bool) error {
	if err := s.Delete(ctx, id, name); err != nil {
		return err
	}

	if !localized {
		return s.insert(ctx, id, name, "", value)
	}

	values, ok := value.(map[string]any)
	if !ok && value != nil {
		return fmt.Errorf("%s: %w", name, ErrNotLocalized)
	}

	return s.insertLocalized(ctx, id, name, values)
}

func (s *SettingsDAO) replaceLocales(ctx context.Context, id uint64, name string, values map[string]any) error {
	for _, locale := range sortedKeys(values) {
		if err := s.Delete(ctx, id, name, locale); err != nil {
			return err
		}

		if err := s.insert(ctx, id, name, locale, values[locale]); err != nil {
			return err
		}
	}

	return nil
}

func (s *SettingsDAO) insertLocalized(ctx context.Context, id uint64, name string, values map[string]any) error {
	for _, locale := range sortedKeys(values) {
		if err := s.insert(ctx, id, name, locale, values[locale]); err != nil {
			return err
		}
	}

	return nil
}

func (s *SettingsDAO) insert(ctx context.Context, id uint64, name, locale string, value any) error {
	if dataobject.IsEmpty(value) {
		return nil
	}

	encoded, err := EncodeValue(value)
	if err != nil {
		return err
	}

	err = s.query(ctx).Create(map[string]any{
		s.IDColumn:   id,
		localeColumn: locale,
		nameColumn:   name,
		valueColumn:  encoded,
	}).Error
	if err != nil {
		return fmt.Errorf("insert %s.%s: %w", s.Table, name, err)
	}

	return nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
