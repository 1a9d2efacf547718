package dao

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/pkp/pkplib/internal/dataobject"
	"github.com/pkp/pkplib/internal/schema"
)

// Row is a primary table model that can be projected onto a DataObject and back.
type Row interface {
	GetID() uint64
	SetID(id uint64)
	// ToData copies the primary columns into obj.
	ToData(obj *dataobject.DataObject)
	// FromData copies the primary columns from obj.
	FromData(obj *dataobject.DataObject)
}

// RowPointer constrains P to a pointer to T implementing Row.
type RowPointer[T any] interface {
	*T
	Row
}

// SchemaDAO stores entities described by a schema. Props listed in Columns live in the
// primary table through the row model T; every other schema prop is a setting.
type SchemaDAO[T any, P RowPointer[T]] struct {
	DB       *gorm.DB
	Schema   *schema.Schema
	Settings *SettingsDAO
	// KeyColumn is the primary key column of the primary table.
	KeyColumn string
	// Columns maps props stored in the primary table to their column.
	Columns map[string]string
}

// NewSchemaDAO creates a SchemaDAO. The settings table is keyed by keyColumn.
func NewSchemaDAO[T any, P RowPointer[T]](
	db *gorm.DB, sch *schema.Schema, settingsTable, keyColumn string, columns map[string]string,
) *SchemaDAO[T, P] {
	return &SchemaDAO[T, P]{
		DB:        db,
		Schema:    sch,
		Settings:  NewSettingsDAO(db, settingsTable, keyColumn, sch),
		KeyColumn: keyColumn,
		Columns:   columns,
	}
}

// WithTx returns a copy using tx for the primary and settings tables.
func (d *SchemaDAO[T, P]) WithTx(tx *gorm.DB) *SchemaDAO[T, P] {
	c := *d
	c.DB = tx
	c.Settings = d.Settings.WithTx(tx)

	return &c
}

// Column returns the primary table column of prop, or "" when prop is a setting.
func (d *SchemaDAO[T, P]) Column(prop string) string {
	if prop == dataobject.IDKey {
		return d.KeyColumn
	}

	return d.Columns[prop]
}

// New returns an empty DataObject with schema defaults for locales.
func (d *SchemaDAO[T, P]) New(locales []string) *dataobject.DataObject {
	obj := dataobject.New()
	d.Schema.SetDefaults(obj, locales)

	return obj
}

// Get returns the entity with id.
func (d *SchemaDAO[T, P]) Get(ctx context.Context, id uint64) (*dataobject.DataObject, error) {
	if d.DB == nil {
		return nil, ErrDBNil
	}

	row := P(new(T))
	if err := d.DB.WithContext(ctx).Where(d.KeyColumn+" = ?", id).Take(row).Error; err != nil {
		return nil, notFound(err)
	}

	settings, err := d.Settings.GetAll(ctx, id)
	if err != nil {
		return nil, err
	}

	return d.FromRow(row, settings), nil
}

// Exists reports whether an entity with id exists.
func (d *SchemaDAO[T, P]) Exists(ctx context.Context, id uint64) (bool, error) {
	if d.DB == nil {
		return false, ErrDBNil
	}

	var n int64
	if err := d.DB.WithContext(ctx).Model(P(new(T))).Where(d.KeyColumn+" = ?", id).Count(&n).Error; err != nil {
		return false, err
	}

	return n > 0, nil
}

// FromRow builds a DataObject from a primary row and its decoded settings.
func (d *SchemaDAO[T, P]) FromRow(row P, settings map[string]any) *dataobject.DataObject {
	obj := dataobject.New()

	for name, value := range settings {
		if d.Column(name) != "" {
			continue
		}

		obj.Set(name, value)
	}

	row.ToData(obj)
	obj.SetID(row.GetID())

	return obj
}

// Insert stores a new entity and returns its id. The id is also set on obj.
func (d *SchemaDAO[T, P]) Insert(ctx context.Context, obj *dataobject.DataObject) (uint64, error) {
	if d.DB == nil {
		return 0, ErrDBNil
	}

	row := P(new(T))
	row.FromData(obj)

	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(row).Error; err != nil {
			return fmt.Errorf("insert %s: %w", d.Schema.Name, err)
		}

		settings := d.Settings.WithTx(tx)

		for _, name := range d.settingProps(obj) {
			p := d.Schema.Property(name)
			if err := settings.replace(ctx, row.GetID(), name, obj.Get(name), p.Multilingual); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	obj.SetID(row.GetID())

	return row.GetID(), nil
}

// Update stores obj over the existing entity. Settings missing from obj are removed;
// multilingual settings are replaced only for the locales obj carries.
func (d *SchemaDAO[T, P]) Update(ctx context.Context, obj *dataobject.DataObject) error {
	if d.DB == nil {
		return ErrDBNil
	}

	id := obj.ID()

	row := P(new(T))
	row.FromData(obj)
	row.SetID(id)

	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(row).Where(d.KeyColumn+" = ?", id).Select("*").Omit(d.KeyColumn).Updates(row)
		if res.Error != nil {
			return fmt.Errorf("update %s: %w", d.Schema.Name, res.Error)
		}

		// mysql counts changed rows only
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(P(new(T))).Where(d.KeyColumn+" = ?", id).Count(&n).Error; err != nil {
				return fmt.Errorf("update %s: %w", d.Schema.Name, err)
			}

			if n == 0 {
				return ErrNotFound
			}
		}

		settings := d.Settings.WithTx(tx)

		for _, name := range d.Schema.PropertyNames() {
			if d.Column(name) != "" {
				continue
			}

			p := d.Schema.Property(name)

			var err error

			switch {
			case !obj.Has(name):
				err = settings.Delete(ctx, id, name)
			case p.Multilingual:
				values, ok := obj.Get(name).(map[string]any)
				if !ok {
					return fmt.Errorf("%s: %w", name, ErrNotLocalized)
				}

				err = settings.replaceLocales(ctx, id, name, values)
			default:
				err = settings.replace(ctx, id, name, obj.Get(name), false)
			}

			if err != nil {
				return err
			}
		}

		return nil
	})
}

// Delete removes obj.
func (d *SchemaDAO[T, P]) Delete(ctx context.Context, obj *dataobject.DataObject) error {
	return d.DeleteByID(ctx, obj.ID())
}

// DeleteByID removes the settings and then the row of an entity.
func (d *SchemaDAO[T, P]) DeleteByID(ctx context.Context, id uint64) error {
	if d.DB == nil {
		return ErrDBNil
	}

	return d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := d.Settings.WithTx(tx).DeleteAll(ctx, id); err != nil {
			return err
		}

		res := tx.Where(d.KeyColumn+" = ?", id).Delete(P(new(T)))
		if res.Error != nil {
			return fmt.Errorf("delete %s: %w", d.Schema.Name, res.Error)
		}

		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		return nil
	})
}

// Count returns the number of rows matching scope.
func (d *SchemaDAO[T, P]) Count(ctx context.Context, scope Scope) (int64, error) {
	if d.DB == nil {
		return 0, ErrDBNil
	}

	q := d.DB.WithContext(ctx).Model(P(new(T)))
	if scope != nil {
		q = q.Scopes(scope)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", d.Schema.Name, err)
	}

	return n, nil
}

// List returns one page of entities matching scope, with their settings loaded.
func (d *SchemaDAO[T, P]) List(ctx context.Context, scope Scope, paging Paging) ([]*dataobject.DataObject, error) {
	if d.DB == nil {
		return nil, ErrDBNil
	}

	q := d.DB.WithContext(ctx).Model(P(new(T)))
	if scope != nil {
		q = q.Scopes(scope)
	}

	var rows []T
	if err := q.Scopes(paging.Scope).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list %s: %w", d.Schema.Name, err)
	}

	ids := make([]uint64, len(rows))
	for i := range rows {
		ids[i] = P(&rows[i]).GetID()
	}

	settings, err := d.Settings.Load(ctx, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]*dataobject.DataObject, len(rows))
	for i := range rows {
		row := P(&rows[i])
		out[i] = d.FromRow(row, settings[row.GetID()])
	}

	return out, nil
}

// settingProps returns the schema props of obj stored as settings.
func (d *SchemaDAO[T, P]) settingProps(obj *dataobject.DataObject) []string {
	var names []string

	for _, name := range d.Schema.PropertyNames() {
		if d.Column(name) == "" && obj.Has(name) {
			names = append(names, name)
		}
	}

	return names
}
