// Package dao maps schema described entities onto a primary table plus a sparse
// settings table.
//
// A settings table has one row per (entity id, locale, setting name). Non-localised
// settings use the empty locale. Empty values are never stored, so a missing row
// reads back as an absent property.
package dao

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested entity or setting does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDBNil is returned when the database connection is nil.
	ErrDBNil = errors.New("database connection is nil")
	// ErrSettingNameEmpty is returned when a setting name is empty.
	ErrSettingNameEmpty = errors.New("setting name cannot be empty")
	// ErrNotLocalized is returned when a localised update receives a value not keyed by locale.
	ErrNotLocalized = errors.New("localized value must be keyed by locale")
)

// Paging selects one page of a list. Pages are 1-based; PerPage 0 disables paging.
type Paging struct {
	Page    int
	PerPage int
}

// Offset returns the number of rows before the page.
func (p Paging) Offset() int {
	if p.PerPage <= 0 || p.Page <= 1 {
		return 0
	}

	return (p.Page - 1) * p.PerPage
}

// Scope applies the page as limit and offset.
func (p Paging) Scope(db *gorm.DB) *gorm.DB {
	if p.PerPage <= 0 {
		return db
	}

	return db.Limit(p.PerPage).Offset(p.Offset())
}

// Scope narrows a list query.
type Scope = func(*gorm.DB) *gorm.DB

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}

	return err
}
