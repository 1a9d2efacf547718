// Package models contains database model definitions.
package models

// Setting represents a site-wide setting. Localised settings carry one row per locale,
// non-localised ones use the empty locale.
type Setting struct {
	ID     uint64 `gorm:"primaryKey"`
	Name   string `gorm:"size:255;not null;uniqueIndex:idx_site_setting"`
	Locale string `gorm:"size:28;not null;default:'';uniqueIndex:idx_site_setting"`
	Value  []byte `gorm:"type:blob"`
}

// TableName specifies the database table name for the Setting model.
func (Setting) TableName() string {
	return "site_settings"
}

// EntitySetting is the shape shared by every entity settings table:
// one sparse row per (entity id, locale, setting name).
type EntitySetting struct {
	Locale       string `gorm:"primaryKey;size:28;not null;default:''"`
	SettingName  string `gorm:"primaryKey;size:255;not null"`
	SettingValue string `gorm:"type:text"`
}
