package models

import "time"

// Publication statuses.
const (
	StatusQueued    = 1
	StatusPublished = 3
	StatusDeclined  = 4
	StatusScheduled = 5
)

// Publication is one version of a submission.
type Publication struct {
	ID               uint64     `gorm:"column:publication_id;primaryKey"`
	SubmissionID     uint64     `gorm:"not null;index"`
	ContextID        uint64     `gorm:"not null;index"`
	Status           int        `gorm:"not null;default:1"`
	DatePublished    *time.Time `gorm:"type:date"`
	LastModified     *time.Time
	PrimaryContactID *uint64
	Seq              float64 `gorm:"not null;default:0"`
	Version          int     `gorm:"not null;default:1"`
	URLPath          string  `gorm:"column:url_path;size:64"`
	DoiID            *uint64 `gorm:"index"`
}

// TableName specifies the database table name for the Publication model.
func (Publication) TableName() string {
	return "publications"
}

// PublicationSetting holds the sparse settings of a publication.
type PublicationSetting struct {
	PublicationID uint64 `gorm:"primaryKey;autoIncrement:false"`
	EntitySetting
}

// TableName specifies the database table name for the PublicationSetting model.
func (PublicationSetting) TableName() string {
	return "publication_settings"
}
