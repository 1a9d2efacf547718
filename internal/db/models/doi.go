package models

import "time"

// DOI registration statuses.
const (
	DoiStatusUnregistered = 1
	DoiStatusSubmitted    = 2
	DoiStatusRegistered   = 3
	DoiStatusError        = 4
	DoiStatusStale        = 5
)

// Doi is a persistent identifier assigned to a publication.
type Doi struct {
	ID                 uint64 `gorm:"column:doi_id;primaryKey"`
	ContextID          uint64 `gorm:"not null;index"`
	Doi                string `gorm:"size:255;not null;uniqueIndex"`
	Status             int    `gorm:"not null;default:1"`
	RegistrationAgency string `gorm:"size:255"`
	ErrorMessage       string `gorm:"type:text"`
	DateRegistered     *time.Time
}

// TableName specifies the database table name for the Doi model.
func (Doi) TableName() string {
	return "dois"
}
