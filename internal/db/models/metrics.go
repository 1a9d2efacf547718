package models

import "time"

// Assoc types for usage events.
const (
	AssocTypeContext        = 256
	AssocTypeSubmission     = 1048585
	AssocTypeSubmissionFile = 515
)

// UsageStatsTemporaryRecord is one usage event loaded from a log file, kept until aggregated.
type UsageStatsTemporaryRecord struct {
	ID               uint64    `gorm:"primaryKey"`
	Date             time.Time `gorm:"not null"`
	IP               string    `gorm:"column:ip;size:255;not null"`
	UserAgent        string    `gorm:"size:255"`
	LineNumber       int       `gorm:"not null"`
	ContextID        uint64    `gorm:"not null"`
	SubmissionID     *uint64
	RepresentationID *uint64
	AssocType        int    `gorm:"not null"`
	FileType         int    `gorm:"default:0"`
	Country          string `gorm:"size:2"`
	LoadID           string `gorm:"size:255;not null;index"`
}

// TableName specifies the database table name for the UsageStatsTemporaryRecord model.
func (UsageStatsTemporaryRecord) TableName() string {
	return "usage_stats_temporary_records"
}

// MetricsSubmission is a daily aggregate of submission views and downloads.
type MetricsSubmission struct {
	ID           uint64    `gorm:"primaryKey"`
	LoadID       string    `gorm:"size:255;not null;index"`
	ContextID    uint64    `gorm:"not null;index"`
	SubmissionID uint64    `gorm:"not null;index"`
	AssocType    int       `gorm:"not null"`
	Date         time.Time `gorm:"type:date;not null"`
	Metric       int64     `gorm:"not null"`
}

// TableName specifies the database table name for the MetricsSubmission model.
func (MetricsSubmission) TableName() string {
	return "metrics_submission"
}

// MetricsContext is a daily aggregate of context index page views.
type MetricsContext struct {
	ID        uint64    `gorm:"primaryKey"`
	LoadID    string    `gorm:"size:255;not null;index"`
	ContextID uint64    `gorm:"not null;index"`
	Date      time.Time `gorm:"type:date;not null"`
	Metric    int64     `gorm:"not null"`
}

// TableName specifies the database table name for the MetricsContext model.
func (MetricsContext) TableName() string {
	return "metrics_context"
}
