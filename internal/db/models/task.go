package models

import "time"

// ScheduledTask records when a registered task last completed.
type ScheduledTask struct {
	ClassName string `gorm:"primaryKey;size:255"`
	LastRun   *time.Time
}

// TableName specifies the database table name for the ScheduledTask model.
func (ScheduledTask) TableName() string {
	return "scheduled_tasks"
}
