package models

// Journal is the primary table of a context (journal or press).
type Journal struct {
	ID            uint64  `gorm:"column:journal_id;primaryKey"`
	Path          string  `gorm:"size:32;not null;uniqueIndex"`
	Seq           float64 `gorm:"not null;default:0"`
	PrimaryLocale string  `gorm:"size:28;not null"`
	Enabled       bool    `gorm:"not null"`
}

// TableName specifies the database table name for the Journal model.
func (Journal) TableName() string {
	return "journals"
}

// JournalSetting holds the sparse settings of a journal.
type JournalSetting struct {
	JournalID uint64 `gorm:"primaryKey;autoIncrement:false"`
	EntitySetting
}

// TableName specifies the database table name for the JournalSetting model.
func (JournalSetting) TableName() string {
	return "journal_settings"
}
