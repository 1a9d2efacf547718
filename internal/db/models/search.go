package models

import "time"

// SearchKeyword is one entry of the keyword dictionary.
type SearchKeyword struct {
	ID          uint64 `gorm:"column:keyword_id;primaryKey"`
	KeywordText string `gorm:"size:60;not null;uniqueIndex"`
}

// TableName specifies the database table name for the SearchKeyword model.
func (SearchKeyword) TableName() string {
	return "submission_search_keyword_list"
}

// SearchObject is one indexed field of a submission (title, abstract, ...).
type SearchObject struct {
	ID            uint64 `gorm:"column:object_id;primaryKey"`
	SubmissionID  uint64 `gorm:"not null;index"`
	ContextID     uint64 `gorm:"not null;index"`
	Type          int    `gorm:"not null"`
	AssocID       uint64 `gorm:"not null;default:0"`
	DatePublished *time.Time
}

// TableName specifies the database table name for the SearchObject model.
func (SearchObject) TableName() string {
	return "submission_search_objects"
}

// SearchObjectKeyword links a keyword to the position it appears at in an object.
type SearchObjectKeyword struct {
	ObjectID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	Pos       int    `gorm:"primaryKey;autoIncrement:false"`
	KeywordID uint64 `gorm:"not null;index"`
}

// TableName specifies the database table name for the SearchObjectKeyword model.
func (SearchObjectKeyword) TableName() string {
	return "submission_search_object_keywords"
}

// SearchDocument holds the flattened text used by the database fulltext engine.
type SearchDocument struct {
	SubmissionID  uint64 `gorm:"primaryKey;autoIncrement:false"`
	ContextID     uint64 `gorm:"not null;index"`
	Title         string `gorm:"type:text"`
	Authors       string `gorm:"type:text"`
	Body          string `gorm:"type:text"`
	DatePublished *time.Time
}

// TableName specifies the database table name for the SearchDocument model.
func (SearchDocument) TableName() string {
	return "search_documents"
}
