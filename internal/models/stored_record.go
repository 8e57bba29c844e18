package models

import "time"

// StoredRecord is one keyed JSON blob. Each write replaces the whole value.
type StoredRecord struct {
	Key       string `gorm:"column:record_key;primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}
