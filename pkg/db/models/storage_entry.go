package models

import "time"

// StorageEntry is one namespaced key/value pair of session storage.
type StorageEntry struct {
	Namespace string    `gorm:"column:namespace;primaryKey;size:255"`
	Key       string    `gorm:"column:key;primaryKey;size:255"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (StorageEntry) TableName() string {
	return "storage_entries"
}
