package db

import (
	"time"
)

// Entry is one key of the persisted store.
//
// Fields:
//   - Key: namespaced store key, e.g. "rotrade:listings".
//   - Value: JSON document for the key.
//   - Revision: bumped on every write; compare-and-swap matches on it.
//   - UpdatedAt: last write time.
type Entry struct {
	Key       string    `gorm:"column:entry_key;primaryKey;size:191"`
	Value     string    `gorm:"type:longtext;not null"`
	Revision  int64     `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Entry) TableName() string { return "store_entries" }
