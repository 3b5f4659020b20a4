package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Reset deletes every entry whose key starts with prefix. An empty prefix
// clears the whole table.
//
// Compatible with both MySQL and SQLite.
func Reset(db *gorm.DB, prefix string) (int64, error) {
	q := db.Session(&gorm.Session{AllowGlobalUpdate: true})
	if prefix != "" {
		q = q.Where("SUBSTR(entry_key, 1, ?) = ?", len(prefix), prefix)
	}
	res := q.Delete(&Entry{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clear store entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}
