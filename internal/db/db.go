package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/oggyb/rotrade-sync/internal/config"
)

// NewDB opens the SQL backend selected by STORE_DRIVER using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DB.DSN)
	case config.DriverMySQL:
		dialector = mysql.Open(cfg.DB.DSN)
	default:
		return nil, fmt.Errorf("driver %q is not a sql driver", cfg.Store.Driver)
	}

	mode := logger.Warn
	if cfg.Log.Level == "debug" {
		mode = logger.Info // log SQL queries
	}
	return Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(mode)})
}

// Open connects with an explicit dialector and migrates the schema.
func Open(dialector gorm.Dialector, gcfg *gorm.Config) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	// AutoMigrate ensures schema is in sync with models.
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return db, nil
}
