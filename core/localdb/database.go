package localdb

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the local SQLite mirror database.
// It returns a *gorm.DB handle or an error if the file cannot be opened.
func Connect(cfg Config) (*gorm.DB, error) {
	path := cfg.Path
	if path == "" {
		path = "membersync.db"
	}

	// busy_timeout keeps concurrent readers (the HTTP observers) from failing
	// while a run holds a write transaction.
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, cfg.BusyTimeoutMillis())

	// Suppress GORM logging; the application logger reports at a higher level.
	// TranslateError maps driver unique-constraint failures onto
	// gorm.ErrDuplicatedKey, which the reconciler relies on for its
	// insert-then-update fallback.
	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// SQLite serializes writers; a single open connection avoids lock
	// contention between the run loop and the HTTP observers.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
