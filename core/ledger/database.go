package ledger

import (
	"fmt"
	"net/url"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open establishes a connection to the legacy MySQL ledger database.
//
// The legacy server enforces a very small connection cap, so callers open a
// connection per logical operation and must Close it when done rather than
// holding a pooled handle for the process lifetime.
func Open(cfg Config) (*gorm.DB, error) {
	// The mysql driver documentation requires special characters in the
	// password to be URL encoded.
	userInfo := url.UserPassword(cfg.User, cfg.Password).String()

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 30
	}

	// timeout: connection setup; readTimeout/writeTimeout: I/O deadlines.
	dsn := fmt.Sprintf("%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		userInfo, cfg.Host, cfg.Port, cfg.Name, timeout, timeout, timeout)

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ledger database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// One logical operation, one connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Duration(timeout) * time.Second)

	return db, nil
}

// Close releases the underlying connection of a handle returned by Open.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ExecUpdate runs a data-modifying statement on an open handle and returns the
// number of affected rows.
func ExecUpdate(db *gorm.DB, sql string, args ...any) (int64, error) {
	res := db.Exec(sql, args...)
	if res.Error != nil {
		return 0, fmt.Errorf("ledger update failed: %w", res.Error)
	}
	return res.RowsAffected, nil
}
