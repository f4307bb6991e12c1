// Package db opens the Ferro database and keeps its schema current.
package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the configured database. Driver is "sqlite" (dsn is a
// file path, the default) or "mysql" (dsn is a full DSN with parseTime=true).
func Open(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	var (
		conn *gorm.DB
		err  error
	)
	switch driver {
	case "", "sqlite":
		conn, err = gorm.Open(sqlite.Open(dsn), cfg)
	case "mysql":
		conn, err = gorm.Open(mysql.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("db: connect (%s): %w", driver, err)
	}
	return conn, nil
}

// OpenMemory opens a throwaway in-memory sqlite database, used by tests
// and the backup verify path.
func OpenMemory() (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open memory: %w", err)
	}
	return conn, nil
}
