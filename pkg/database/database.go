package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var db *gorm.DB

// Open connects to MySQL and keeps the handle as the process-wide
// database. Must be called once before Database().
func Open(dsn string) error {
	conn, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db = conn
	return nil
}

// Database returns the shared gorm handle.
func Database() *gorm.DB {
	return db
}

// SetDatabase replaces the shared handle. Used by tests and by callers
// that manage their own connection lifecycle.
func SetDatabase(conn *gorm.DB) {
	db = conn
}
