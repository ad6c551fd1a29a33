package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Connect opens the store for normal read/write use. Foreign keys are
// enforced and WAL journaling enabled; a single connection keeps the
// single-writer discipline without application-level locking.
func Connect(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenReadOnly opens a store file without taking write locks. Used by the
// backup manager for integrity checks on live and snapshot files.
func OpenReadOnly(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store %s read-only: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}
