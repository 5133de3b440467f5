// Package database stores web sessions and the record of every booking run
// in SQLite.
package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/omriShneor/room_booking_agent/internal/database/migrations"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

type DB struct {
	*sql.DB
}

// New opens the database file at path and brings its schema up to date
func New(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// each connection to an in-memory database sees its own empty schema
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database %s: %w", path, err)
	}
	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DB{db}, nil
}

// dsn turns on WAL and a busy timeout so background runs and HTTP handlers
// can write the attempts table at the same time
func dsn(path string) string {
	return path + "?_journal_mode=WAL&_busy_timeout=5000"
}
