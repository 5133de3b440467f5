// Package migrations versions the SQLite schema. Each migration runs in its
// own transaction together with the row that marks it applied.
package migrations

import (
	"database/sql"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Execer is what a migration step needs; both *sql.DB and *sql.Tx satisfy it
type Execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
}

type Migration struct {
	Version int
	Name    string
	Up      func(Execer) error
}

var registry []Migration

// Register is called from the init of each migration file
func Register(m Migration) {
	registry = append(registry, m)
}

// RunMigrations applies every registered migration newer than the schema
func RunMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	var current int
	if err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	sort.Slice(registry, func(i, j int) bool { return registry[i].Version < registry[j].Version })

	for _, m := range registry {
		if m.Version <= current {
			continue
		}
		if err := apply(db, m); err != nil {
			return err
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Migration applied")
	}
	return nil
}

func apply(db *sql.DB, m Migration) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer tx.Rollback()

	if err := m.Up(tx); err != nil {
		return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
	}
	return tx.Commit()
}

func execAll(db Execer, statements ...string) error {
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// columns lists the column names of table
func columns(db Execer, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var (
			cid, notnull, pk int
			name, ctype      string
			dflt             any
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

// AddColumnIfNotExists keeps column additions replayable against older files
func AddColumnIfNotExists(db Execer, table, column, def string) error {
	existing, err := columns(db, table)
	if err != nil {
		return err
	}
	if existing[column] {
		return nil
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, def))
	return err
}

func ColumnExists(db Execer, table, column string) (bool, error) {
	existing, err := columns(db, table)
	if err != nil {
		return false, err
	}
	return existing[column], nil
}
