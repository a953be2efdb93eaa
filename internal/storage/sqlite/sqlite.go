// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// Pragmas applied to every pooled connection. busy_timeout lets
// concurrent writers wait for the lock instead of failing with
// SQLITE_BUSY.
const dsnPragmas = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	clock clock.Clock
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
// clk stamps created_at/updated_at columns; nil means the real clock.
func New(dbPath string, clk clock.Clock) (*SQLiteStore, error) {
	if clk == nil {
		clk = clock.Real()
	}

	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, clock: clk}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) now() int64 {
	return s.clock.Now().Unix()
}
