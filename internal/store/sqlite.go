package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite keeps point sets and statistics in a local database file.
type SQLite struct {
	sqlStore
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS point_sets (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		points TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS statistics (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		run_id TEXT NOT NULL,
		algorithm TEXT NOT NULL,
		distance REAL NOT NULL,
		runtime_sec REAL NOT NULL,
		tour TEXT NOT NULL,
		point_count INTEGER NOT NULL,
		cancelled INTEGER NOT NULL,
		iterations INTEGER NOT NULL,
		system_info TEXT NOT NULL,
		created_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_statistics_algorithm ON statistics(algorithm, seq)`,
}

// OpenSQLite opens (and creates if needed) the database at dbPath.
// ":memory:" gives an in-memory database shared by the whole process.
func OpenSQLite(dbPath string) (*SQLite, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// shared cache so every pooled connection sees the same database
		connStr = "file::memory:?cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &SQLite{sqlStore{db: db, ph: question}}
	if err := s.exec(context.Background(), sqliteSchema); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
