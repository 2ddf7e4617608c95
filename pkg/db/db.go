package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Register driver
)

// DB wraps the sql.DB connection.
type DB struct {
	*sql.DB
}

// Init opens the database and runs migrations.
func Init(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=30000;"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	d := &DB{db}
	// Single connection: the pipeline and the API share one writer.
	db.SetMaxOpenConns(1)

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return d, nil
}

// PruneRuns removes pipeline run records older than the specified duration.
func (d *DB) PruneRuns(olderThan time.Duration) (int64, error) {
	deadline := time.Now().Add(-olderThan).UTC().Format("2006-01-02 15:04:05")
	res, err := d.Exec("DELETE FROM runs WHERE finished_at < ?", deadline)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (d *DB) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS voyages (
			id TEXT PRIMARY KEY,
			seq INTEGER,
			start_time TEXT,
			end_time TEXT,
			distance REAL,
			data BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_voyages_seq ON voyages(seq);`,
		`CREATE TABLE IF NOT EXISTS polar_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			twa REAL,
			stw REAL,
			sog REAL,
			tws REAL,
			aws REAL
		);`,
		`CREATE TABLE IF NOT EXISTS persistent_state (
			key TEXT PRIMARY KEY,
			value TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at DATETIME,
			finished_at DATETIME,
			files INTEGER,
			files_failed INTEGER,
			entries INTEGER,
			voyages INTEGER,
			polar_points INTEGER,
			error TEXT
		);`,
	}

	for _, q := range queries {
		if _, err := d.Exec(q); err != nil {
			return fmt.Errorf("exec error: %w query: %s", err, q)
		}
	}

	// Migration: add seq if the voyages table predates it
	var colCount int
	err := d.QueryRow("SELECT count(*) FROM pragma_table_info('voyages') WHERE name='seq'").Scan(&colCount)
	if err == nil && colCount == 0 {
		if _, err := d.Exec("ALTER TABLE voyages ADD COLUMN seq INTEGER"); err != nil {
			return fmt.Errorf("failed to add seq column: %w", err)
		}
	}

	return nil
}
