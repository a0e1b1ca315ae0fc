package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Statuses recorded for each removal attempt
const (
	StatusRemoved = "REMOVED"
	StatusError   = "ERROR"
)

// HistoryDB manages the SQLite database for removal history
type HistoryDB struct {
	db *sql.DB
}

// Record represents a single removal attempt made by a hook
type Record struct {
	ID           int64
	Timestamp    time.Time
	Hook         string
	Job          string
	Action       string // delete or empty
	Path         string
	ObjectType   string // file, directory or symlink
	Status       string
	ErrorMessage string
}

// NewHistoryDB creates a new database connection and initializes schema
func NewHistoryDB(dbPath string) (*HistoryDB, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	// _loc=auto enables automatic DATETIME parsing
	db, err := sql.Open("sqlite3", "file:"+dbPath+"?_loc=auto")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	// Executing a query makes SQLite create the file if it doesn't exist
	if _, err = db.Exec("SELECT 1"); err != nil {
		return nil, fmt.Errorf("failed to initialize database (check permissions on %s): %w", dbPath, err)
	}

	// Parallel test binaries may share one history file
	if _, err = db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if _, err = db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err = db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	hdb := &HistoryDB{db: db}
	if err = hdb.initSchema(); err != nil {
		return nil, err
	}
	return hdb, nil
}

// initSchema creates tables and indexes if they don't exist
func (d *HistoryDB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS removals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		hook TEXT NOT NULL,
		job TEXT NOT NULL,
		action TEXT NOT NULL,
		path TEXT NOT NULL,
		object_type TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_removals_timestamp ON removals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_removals_hook ON removals(hook);
	CREATE INDEX IF NOT EXISTS idx_removals_job ON removals(job);
	CREATE INDEX IF NOT EXISTS idx_removals_status ON removals(status);

	-- Metadata table for schema versioning
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := d.db.Exec(schema)
	return err
}

// RecordRemoval inserts a removal attempt into the database. A zero
// Timestamp is replaced with the current time.
func (d *HistoryDB) RecordRemoval(rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	if rec.Status == "" {
		rec.Status = StatusRemoved
	}

	_, err := d.db.Exec(`
	INSERT INTO removals (
		timestamp, hook, job, action, path, object_type, status, error_message
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Timestamp.UTC(),
		rec.Hook,
		rec.Job,
		rec.Action,
		rec.Path,
		rec.ObjectType,
		rec.Status,
		rec.ErrorMessage,
	)
	return err
}

// Close closes the database connection
func (d *HistoryDB) Close() error {
	return d.db.Close()
}

// Vacuum optimizes the database (run periodically)
func (d *HistoryDB) Vacuum() error {
	_, err := d.db.Exec("VACUUM")
	return err
}
