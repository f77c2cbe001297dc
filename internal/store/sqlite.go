package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = "2006-01-02 15:04:05"

// querier is satisfied by both *sql.DB and *sql.Tx so the same query
// code serves plain calls and transactional views.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// SQLiteStore is the SQLite-backed Store. Entity ids are AUTOINCREMENT
// primary keys, so they are monotonically increasing and never reused.
type SQLiteStore struct {
	db *sql.DB
	q  querier

	// now is swappable in tests.
	now func() time.Time
}

// Open creates (or opens) the database at path and applies the schema.
// Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLiteStore, error) {
	if err := ensureDirectory(path); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", path, err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Every pooled connection to :memory: would be a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// WAL keeps concurrent ingestion for different hostnames from
	// blocking readers.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	s := &SQLiteStore{db: db, q: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for callers that need raw SQL.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Transact runs fn with a store view bound to one transaction, so the
// find-or-create-device-then-insert-report sequence is atomic: readers
// never observe a report without its owning device.
func (s *SQLiteStore) Transact(fn func(Store) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	view := &SQLiteStore{db: s.db, q: tx, now: s.now}
	if err := fn(view); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func ensureDirectory(path string) error {
	if path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}
	return nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hostname TEXT NOT NULL UNIQUE,
		ip TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT 'unknown',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS backup_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER NOT NULL REFERENCES devices(id),
		status TEXT NOT NULL,
		time DATETIME NOT NULL,
		size TEXT NOT NULL DEFAULT '',
		size_bytes INTEGER NOT NULL DEFAULT 0,
		duration INTEGER NOT NULL DEFAULT 0,
		job_name TEXT NOT NULL DEFAULT '',
		error_message TEXT NOT NULL DEFAULT '',
		file_count INTEGER NOT NULL DEFAULT 0,
		source_path TEXT NOT NULL DEFAULT '',
		destination_path TEXT NOT NULL DEFAULT '',
		compression_ratio INTEGER NOT NULL DEFAULT 0,
		changed_files INTEGER NOT NULL DEFAULT 0,
		deleted_files INTEGER NOT NULL DEFAULT 0,
		added_files INTEGER NOT NULL DEFAULT 0,
		modified_files INTEGER NOT NULL DEFAULT 0,
		examining_files INTEGER NOT NULL DEFAULT 0,
		was_verified INTEGER NOT NULL DEFAULT 0,
		verification_result TEXT NOT NULL DEFAULT '',
		verification_errors TEXT NOT NULL DEFAULT '',
		last_verification DATETIME,
		metadata JSON NOT NULL DEFAULT '{}'
	);
	CREATE INDEX IF NOT EXISTS idx_reports_device ON backup_reports(device_id);
	CREATE INDEX IF NOT EXISTS idx_reports_time ON backup_reports(time);
	CREATE INDEX IF NOT EXISTS idx_reports_status ON backup_reports(status);

	CREATE TABLE IF NOT EXISTS alerts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id INTEGER REFERENCES devices(id),
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		severity TEXT NOT NULL,
		time DATETIME NOT NULL,
		is_read INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_time ON alerts(time);

	CREATE TABLE IF NOT EXISTS api_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		device_id INTEGER REFERENCES devices(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		expires_at DATETIME,
		last_used DATETIME,
		is_active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'viewer',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	CREATE TABLE IF NOT EXISTS notification_services (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		service_type TEXT NOT NULL,
		config_json TEXT NOT NULL DEFAULT '{}',
		enabled INTEGER NOT NULL DEFAULT 1,
		notify_on_error INTEGER NOT NULL DEFAULT 1,
		notify_on_warning INTEGER NOT NULL DEFAULT 1,
		notify_on_info INTEGER NOT NULL DEFAULT 0,
		cooldown_secs INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS notification_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		service_id INTEGER NOT NULL,
		event_type TEXT NOT NULL,
		hostname TEXT NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		status TEXT NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`

	if _, err := s.q.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// ─── Scan helpers ────────────────────────────────────────────────────────────

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeFormat, s); err == nil {
		return t.UTC()
	}
	// CURRENT_TIMESTAMP defaults may carry fractional seconds.
	if t, err := time.Parse("2006-01-02 15:04:05.999999999", s); err == nil {
		return t.UTC()
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t.UTC()
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
