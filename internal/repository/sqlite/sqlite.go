/*
Package sqlite provides a SQLite-backed implementation of the repositories.

It is the single-node alternative to the PostgreSQL store: a scanning kiosk can
run with a local file and no database server. The schema mirrors the
PostgreSQL one; timestamps are stored as RFC 3339 text in UTC and dates as
YYYY-MM-DD.

The database is opened in WAL mode so readers never block the writer. Writes
are additionally serialized through a mutex, and record updates compare the
stored version before applying.

USAGE:

	store, err := sqlite.New("./data/attendance.db")
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

Use ":memory:" for a throwaway database.
*/
package sqlite

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store owns the connection shared by every repository of this package.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (creating if needed) the database at dbPath and migrates it.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		break1_minutes INTEGER NOT NULL DEFAULT 0,
		break2_minutes INTEGER NOT NULL DEFAULT 0,
		allow_combined_breaks BOOLEAN NOT NULL DEFAULT FALSE,
		-- comma list of day names, empty for every day
		work_days TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		shift_id TEXT REFERENCES shifts(id),
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- One record per employee and day
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		work_date TEXT NOT NULL,
		entry_at TEXT,
		break1_start_at TEXT,
		break1_end_at TEXT,
		break2_start_at TEXT,
		break2_end_at TEXT,
		exit_at TEXT,
		status TEXT NOT NULL DEFAULT 'ABSENT',
		notes TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (employee_id, work_date)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_records_work_date
		ON attendance_records(work_date);

	-- Append-only audit log of status overrides
	CREATE TABLE IF NOT EXISTS attendance_justifications (
		id TEXT PRIMARY KEY,
		attendance_id TEXT NOT NULL REFERENCES attendance_records(id) ON DELETE CASCADE,
		reason TEXT NOT NULL,
		approver_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_justifications_attendance
		ON attendance_justifications(attendance_id);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	// Databases created before working days were tracked.
	return s.addColumnIfMissing("shifts", "work_days", "TEXT NOT NULL DEFAULT ''")
}

func (s *Store) addColumnIfMissing(table, column, definition string) error {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid, notNull, pk int
			name, colType    string
			defaultValue     sql.NullString
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
