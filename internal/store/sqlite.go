package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the single-node durable store.
type SQLiteStore struct {
	sqlStore
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database at dbPath and ensures the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL keeps readers in other processes from blocking the supervisor's writes.
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &SQLiteStore{sqlStore{db: db, q: sqlQueries{
		getLedger: `SELECT name, crash_count, health_score, chronic_issue, last_updated
			FROM health_ledger WHERE name = ?`,
		upsertLedger: `INSERT INTO health_ledger (name, crash_count, health_score, chronic_issue, last_updated)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				crash_count = excluded.crash_count,
				health_score = excluded.health_score,
				chronic_issue = excluded.chronic_issue,
				last_updated = excluded.last_updated`,
		listLedger: `SELECT name, crash_count, health_score, chronic_issue, last_updated
			FROM health_ledger ORDER BY name`,
		appendAudit: `INSERT INTO audit_log (id, source, content, category, severity_weight, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
		listAudit: `SELECT id, source, content, category, severity_weight, created_at
			FROM audit_log ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		appendEvent: `INSERT INTO events (id, source, severity, message, created_at)
			VALUES (?, ?, ?, ?, ?)`,
		countErrors: `SELECT source, COUNT(*) FROM events
			WHERE severity IN (?, ?) AND created_at >= ?
			GROUP BY source`,
		pruneEvents: `DELETE FROM events WHERE created_at < ?`,
	}}}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS health_ledger (
		name TEXT PRIMARY KEY,
		crash_count INTEGER NOT NULL DEFAULT 0,
		health_score INTEGER NOT NULL DEFAULT 100,
		chronic_issue BOOLEAN NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		severity_weight INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_source_severity ON events(source, severity);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
