package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore lets several supervisors (one per host) share a ledger database.
// Each supervisor still owns the rows of its own sources.
type PostgresStore struct {
	sqlStore
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects using a lib/pq connection string and ensures the schema exists.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres store requires a connection string")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{sqlStore{db: db, q: sqlQueries{
		getLedger: `SELECT name, crash_count, health_score, chronic_issue, last_updated
			FROM health_ledger WHERE name = $1`,
		upsertLedger: `INSERT INTO health_ledger (name, crash_count, health_score, chronic_issue, last_updated)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (name) DO UPDATE SET
				crash_count = EXCLUDED.crash_count,
				health_score = EXCLUDED.health_score,
				chronic_issue = EXCLUDED.chronic_issue,
				last_updated = EXCLUDED.last_updated`,
		listLedger: `SELECT name, crash_count, health_score, chronic_issue, last_updated
			FROM health_ledger ORDER BY name`,
		appendAudit: `INSERT INTO audit_log (id, source, content, category, severity_weight, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
		// LIMIT ALL when $1 is negative
		listAudit: `SELECT id, source, content, category, severity_weight, created_at
			FROM audit_log ORDER BY created_at DESC, seq DESC
			LIMIT CASE WHEN $1::bigint < 0 THEN NULL ELSE $1::bigint END`,
		appendEvent: `INSERT INTO events (id, source, severity, message, created_at)
			VALUES ($1, $2, $3, $4, $5)`,
		countErrors: `SELECT source, COUNT(*) FROM events
			WHERE severity IN ($1, $2) AND created_at >= $3
			GROUP BY source`,
		pruneEvents: `DELETE FROM events WHERE created_at < $1`,
	}}}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS health_ledger (
		name TEXT PRIMARY KEY,
		crash_count INTEGER NOT NULL DEFAULT 0,
		health_score INTEGER NOT NULL DEFAULT 100,
		chronic_issue BOOLEAN NOT NULL DEFAULT FALSE,
		last_updated BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		seq BIGSERIAL,
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		severity_weight INTEGER NOT NULL,
		created_at BIGINT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT,
		created_at BIGINT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_created ON events(created_at);
	CREATE INDEX IF NOT EXISTS idx_events_source_severity ON events(source, severity);
	CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}
