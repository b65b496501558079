package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// sqlQueries holds the dialect specific statements of a SQL backend.
type sqlQueries struct {
	getLedger    string
	upsertLedger string
	listLedger   string
	appendAudit  string
	listAudit    string
	appendEvent  string
	countErrors  string
	pruneEvents  string
}

// sqlStore implements Store on top of database/sql. Timestamps are stored as
// unix nanoseconds so range queries behave the same on every dialect.
type sqlStore struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlStore) GetLedgerEntry(ctx context.Context, name string) (types.LedgerEntry, error) {
	var (
		entry   types.LedgerEntry
		updated int64
	)
	err := s.db.QueryRowContext(ctx, s.q.getLedger, name).
		Scan(&entry.Name, &entry.CrashCount, &entry.HealthScore, &entry.ChronicIssue, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return types.LedgerEntry{}, ErrNotFound
	}
	if err != nil {
		return types.LedgerEntry{}, fmt.Errorf("failed to read ledger entry %s: %w", name, err)
	}
	entry.LastUpdated = fromNanos(updated)
	return entry, nil
}

func (s *sqlStore) UpsertLedgerEntry(ctx context.Context, entry types.LedgerEntry) error {
	_, err := s.db.ExecContext(ctx, s.q.upsertLedger,
		entry.Name, entry.CrashCount, entry.HealthScore, entry.ChronicIssue, toNanos(entry.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to write ledger entry %s: %w", entry.Name, err)
	}
	return nil
}

func (s *sqlStore) ListLedgerEntries(ctx context.Context) ([]types.LedgerEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.q.listLedger)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer rows.Close()

	entries := []types.LedgerEntry{}
	for rows.Next() {
		var (
			entry   types.LedgerEntry
			updated int64
		)
		if err := rows.Scan(&entry.Name, &entry.CrashCount, &entry.HealthScore, &entry.ChronicIssue, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entry.LastUpdated = fromNanos(updated)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *sqlStore) AppendAudit(ctx context.Context, rec types.AuditRecord) error {
	_, err := s.db.ExecContext(ctx, s.q.appendAudit,
		rec.ID, rec.Source, rec.Content, rec.Category, rec.SeverityWeight, toNanos(rec.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

func (s *sqlStore) ListAudit(ctx context.Context, limit int) ([]types.AuditRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, s.q.listAudit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer rows.Close()

	records := []types.AuditRecord{}
	for rows.Next() {
		var (
			rec types.AuditRecord
			ts  int64
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Content, &rec.Category, &rec.SeverityWeight, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}
		rec.Timestamp = fromNanos(ts)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *sqlStore) AppendEvent(ctx context.Context, ev types.Event) error {
	_, err := s.db.ExecContext(ctx, s.q.appendEvent,
		ev.ID, ev.Source, string(ev.Severity), ev.Message, toNanos(ev.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (s *sqlStore) CountErrorsBySource(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, s.q.countErrors,
		string(types.SeverityError), string(types.SeverityCritical), toNanos(since))
	if err != nil {
		return nil, fmt.Errorf("failed to count errors: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			source string
			count  int
		)
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan error count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

func (s *sqlStore) PruneEvents(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q.pruneEvents, toNanos(before))
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
