package store

import (
	"context"
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// LedgerStore persists the per-source health ledger.
// The supervisor is the only writer; other processes may read.
type LedgerStore interface {
	GetLedgerEntry(ctx context.Context, name string) (types.LedgerEntry, error)
	UpsertLedgerEntry(ctx context.Context, entry types.LedgerEntry) error
	ListLedgerEntries(ctx context.Context) ([]types.LedgerEntry, error)
}

// AuditStore is the append-only audit trail.
type AuditStore interface {
	AppendAudit(ctx context.Context, rec types.AuditRecord) error
	ListAudit(ctx context.Context, limit int) ([]types.AuditRecord, error)
}

// EventLog is the shared structured event log the crash tracker reads from.
type EventLog interface {
	AppendEvent(ctx context.Context, ev types.Event) error
	// CountErrorsBySource counts error and critical events per source at or after since.
	CountErrorsBySource(ctx context.Context, since time.Time) (map[string]int, error)
	// PruneEvents removes events older than before and returns how many were removed.
	PruneEvents(ctx context.Context, before time.Time) (int, error)
}

// Store bundles every persistence concern. Memory, SQLite and PostgreSQL implement it.
type Store interface {
	LedgerStore
	AuditStore
	EventLog
	Close() error
}
