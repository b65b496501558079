package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// MemoryStore keeps everything in process memory. Used in tests and when no
// durable backend is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	ledger map[string]types.LedgerEntry
	audit  []types.AuditRecord
	events []types.Event
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledger: make(map[string]types.LedgerEntry),
	}
}

func (m *MemoryStore) GetLedgerEntry(_ context.Context, name string) (types.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.ledger[name]
	if !exists {
		return types.LedgerEntry{}, ErrNotFound
	}
	return entry, nil
}

func (m *MemoryStore) UpsertLedgerEntry(_ context.Context, entry types.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger[entry.Name] = entry
	return nil
}

func (m *MemoryStore) ListLedgerEntries(_ context.Context) ([]types.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]types.LedgerEntry, 0, len(m.ledger))
	for _, entry := range m.ledger {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *MemoryStore) AppendAudit(_ context.Context, rec types.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, rec)
	return nil
}

// ListAudit returns the newest records first. A limit <= 0 returns everything.
func (m *MemoryStore) ListAudit(_ context.Context, limit int) ([]types.AuditRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := len(m.audit)
	if limit > 0 && limit < n {
		n = limit
	}
	records := make([]types.AuditRecord, 0, n)
	for i := len(m.audit) - 1; i >= 0 && len(records) < n; i-- {
		records = append(records, m.audit[i])
	}
	return records, nil
}

func (m *MemoryStore) AppendEvent(_ context.Context, ev types.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *MemoryStore) CountErrorsBySource(_ context.Context, since time.Time) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counts := make(map[string]int)
	for _, ev := range m.events {
		if ev.Severity.IsFailure() && !ev.Timestamp.Before(since) {
			counts[ev.Source]++
		}
	}
	return counts, nil
}

func (m *MemoryStore) PruneEvents(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.events[:0]
	for _, ev := range m.events {
		if !ev.Timestamp.Before(before) {
			kept = append(kept, ev)
		}
	}
	removed := len(m.events) - len(kept)
	m.events = kept
	return removed, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
