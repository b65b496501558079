package types

import "time"

// MaxHealthScore is the score every source starts with.
const MaxHealthScore = 100

// LedgerEntry is the durable per-source crash history.
type LedgerEntry struct {
	Name         string    `json:"name"`
	CrashCount   int       `json:"crash_count"`
	HealthScore  int       `json:"health_score"`
	ChronicIssue bool      `json:"chronic_issue_flag"`
	LastUpdated  time.Time `json:"last_updated"`
}

// NewLedgerEntry returns a pristine entry for a source seen crashing for the first time.
func NewLedgerEntry(name string) LedgerEntry {
	return LedgerEntry{Name: name, HealthScore: MaxHealthScore}
}

// AuditRecord is an append-only trail entry written by the supervisor.
type AuditRecord struct {
	ID             string    `json:"id"`
	Source         string    `json:"source"`
	Content        string    `json:"content"`
	Category       string    `json:"category"`
	SeverityWeight int       `json:"severity_weight"`
	Timestamp      time.Time `json:"timestamp"`
}
