// Package audit is the best-effort adapter every supervisor component writes its
// trail through. A failing backend never affects the caller.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/store"
)

const defaultWriteTimeout = 5 * time.Second

// Writer appends audit records to a store.AuditStore.
type Writer struct {
	backend store.AuditStore
	now     func() time.Time
	timeout time.Duration
}

// NewWriter wraps backend. A nil backend turns every write into a debug log line.
func NewWriter(backend store.AuditStore, now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{
		backend: backend,
		now:     now,
		timeout: defaultWriteTimeout,
	}
}

// Write appends a record. Failures, including panics in the backend, are logged at
// debug level and swallowed.
func (w *Writer) Write(source, content, category string, severityWeight int) {
	if w == nil {
		return
	}

	rec := types.AuditRecord{
		ID:             uuid.New().String(),
		Source:         source,
		Content:        content,
		Category:       category,
		SeverityWeight: severityWeight,
		Timestamp:      w.now(),
	}

	if w.backend == nil {
		logrus.WithFields(logrus.Fields{"source": source, "category": category}).Debug(content)
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logrus.Debugf("Audit write panicked for %s/%s: %v", source, category, r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.backend.AppendAudit(ctx, rec); err != nil {
		logrus.Debugf("Audit write failed for %s/%s: %v", source, category, err)
	}
}
