package audit_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/api/types"
	. "github.com/masa-finance/liveness-supervisor/internal/audit"
	"github.com/masa-finance/liveness-supervisor/internal/store"
)

type failingBackend struct {
	panics bool
}

func (f failingBackend) AppendAudit(context.Context, types.AuditRecord) error {
	if f.panics {
		panic("disk on fire")
	}
	return errors.New("write refused")
}

func (f failingBackend) ListAudit(context.Context, int) ([]types.AuditRecord, error) {
	return nil, nil
}

var _ = Describe("Writer", func() {
	now := time.Date(2025, 5, 5, 5, 5, 5, 0, time.UTC)
	clock := func() time.Time { return now }

	It("should append a complete record", func() {
		backend := store.NewMemoryStore()
		w := NewWriter(backend, clock)

		w.Write("supervisor.heartbeat", "trader silent", "distress", 9)

		records, err := backend.ListAudit(context.Background(), 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].ID).NotTo(BeEmpty())
		Expect(records[0].Source).To(Equal("supervisor.heartbeat"))
		Expect(records[0].Category).To(Equal("distress"))
		Expect(records[0].SeverityWeight).To(Equal(9))
		Expect(records[0].Timestamp).To(Equal(now))
	})

	It("should swallow backend errors", func() {
		w := NewWriter(failingBackend{}, clock)
		Expect(func() { w.Write("s", "c", "cat", 1) }).NotTo(Panic())
	})

	It("should swallow backend panics", func() {
		w := NewWriter(failingBackend{panics: true}, clock)
		Expect(func() { w.Write("s", "c", "cat", 1) }).NotTo(Panic())
	})

	It("should tolerate a missing backend and a nil writer", func() {
		Expect(func() { NewWriter(nil, nil).Write("s", "c", "cat", 1) }).NotTo(Panic())
		var w *Writer
		Expect(func() { w.Write("s", "c", "cat", 1) }).NotTo(Panic())
	})
})
