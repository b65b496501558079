package store_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/api/types"
	. "github.com/masa-finance/liveness-supervisor/internal/store"
)

func event(source string, severity types.Severity, at time.Time) types.Event {
	return types.Event{
		ID:        uuid.New().String(),
		Source:    source,
		Severity:  severity,
		Message:   "boom",
		Timestamp: at,
	}
}

// describeStore runs the same behaviour against every backend.
func describeStore(name string, open func() Store) {
	Describe(name, func() {
		var (
			s   Store
			ctx context.Context
			now time.Time
		)

		BeforeEach(func() {
			ctx = context.Background()
			now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
			s = open()
		})

		AfterEach(func() {
			Expect(s.Close()).To(Succeed())
		})

		Describe("Health ledger", func() {
			It("should report missing entries as ErrNotFound", func() {
				_, err := s.GetLedgerEntry(ctx, "nobody")
				Expect(err).To(MatchError(ErrNotFound))
			})

			It("should insert and update entries", func() {
				entry := types.NewLedgerEntry("scraper")
				entry.CrashCount = 3
				entry.HealthScore = 70
				entry.ChronicIssue = true
				entry.LastUpdated = now
				Expect(s.UpsertLedgerEntry(ctx, entry)).To(Succeed())

				entry.CrashCount = 8
				entry.HealthScore = 20
				entry.LastUpdated = now.Add(time.Minute)
				Expect(s.UpsertLedgerEntry(ctx, entry)).To(Succeed())

				got, err := s.GetLedgerEntry(ctx, "scraper")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.CrashCount).To(Equal(8))
				Expect(got.HealthScore).To(Equal(20))
				Expect(got.ChronicIssue).To(BeTrue())
				Expect(got.LastUpdated).To(BeTemporally("==", now.Add(time.Minute)))
			})

			It("should list entries ordered by name", func() {
				for _, n := range []string{"b", "a", "c"} {
					e := types.NewLedgerEntry(n)
					e.LastUpdated = now
					Expect(s.UpsertLedgerEntry(ctx, e)).To(Succeed())
				}
				entries, err := s.ListLedgerEntries(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(entries).To(HaveLen(3))
				Expect(entries[0].Name).To(Equal("a"))
				Expect(entries[2].Name).To(Equal("c"))
			})
		})

		Describe("Audit trail", func() {
			It("should return the newest records first", func() {
				for i := 0; i < 5; i++ {
					Expect(s.AppendAudit(ctx, types.AuditRecord{
						ID:             uuid.New().String(),
						Source:         "supervisor",
						Content:        "entry",
						Category:       "test",
						SeverityWeight: i,
						Timestamp:      now.Add(time.Duration(i) * time.Second),
					})).To(Succeed())
				}

				records, err := s.ListAudit(ctx, 2)
				Expect(err).NotTo(HaveOccurred())
				Expect(records).To(HaveLen(2))
				Expect(records[0].SeverityWeight).To(Equal(4))
				Expect(records[1].SeverityWeight).To(Equal(3))

				all, err := s.ListAudit(ctx, 0)
				Expect(err).NotTo(HaveOccurred())
				Expect(all).To(HaveLen(5))
			})
		})

		Describe("Event log", func() {
			BeforeEach(func() {
				Expect(s.AppendEvent(ctx, event("feed", types.SeverityError, now.Add(-10*time.Minute)))).To(Succeed())
				Expect(s.AppendEvent(ctx, event("feed", types.SeverityError, now.Add(-time.Minute)))).To(Succeed())
				Expect(s.AppendEvent(ctx, event("feed", types.SeverityCritical, now))).To(Succeed())
				Expect(s.AppendEvent(ctx, event("feed", types.SeverityWarning, now))).To(Succeed())
				Expect(s.AppendEvent(ctx, event("report", types.SeverityError, now.Add(-2*time.Minute)))).To(Succeed())
				Expect(s.AppendEvent(ctx, event("quiet", types.SeverityInfo, now))).To(Succeed())
			})

			It("should count only error and critical events inside the window", func() {
				counts, err := s.CountErrorsBySource(ctx, now.Add(-5*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(counts).To(Equal(map[string]int{"feed": 2, "report": 1}))
			})

			It("should prune old events", func() {
				removed, err := s.PruneEvents(ctx, now.Add(-5*time.Minute))
				Expect(err).NotTo(HaveOccurred())
				Expect(removed).To(Equal(1))

				counts, err := s.CountErrorsBySource(ctx, time.Time{})
				Expect(err).NotTo(HaveOccurred())
				Expect(counts["feed"]).To(Equal(2))
			})
		})
	})
}

var _ = Describe("Stores", func() {
	describeStore("MemoryStore", func() Store {
		return NewMemoryStore()
	})

	describeStore("SQLiteStore", func() Store {
		s, err := NewSQLiteStore(filepath.Join(GinkgoT().TempDir(), "supervisor.db"))
		Expect(err).NotTo(HaveOccurred())
		return s
	})

})

var _ = Describe("PostgresStore", func() {
	It("should round-trip a ledger entry", func() {
		dsn := os.Getenv("POSTGRES_TEST_DSN")
		if dsn == "" {
			Skip("POSTGRES_TEST_DSN not set")
		}
		s, err := NewPostgresStore(dsn)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		e := types.NewLedgerEntry("pg-" + uuid.New().String())
		e.CrashCount = 4
		e.LastUpdated = time.Now()
		Expect(s.UpsertLedgerEntry(context.Background(), e)).To(Succeed())

		got, err := s.GetLedgerEntry(context.Background(), e.Name)
		Expect(err).NotTo(HaveOccurred())
		Expect(got.CrashCount).To(Equal(4))
	})

	It("should refuse an empty connection string", func() {
		_, err := NewPostgresStore("")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Open", func() {
	It("should default to the memory store", func() {
		s, err := Open("", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&MemoryStore{}))
	})

	It("should reject unknown drivers", func() {
		_, err := Open("cassandra", "")
		Expect(err).To(MatchError(ErrUnknownDriver))
	})

	It("should survive a reopen with sqlite", func() {
		path := filepath.Join(GinkgoT().TempDir(), "ledger.db")
		s, err := Open(DriverSQLite, path)
		Expect(err).NotTo(HaveOccurred())
		e := types.NewLedgerEntry("durable")
		e.HealthScore = 40
		e.LastUpdated = time.Now()
		Expect(s.UpsertLedgerEntry(context.Background(), e)).To(Succeed())
		Expect(s.Close()).To(Succeed())

		s, err = Open(DriverSQLite, path)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()
		got, err := s.GetLedgerEntry(context.Background(), "durable")
		Expect(err).NotTo(HaveOccurred())
		Expect(got.HealthScore).To(Equal(40))
	})
})
