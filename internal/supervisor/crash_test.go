package supervisor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/store"
	. "github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

var _ = Describe("Crash tracking", func() {
	var (
		clock    *fakeClock
		st       *store.MemoryStore
		rec      *recordingMetrics
		sup      *Supervisor
		ctx      context.Context
		disabled []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock()
		st = store.NewMemoryStore()
		rec = &recordingMetrics{}
		disabled = nil
		sup = New(Config{ExcludedSources: []string{"chatty"}},
			WithClock(clock.Now),
			WithStore(st),
			WithMetrics(rec),
			WithDisableHook(func(source string) { disabled = append(disabled, source) }),
		)
	})

	ledger := func(name string) types.LedgerEntry {
		entry, err := st.GetLedgerEntry(ctx, name)
		Expect(err).NotTo(HaveOccurred())
		return entry
	}

	DescribeTable("tier boundaries",
		func(count int, tiers []string, isDisabled bool) {
			appendErrors(st, "scraper", count, clock.Now())

			Expect(sup.Scan(ctx)).To(Succeed())
			Expect(rec.Tiers()).To(Equal(tiers))
			if isDisabled {
				Expect(sup.DisabledSources()).To(Equal([]string{"scraper"}))
			} else {
				Expect(sup.DisabledSources()).To(BeEmpty())
			}
		},
		Entry("2 errors: nothing", 2, []string(nil), false),
		Entry("3 errors: advisory", 3, []string{"advisory"}, false),
		Entry("5 errors: degraded", 5, []string{"degraded"}, false),
		Entry("10 errors: disabled", 10, []string{"disabled"}, true),
	)

	It("should only signal a disabled source once and never reverse it", func() {
		appendErrors(st, "scraper", 10, clock.Now())

		Expect(sup.Scan(ctx)).To(Succeed())
		clock.Advance(30 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(countCategory(st, CategorySourceDisabled)).To(Equal(1))
		Expect(disabled).To(Equal([]string{"scraper"}))

		clock.Advance(10 * time.Minute)
		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(sup.DisabledSources()).To(Equal([]string{"scraper"}))
		Expect(sup.Status().DisabledSources).To(Equal([]string{"scraper"}))
	})

	It("should log degraded sources on every cycle", func() {
		appendErrors(st, "scraper", 6, clock.Now())

		for i := 0; i < 3; i++ {
			clock.Advance(10 * time.Second)
			Expect(sup.Scan(ctx)).To(Succeed())
		}
		Expect(rec.Tiers()).To(Equal([]string{"degraded", "degraded", "degraded"}))
	})

	It("should only count errors inside the trailing window", func() {
		appendErrors(st, "scraper", 4, clock.Now())
		clock.Advance(6 * time.Minute)
		appendErrors(st, "scraper", 3, clock.Now())

		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(rec.Tiers()).To(Equal([]string{"advisory"}))
	})

	It("should ignore warnings and lower severities", func() {
		for i := 0; i < 12; i++ {
			Expect(st.AppendEvent(ctx, types.Event{Source: "scraper", Severity: types.SeverityWarning, Timestamp: clock.Now()})).To(Succeed())
		}
		Expect(sup.Scan(ctx)).To(Succeed())

		_, err := st.GetLedgerEntry(ctx, "scraper")
		Expect(err).To(MatchError(store.ErrNotFound))
	})

	It("should ignore its own sources and excluded sources", func() {
		appendErrors(st, SourceSupervisor, 20, clock.Now())
		appendErrors(st, SourceSupervisor+".heartbeat", 20, clock.Now())
		appendErrors(st, "chatty", 20, clock.Now())

		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(rec.Tiers()).To(BeEmpty())
		entries, err := st.ListLedgerEntries(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(BeEmpty())
	})

	Describe("health ledger", func() {
		It("should create an entry and apply the penalty", func() {
			appendErrors(st, "scraper", 2, clock.Now())
			Expect(sup.Scan(ctx)).To(Succeed())

			entry := ledger("scraper")
			Expect(entry.HealthScore).To(Equal(80))
			Expect(entry.CrashCount).To(Equal(2))
			Expect(entry.ChronicIssue).To(BeFalse())
			Expect(entry.LastUpdated).To(Equal(clock.Now()))
		})

		It("should flag chronic issues and keep the flag", func() {
			appendErrors(st, "scraper", 3, clock.Now())
			Expect(sup.Scan(ctx)).To(Succeed())
			Expect(ledger("scraper").ChronicIssue).To(BeTrue())

			clock.Advance(10 * time.Minute)
			appendErrors(st, "scraper", 1, clock.Now())
			Expect(sup.Scan(ctx)).To(Succeed())

			entry := ledger("scraper")
			Expect(entry.ChronicIssue).To(BeTrue())
			Expect(entry.HealthScore).To(Equal(60))
			Expect(entry.CrashCount).To(Equal(4))
		})

		It("should cap the penalty and never go below zero", func() {
			appendErrors(st, "scraper", 15, clock.Now())
			Expect(sup.Scan(ctx)).To(Succeed())
			Expect(ledger("scraper").HealthScore).To(BeZero())

			clock.Advance(time.Minute)
			Expect(sup.Scan(ctx)).To(Succeed())
			Expect(ledger("scraper").HealthScore).To(BeZero())
			Expect(ledger("scraper").CrashCount).To(Equal(30))
		})

		It("should leave entries alone when nothing failed", func() {
			Expect(st.UpsertLedgerEntry(ctx, types.LedgerEntry{Name: "scraper", HealthScore: 42})).To(Succeed())
			Expect(sup.Scan(ctx)).To(Succeed())
			Expect(ledger("scraper").HealthScore).To(Equal(42))
		})
	})

	It("should prune events past the retention", func() {
		appendErrors(st, "scraper", 1, clock.Now())
		clock.Advance(25 * time.Hour)
		Expect(sup.Scan(ctx)).To(Succeed())

		counts, err := st.CountErrorsBySource(ctx, time.Time{})
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(BeEmpty())
	})

	It("should report event log failures as probe failures", func() {
		sup = New(Config{}, WithClock(clock.Now), WithEventLog(failingEventLog{}), WithMetrics(rec))

		err := sup.Scan(ctx)
		Expect(err).To(MatchError(ErrProbeFailure))
		Expect(rec.Failures()).To(Equal([]string{"crash"}))
	})
})
