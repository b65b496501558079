package supervisor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/health"
	. "github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

var _ = Describe("Scan loop", func() {
	var (
		dep *fakeDependency
		sup *Supervisor
	)

	BeforeEach(func() {
		dep = newFakeDependency()
		sup = New(Config{ScanInterval: 20 * time.Millisecond}, WithDependency(dep), WithSleepStep(5*time.Millisecond))
	})

	AfterEach(func() {
		sup.Stop()
	})

	It("should scan periodically until stopped", func() {
		sup.Start(context.Background())
		Expect(sup.Running()).To(BeTrue())
		Eventually(dep.checks.Load).Should(BeNumerically(">=", 3))

		sup.Stop()
		Expect(sup.Running()).To(BeFalse())
		after := dep.checks.Load()
		Consistently(dep.checks.Load, 100*time.Millisecond).Should(Equal(after))
	})

	It("should ignore a second Start", func() {
		sup.Start(context.Background())
		sup.Start(context.Background())
		Eventually(dep.checks.Load).Should(BeNumerically(">=", 2))

		sup.Stop()
		after := dep.checks.Load()
		Consistently(dep.checks.Load, 100*time.Millisecond).Should(Equal(after))
	})

	It("should allow Stop without Start", func() {
		sup.Stop()
		Expect(sup.Running()).To(BeFalse())
	})

	It("should stop promptly in the middle of a long interval", func() {
		sup = New(Config{ScanInterval: time.Hour}, WithDependency(dep))
		sup.Start(context.Background())
		Eventually(dep.checks.Load).Should(Equal(int32(1)))

		start := time.Now()
		sup.Stop()
		Expect(time.Since(start)).To(BeNumerically("<", 2*time.Second))
	})

	It("should end the loop when its context is cancelled without Stop", func() {
		sup = New(Config{ScanInterval: 30 * time.Second}, WithDependency(dep), WithSleepStep(5*time.Millisecond))
		ctx, cancel := context.WithCancel(context.Background())
		sup.Start(ctx)
		Eventually(dep.checks.Load).Should(Equal(int32(1)))

		cancel()
		Eventually(sup.Running).Should(BeFalse())
		Consistently(dep.checks.Load, 200*time.Millisecond).Should(Equal(int32(1)))
	})

	It("should start a fresh loop after its context was cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		sup.Start(ctx)
		Eventually(dep.checks.Load).Should(BeNumerically(">=", 1))
		cancel()
		Eventually(sup.Running).Should(BeFalse())

		before := dep.checks.Load()
		sup.Start(context.Background())
		Expect(sup.Running()).To(BeTrue())
		Eventually(dep.checks.Load).Should(BeNumerically(">=", before+2))
	})

	It("should keep running when every probe fails", func() {
		dep.fail.Store(true)
		rec := &recordingMetrics{}
		sup = New(Config{ScanInterval: 20 * time.Millisecond},
			WithDependency(dep),
			WithEventLog(failingEventLog{}),
			WithKillSwitch(panickingSwitch{}),
			WithRestCondition(panickingSwitch{}),
			WithMetrics(rec),
			WithSleepStep(5*time.Millisecond),
		)
		sup.Register("trader", types.CriticalityVital, nil)

		sup.Start(context.Background())
		Eventually(dep.checks.Load).Should(BeNumerically(">=", 3))
		Expect(sup.Running()).To(BeTrue())
		Expect(rec.Failures()).To(ContainElements("heartbeat", "crash", "dependency", "emergency"))
	})

	It("should run every probe even when an earlier one panics", func() {
		sup = New(Config{}, WithDependency(dep), WithRestCondition(panickingSwitch{}))

		err := sup.Scan(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("panicked"))
		Expect(dep.checks.Load()).To(Equal(int32(1)))
	})

	It("should run the probes in order", func() {
		var names []string
		for _, p := range sup.Probes() {
			names = append(names, p.Name())
		}
		Expect(names).To(Equal([]string{"heartbeat", "crash", "dependency", "emergency"}))
	})
})

var _ = Describe("Status", func() {
	It("should describe every worker", func() {
		clock := newFakeClock()
		sup := New(Config{}, WithClock(clock.Now))
		sup.Register("trader", types.CriticalityVital, nil)
		sup.Heartbeat("unknown", "")
		clock.Advance(90 * time.Second)

		st := sup.Status()
		Expect(st.InstanceID).To(Equal(sup.ID()))
		Expect(st.Running).To(BeFalse())
		Expect(st.Workers).To(HaveLen(2))
		Expect(st.Workers["trader"].SecondsSinceLastSeen).To(Equal(90.0))
		Expect(st.Workers["unknown"].Criticality).To(Equal(types.CriticalityStandard))
		Expect(st.Workers["unknown"].Status).To(Equal(health.StatusAlive))
		Expect(st.DisabledSources).To(BeEmpty())
	})

	It("should take heartbeats from workers that only know the Reporter", func() {
		sup := New(Config{})
		var reporter health.Reporter = sup
		reporter.Heartbeat("scraper", "busy")

		rec, exists := sup.Worker("scraper")
		Expect(exists).To(BeTrue())
		Expect(rec.Criticality).To(Equal(types.CriticalityStandard))
		Expect(rec.Status).To(Equal("busy"))
	})

	It("should fill in defaults", func() {
		cfg := New(Config{DetectionWindows: map[types.Criticality]time.Duration{types.CriticalityVital: time.Minute}}).Config()
		Expect(cfg.ScanInterval).To(Equal(DefaultScanInterval))
		Expect(cfg.DetectionWindows[types.CriticalityVital]).To(Equal(time.Minute))
		Expect(cfg.DetectionWindows[types.CriticalityImportant]).To(Equal(300 * time.Second))
		Expect(cfg.DependencyBackoff).To(Equal(DefaultDependencyBackoff()))
	})
})
