package supervisor_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/internal/store"
	. "github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

var _ = Describe("Dependency monitor", func() {
	var (
		clock *fakeClock
		st    *store.MemoryStore
		dep   *fakeDependency
		sup   *Supervisor
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		clock = newFakeClock()
		st = store.NewMemoryStore()
		dep = newFakeDependency()
		sup = New(Config{}, WithClock(clock.Now), WithAuditStore(st), WithDependency(dep))
	})

	// simulateOutage scans every cadence from t=0 and keeps the dependency down for
	// the given outage, then runs scans until it has been observed up again.
	simulateOutage := func(outage, cadence time.Duration) {
		for {
			dep.up.Store(clock.Elapsed() >= outage)
			Expect(sup.Scan(ctx)).To(Succeed())
			if clock.Elapsed() >= outage {
				return
			}
			clock.Advance(cadence)
		}
	}

	It("should do nothing while the dependency is up", func() {
		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(dep.resets.Load()).To(BeZero())
		Expect(sup.Status().DependencyDown).To(BeFalse())
		Expect(auditCategories(st)).To(BeEmpty())
	})

	It("should follow the schedule on a 30 second cadence", func() {
		dep.up.Store(false)
		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(sup.Status().DependencyDown).To(BeTrue())
		Expect(dep.resets.Load()).To(BeZero())

		clock.Advance(30 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())
		clock.Advance(30 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())
		Expect(sup.ReconnectAttempts()).To(Equal(2))

		dep.up.Store(true)
		clock.Advance(30 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())

		Expect(dep.resets.Load()).To(Equal(int32(2)))
		Expect(sup.ReconnectAttempts()).To(BeZero())
		Expect(sup.Status().DependencyDown).To(BeFalse())
		Expect(auditCategories(st)).To(Equal([]string{CategoryDependencyDown, CategoryDependencyRecovered}))
	})

	It("should not retry once per cycle on a fast cadence", func() {
		simulateOutage(65*time.Second, 5*time.Second)

		// Boundaries at 5s, 15s and 45s of downtime.
		Expect(dep.resets.Load()).To(Equal(int32(3)))
		Expect(dep.checks.Load()).To(Equal(int32(14)))
	})

	It("should settle on the last step of the schedule", func() {
		simulateOutage(10*time.Minute, 5*time.Second)

		// 5, 15, 45, 105 and then every 60s up to 585s.
		Expect(dep.resets.Load()).To(Equal(int32(12)))
	})

	It("should start a fresh schedule for a new outage", func() {
		simulateOutage(65*time.Second, 5*time.Second)
		Expect(dep.resets.Load()).To(Equal(int32(3)))

		dep.up.Store(false)
		clock.Advance(5 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())
		clock.Advance(5 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())

		Expect(dep.resets.Load()).To(Equal(int32(4)))
		Expect(countCategory(st, CategoryDependencyDown)).To(Equal(2))
	})

	It("should keep going when a reset fails", func() {
		dep.resetErr = errors.New("connection refused")
		dep.up.Store(false)
		Expect(sup.Scan(ctx)).To(Succeed())
		clock.Advance(5 * time.Second)
		Expect(sup.Scan(ctx)).To(Succeed())

		Expect(dep.resets.Load()).To(Equal(int32(1)))
		Expect(sup.Status().DependencyDown).To(BeTrue())
	})

	It("should leave the state untouched when the probe fails", func() {
		dep.fail.Store(true)

		Expect(sup.Scan(ctx)).To(MatchError(ErrProbeFailure))
		Expect(sup.Status().DependencyDown).To(BeFalse())
		Expect(auditCategories(st)).To(BeEmpty())
	})
})

var _ = Describe("ScheduleBackOff", func() {
	It("should walk the schedule and stay on the last step", func() {
		b := NewScheduleBackOff(DefaultDependencyBackoff())

		var got []time.Duration
		for i := 0; i < 6; i++ {
			got = append(got, b.NextBackOff())
		}
		Expect(got).To(Equal([]time.Duration{
			5 * time.Second, 10 * time.Second, 30 * time.Second,
			60 * time.Second, 60 * time.Second, 60 * time.Second,
		}))

		b.Reset()
		Expect(b.NextBackOff()).To(Equal(5 * time.Second))
	})

	It("should fall back to the default schedule", func() {
		b := NewScheduleBackOff(nil)
		Expect(b.NextBackOff()).To(Equal(5 * time.Second))
	})
})
