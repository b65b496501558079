package supervisor_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/masa-finance/liveness-supervisor/internal/store"
	. "github.com/masa-finance/liveness-supervisor/internal/supervisor"
)

var _ = Describe("Emergency stop", func() {
	var (
		st   *store.MemoryStore
		kill *FlagSwitch
		sup  *Supervisor
		ctx  context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		st = store.NewMemoryStore()
		kill = NewFlagSwitch()
		sup = New(Config{}, WithAuditStore(st), WithKillSwitch(kill))
	})

	scan := func(n int) {
		for i := 0; i < n; i++ {
			Expect(sup.Scan(ctx)).To(Succeed())
		}
	}

	It("should stay quiet while the switch is off", func() {
		scan(3)
		Expect(auditCategories(st)).To(BeEmpty())
		Expect(sup.Status().EmergencyActive).To(BeFalse())
	})

	It("should signal exactly once per edge", func() {
		kill.Set(true)
		scan(5)
		Expect(auditCategories(st)).To(Equal([]string{CategoryEmergencyStop}))
		Expect(sup.Status().EmergencyActive).To(BeTrue())

		kill.Set(false)
		scan(5)
		Expect(auditCategories(st)).To(Equal([]string{CategoryEmergencyStop, CategoryEmergencyCleared}))
		Expect(sup.Status().EmergencyActive).To(BeFalse())

		kill.Set(true)
		scan(2)
		Expect(countCategory(st, CategoryEmergencyStop)).To(Equal(2))
	})

	It("should carry the highest severity weight", func() {
		kill.Set(true)
		scan(1)

		records, err := st.ListAudit(ctx, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].SeverityWeight).To(Equal(WeightEmergencyStop))
		Expect(records[0].Source).To(HavePrefix(SourceSupervisor))
	})

	It("should follow a flag file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "STOP")
		sup = New(Config{}, WithAuditStore(st), WithKillSwitch(AnySwitch{kill, FileSwitch{Path: path}}))

		Expect(os.WriteFile(path, nil, 0o600)).To(Succeed())
		scan(2)
		Expect(os.Remove(path)).To(Succeed())
		scan(2)

		Expect(auditCategories(st)).To(Equal([]string{CategoryEmergencyStop, CategoryEmergencyCleared}))
	})
})

var _ = Describe("Switches", func() {
	ctx := context.Background()

	It("should treat a missing or unset flag file as inactive", func() {
		active, err := FileSwitch{}.Active(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeFalse())

		active, err = FileSwitch{Path: filepath.Join(GinkgoT().TempDir(), "absent")}.Active(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeFalse())
	})

	It("should be active if any member is", func() {
		on := NewFlagSwitch()
		on.Set(true)

		active, err := AnySwitch{NewFlagSwitch(), nil, on}.Active(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeTrue())

		active, err = AnySwitch{NewFlagSwitch()}.Active(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(active).To(BeFalse())
	})
})
