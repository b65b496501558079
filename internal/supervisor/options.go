package supervisor

import (
	"time"

	"github.com/masa-finance/liveness-supervisor/internal/metrics"
	"github.com/masa-finance/liveness-supervisor/internal/store"
)

// Option configures a Supervisor.
type Option func(*options)

type options struct {
	now       func() time.Time
	events    store.EventLog
	ledger    store.LedgerStore
	audit     store.AuditStore
	dep       Dependency
	kill      Switch
	rest      Switch
	metrics   metrics.Recorder
	onDisable func(source string)
	sleepStep time.Duration
}

// WithClock replaces the wall clock used for every timing decision.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithStore wires the event log, the health ledger and the audit trail to a single store.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.events = s
		o.ledger = s
		o.audit = s
	}
}

func WithEventLog(l store.EventLog) Option {
	return func(o *options) {
		o.events = l
	}
}

func WithLedger(l store.LedgerStore) Option {
	return func(o *options) {
		o.ledger = l
	}
}

func WithAuditStore(a store.AuditStore) Option {
	return func(o *options) {
		o.audit = a
	}
}

func WithDependency(d Dependency) Option {
	return func(o *options) {
		o.dep = d
	}
}

// WithKillSwitch sets the global emergency-stop switch.
func WithKillSwitch(s Switch) Option {
	return func(o *options) {
		o.kill = s
	}
}

// WithRestCondition sets the planned-rest condition. Workers reporting the resting
// status are only exempt from escalation while it is active.
func WithRestCondition(s Switch) Option {
	return func(o *options) {
		o.rest = s
	}
}

func WithMetrics(m metrics.Recorder) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDisableHook is called once for every source the crash tracker disables.
func WithDisableHook(f func(source string)) Option {
	return func(o *options) {
		o.onDisable = f
	}
}

// WithSleepStep sets the granularity at which the loop checks for shutdown while
// waiting for the next cycle.
func WithSleepStep(d time.Duration) Option {
	return func(o *options) {
		o.sleepStep = d
	}
}
