// Package supervisor watches a fleet of workers: it escalates silent workers, tracks
// crash-prone event sources, paces reconnections to an external dependency and
// reacts to the global kill switch. Everything runs in one periodic scan loop.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/audit"
	"github.com/masa-finance/liveness-supervisor/internal/health"
	"github.com/masa-finance/liveness-supervisor/internal/metrics"
)

const defaultSleepStep = time.Second

type Supervisor struct {
	id        string
	cfg       Config
	now       func() time.Time
	sleepStep time.Duration

	registry *health.Registry
	audit    *audit.Writer
	metrics  metrics.Recorder

	heartbeat  *heartbeatProbe
	crash      *crashProbe
	dependency *dependencyProbe
	emergency  *emergencyProbe
	probes     []Probe

	running atomic.Bool
	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}

	// runMu guards run, the generation of the current loop, together with the
	// transitions of running made by Start and by an exiting loop.
	runMu sync.Mutex
	run   uint64
}

var _ health.Reporter = (*Supervisor)(nil)

// New builds a supervisor. Collaborators that are not provided are simply not
// checked: no event log means no crash tracking, no dependency means no
// reconnection logic, and so on.
func New(cfg Config, opts ...Option) *Supervisor {
	cfg = cfg.withDefaults()

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.metrics == nil {
		o.metrics = metrics.Nop{}
	}
	if o.sleepStep <= 0 {
		o.sleepStep = defaultSleepStep
	}

	s := &Supervisor{
		id:        uuid.New().String(),
		cfg:       cfg,
		now:       o.now,
		sleepStep: o.sleepStep,
		registry:  health.NewRegistry(o.now),
		audit:     audit.NewWriter(o.audit, o.now),
		metrics:   o.metrics,
	}

	s.heartbeat = &heartbeatProbe{
		registry:         s.registry,
		windows:          cfg.DetectionWindows,
		restartThreshold: cfg.RestartThreshold,
		launcherTimeout:  cfg.LauncherTimeout,
		rest:             o.rest,
		audit:            s.audit,
		metrics:          s.metrics,
	}
	s.crash = &crashProbe{
		events:     o.events,
		ledger:     o.ledger,
		window:     cfg.CrashWindow,
		retention:  cfg.EventRetention,
		thresholds: cfg.CrashThresholds,
		excluded:   cfg.ExcludedSources,
		onDisable:  o.onDisable,
		audit:      s.audit,
		metrics:    s.metrics,
		disabled:   map[string]time.Time{},
	}
	s.dependency = newDependencyProbe(o.dep, cfg.DependencyBackoff, s.audit, s.metrics)
	s.emergency = &emergencyProbe{
		kill:    o.kill,
		audit:   s.audit,
		metrics: s.metrics,
	}
	s.probes = []Probe{s.heartbeat, s.crash, s.dependency, s.emergency}

	return s
}

// ID identifies this supervisor instance.
func (s *Supervisor) ID() string { return s.id }

// Config returns the effective configuration, defaults applied.
func (s *Supervisor) Config() Config { return s.cfg }

// Register adds or replaces a worker. It starts alive as of now.
func (s *Supervisor) Register(name string, c types.Criticality, launcher health.Launcher) {
	s.registry.Register(name, c, launcher)
	s.metrics.SetWorkers(s.registry.Len())
	logrus.Debugf("Registered worker %s (%s)", name, c)
}

// Heartbeat records a heartbeat. Unknown workers are registered as STANDARD.
func (s *Supervisor) Heartbeat(name, status string) {
	s.registry.Heartbeat(name, status)
	s.metrics.SetWorkers(s.registry.Len())
}

// Attach sets the handle of a registered worker.
func (s *Supervisor) Attach(name string, h health.Handle) bool {
	return s.registry.Attach(name, h)
}

// Worker returns a copy of a worker's record.
func (s *Supervisor) Worker(name string) (health.WorkerRecord, bool) {
	return s.registry.Get(name)
}

// Start launches the scan loop in the background. Calling it while running is a no-op.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runMu.Lock()
	if !s.running.CompareAndSwap(false, true) {
		s.runMu.Unlock()
		return
	}
	s.run++
	run := s.run
	s.runMu.Unlock()

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx, run, s.done)

	logrus.Infof("Supervisor %s started, scanning every %v", s.id, s.cfg.ScanInterval)
}

// Stop ends the scan loop and waits for it to exit, up to the configured stop timeout.
// In-flight calls are cancelled through the loop's context.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.cancel()

	select {
	case <-s.done:
		logrus.Infof("Supervisor %s stopped", s.id)
	case <-time.After(s.cfg.StopTimeout):
		logrus.Warnf("Supervisor %s did not stop within %v", s.id, s.cfg.StopTimeout)
	}
}

// Running reports whether the scan loop is active.
func (s *Supervisor) Running() bool {
	return s.running.Load()
}

func (s *Supervisor) loop(ctx context.Context, run uint64, done chan struct{}) {
	defer close(done)

	for s.running.Load() && ctx.Err() == nil {
		_ = s.Scan(ctx)
		s.sleep(ctx, s.cfg.ScanInterval)
	}

	// A loop ended by its context clears running itself, unless a newer loop owns it.
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.run == run && s.running.CompareAndSwap(true, false) {
		logrus.Infof("Supervisor %s stopped: %v", s.id, context.Cause(ctx))
	}
}

// sleep waits for d in small steps so that Stop is observed promptly.
func (s *Supervisor) sleep(ctx context.Context, d time.Duration) {
	for waited := time.Duration(0); waited < d && s.running.Load(); waited += s.sleepStep {
		step := min(s.sleepStep, d-waited)
		select {
		case <-ctx.Done():
			return
		case <-time.After(step):
		}
	}
}

// Scan runs a single cycle: heartbeats, crashes, dependency, emergency stop, in that
// order. A failing probe never prevents the next one from running. The returned error
// joins every probe failure.
func (s *Supervisor) Scan(ctx context.Context) error {
	start := time.Now()
	now := s.now()

	var errs []error
	for _, p := range s.probes {
		if err := s.runProbe(ctx, p, now); err != nil {
			s.metrics.ProbeFailed(p.Name())
			if errors.Is(err, ErrProbeFailure) {
				logrus.Debugf("Probe %s: %v", p.Name(), err)
			} else {
				logrus.Errorf("Probe %s: %v", p.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
		}
	}

	s.metrics.ScanCompleted(time.Since(start).Seconds())
	return errors.Join(errs...)
}

func (s *Supervisor) runProbe(ctx context.Context, p Probe, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return p.Check(ctx, now)
}

// Status returns a last-known snapshot of the supervisor. It never fails.
func (s *Supervisor) Status() (st types.SupervisorStatus) {
	st = types.SupervisorStatus{
		InstanceID: s.id,
		Running:    s.running.Load(),
		Workers:    map[string]types.WorkerStatus{},
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.Debugf("Building status failed: %v", r)
		}
	}()

	now := s.now()
	for name, rec := range s.registry.Snapshot() {
		st.Workers[name] = types.WorkerStatus{
			Status:               rec.Status,
			Criticality:          rec.Criticality,
			SecondsSinceLastSeen: now.Sub(rec.LastSeen).Seconds(),
			MissedBeats:          rec.MissedBeats,
		}
	}
	st.DisabledSources = s.crash.Disabled()
	st.DependencyDown, _ = s.dependency.state()
	st.EmergencyActive = s.emergency.active()
	return st
}

// DisabledSources lists the sources the crash tracker has disabled.
func (s *Supervisor) DisabledSources() []string {
	return s.crash.Disabled()
}

// ReconnectAttempts returns the reconnection attempts of the current outage, zero when
// the dependency is up.
func (s *Supervisor) ReconnectAttempts() int {
	_, n := s.dependency.state()
	return n
}

// Probes returns the probes in scan order.
func (s *Supervisor) Probes() []Probe {
	return append([]Probe(nil), s.probes...)
}
