package supervisor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/api/types"
	"github.com/masa-finance/liveness-supervisor/internal/audit"
	"github.com/masa-finance/liveness-supervisor/internal/health"
	"github.com/masa-finance/liveness-supervisor/internal/metrics"
)

// heartbeatProbe is the escalation engine: it compares every worker's silence with
// its detection window and escalates by criticality.
type heartbeatProbe struct {
	registry         *health.Registry
	windows          map[types.Criticality]time.Duration
	restartThreshold time.Duration
	launcherTimeout  time.Duration
	rest             Switch
	audit            *audit.Writer
	metrics          metrics.Recorder
}

func (p *heartbeatProbe) Name() string { return "heartbeat" }

func (p *heartbeatProbe) Check(ctx context.Context, now time.Time) error {
	var err error
	resting := false
	if p.rest != nil {
		active, rerr := p.rest.Active(ctx)
		if rerr != nil {
			// No exemption when the condition cannot be read.
			err = fmt.Errorf("%w: rest condition: %v", ErrProbeFailure, rerr)
		} else {
			resting = active
		}
	}

	snapshot := p.registry.Snapshot()
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p.evaluate(ctx, snapshot[name], now, resting)
	}
	return err
}

func (p *heartbeatProbe) window(c types.Criticality) time.Duration {
	if w, ok := p.windows[c]; ok {
		return w
	}
	return p.windows[types.CriticalityStandard]
}

func (p *heartbeatProbe) evaluate(ctx context.Context, rec health.WorkerRecord, now time.Time, resting bool) {
	silence := now.Sub(rec.LastSeen)
	if silence <= p.window(rec.Criticality) {
		return
	}
	if resting && rec.Status == health.StatusResting {
		logrus.Debugf("Worker %s is resting, silent for %v", rec.Name, silence.Truncate(time.Second))
		return
	}

	missed, ok := p.registry.RecordMiss(rec.Name, rec.LastSeen)
	if !ok {
		// Reported since the snapshot was taken.
		return
	}
	p.metrics.Escalation(string(rec.Criticality))

	log := logrus.WithFields(logrus.Fields{
		"worker":      rec.Name,
		"criticality": rec.Criticality,
		"silence":     silence.Truncate(time.Second).String(),
		"missed":      missed,
	})
	content := fmt.Sprintf("worker %s (%s) silent for %v", rec.Name, rec.Criticality, silence.Truncate(time.Second))

	switch rec.Criticality {
	case types.CriticalityVital:
		log.Error("Vital worker missed its heartbeat")
		p.audit.Write(sourceHeartbeat, content, CategoryDistress, WeightDistress)
	case types.CriticalityImportant:
		log.Warn("Important worker missed its heartbeat")
		p.audit.Write(sourceHeartbeat, content, CategoryWarning, WeightWarning)
	default:
		log.Info("Worker missed its heartbeat")
		return
	}

	if silence > p.restartThreshold {
		p.restart(ctx, rec, silence)
	}
}

// restart relaunches a silent worker unless its handle still reports alive. Failures
// are retried on the next cycle.
func (p *heartbeatProbe) restart(ctx context.Context, rec health.WorkerRecord, silence time.Duration) {
	if rec.Handle != nil && rec.Handle.IsAlive() {
		logrus.Infof("Worker %s is silent for %v but its handle is alive, skipping restart", rec.Name, silence.Truncate(time.Second))
		p.registry.Touch(rec.Name, rec.LastSeen)
		p.metrics.Restart("skipped_alive")
		return
	}

	h, err := p.launch(ctx, rec)
	if err != nil {
		logrus.Errorf("Restart of worker %s failed: %v", rec.Name, err)
		p.metrics.Restart("failure")
		p.audit.Write(sourceHeartbeat, fmt.Sprintf("restart of %s failed: %v", rec.Name, err), CategoryRestartFailed, WeightRestartFailed)
		return
	}

	p.registry.MarkRestarted(rec.Name, h)
	p.metrics.Restart("success")
	logrus.Infof("Worker %s restarted after %v of silence", rec.Name, silence.Truncate(time.Second))
	p.audit.Write(sourceHeartbeat, fmt.Sprintf("worker %s restarted", rec.Name), CategoryRestart, WeightRestart)
}

type launchResult struct {
	handle health.Handle
	err    error
}

// launch runs the worker's launcher with a bounded timeout. A launcher that panics,
// errors, times out or returns no handle counts as a failure.
func (p *heartbeatProbe) launch(ctx context.Context, rec health.WorkerRecord) (health.Handle, error) {
	if rec.Launcher == nil {
		return nil, ErrNoLauncher
	}

	ctx, cancel := context.WithTimeout(ctx, p.launcherTimeout)
	defer cancel()

	done := make(chan launchResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- launchResult{err: fmt.Errorf("launcher panicked: %v", r)}
			}
		}()
		h, err := rec.Launcher(ctx)
		done <- launchResult{handle: h, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRestartFailed, res.err)
		}
		if res.handle == nil {
			return nil, fmt.Errorf("%w: launcher returned no handle", ErrRestartFailed)
		}
		return res.handle, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: launcher did not return within %v", ErrRestartFailed, p.launcherTimeout)
	}
}
