package supervisor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/masa-finance/liveness-supervisor/internal/audit"
	"github.com/masa-finance/liveness-supervisor/internal/metrics"
)

// Dependency is the single external dependency the supervisor watches.
type Dependency interface {
	// Available reports whether the dependency answers. An error means the probe
	// itself could not run and leaves the tracked state untouched.
	Available(ctx context.Context) (bool, error)
	// Reset attempts a reconnection.
	Reset(ctx context.Context) error
}

// dependencyProbe tracks outages of the dependency and paces reconnection attempts
// on the downtime schedule.
type dependencyProbe struct {
	dep     Dependency
	audit   *audit.Writer
	metrics metrics.Recorder

	mu        sync.Mutex
	backoff   *ScheduleBackOff
	downSince time.Time
	attempts  int
	nextRetry time.Time
}

func newDependencyProbe(dep Dependency, schedule []time.Duration, a *audit.Writer, m metrics.Recorder) *dependencyProbe {
	return &dependencyProbe{
		dep:     dep,
		audit:   a,
		metrics: m,
		backoff: NewScheduleBackOff(schedule),
	}
}

func (p *dependencyProbe) Name() string { return "dependency" }

func (p *dependencyProbe) Check(ctx context.Context, now time.Time) error {
	if p.dep == nil {
		return nil
	}

	up, err := p.dep.Available(ctx)
	if err != nil {
		return fmt.Errorf("%w: dependency probe: %v", ErrProbeFailure, err)
	}

	p.mu.Lock()
	down := !p.downSince.IsZero()

	switch {
	case !up && !down:
		p.downSince = now
		p.attempts = 0
		p.backoff.Reset()
		p.nextRetry = now.Add(p.backoff.NextBackOff())
		p.mu.Unlock()

		logrus.Warn("Dependency is unavailable")
		p.metrics.SetDependencyDown(true)
		p.audit.Write(sourceDependency, "dependency unavailable", CategoryDependencyDown, WeightDependencyDown)

	case !up && down:
		if now.Before(p.nextRetry) {
			p.mu.Unlock()
			return nil
		}
		p.attempts++
		attempt := p.attempts
		p.nextRetry = p.nextRetry.Add(p.backoff.NextBackOff())
		downtime := now.Sub(p.downSince)
		p.mu.Unlock()

		p.metrics.ReconnectAttempt()
		logrus.Infof("Reconnecting to dependency, attempt %d after %v of downtime", attempt, downtime.Truncate(time.Second))
		if err := p.dep.Reset(ctx); err != nil {
			logrus.Debugf("Dependency reset attempt %d failed: %v", attempt, err)
		}

	case up && down:
		downtime := now.Sub(p.downSince)
		attempts := p.attempts
		p.downSince = time.Time{}
		p.attempts = 0
		p.nextRetry = time.Time{}
		p.mu.Unlock()

		logrus.Infof("Dependency recovered after %v (%d reconnection attempts)", downtime.Truncate(time.Second), attempts)
		p.metrics.SetDependencyDown(false)
		p.audit.Write(sourceDependency, fmt.Sprintf("dependency recovered after %v", downtime.Truncate(time.Second)), CategoryDependencyRecovered, WeightDependencyRecovered)

	default:
		p.mu.Unlock()
	}
	return nil
}

// state returns whether the dependency is down and the reconnection attempts made
// during the current outage.
func (p *dependencyProbe) state() (bool, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.downSince.IsZero(), p.attempts
}
