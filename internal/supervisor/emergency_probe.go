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

// emergencyProbe reacts to kill switch transitions exactly once per edge.
type emergencyProbe struct {
	kill    Switch
	audit   *audit.Writer
	metrics metrics.Recorder

	mu           sync.Mutex
	acknowledged bool
}

func (p *emergencyProbe) Name() string { return "emergency" }

func (p *emergencyProbe) Check(ctx context.Context, now time.Time) error {
	if p.kill == nil {
		return nil
	}

	active, err := p.kill.Active(ctx)
	if err != nil {
		return fmt.Errorf("%w: kill switch: %v", ErrProbeFailure, err)
	}

	p.mu.Lock()
	changed := active != p.acknowledged
	p.acknowledged = active
	p.mu.Unlock()

	if !changed {
		return nil
	}

	p.metrics.SetEmergencyActive(active)
	if active {
		logrus.Error("Emergency stop activated")
		p.audit.Write(sourceEmergency, fmt.Sprintf("emergency stop activated at %s", now.UTC().Format(time.RFC3339)), CategoryEmergencyStop, WeightEmergencyStop)
		return nil
	}
	logrus.Warn("Emergency stop cleared")
	p.audit.Write(sourceEmergency, fmt.Sprintf("emergency stop cleared at %s", now.UTC().Format(time.RFC3339)), CategoryEmergencyCleared, WeightEmergencyCleared)
	return nil
}

func (p *emergencyProbe) active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acknowledged
}
