package supervisor

import (
	"context"
	"time"
)

// Probe is one stage of a scan cycle. Check receives the cycle's reference time and
// returns an error only for failures worth reporting; the loop always moves on.
type Probe interface {
	Name() string
	Check(ctx context.Context, now time.Time) error
}

// Audit categories and severity weights emitted by the probes.
const (
	CategoryDistress            = "distress"
	CategoryWarning             = "warning"
	CategoryRestart             = "restart"
	CategoryRestartFailed       = "restart_failed"
	CategorySourceDisabled      = "source_disabled"
	CategoryDependencyDown      = "dependency_down"
	CategoryDependencyRecovered = "dependency_recovered"
	CategoryEmergencyStop       = "emergency_stop"
	CategoryEmergencyCleared    = "emergency_cleared"

	WeightDistress            = 9
	WeightWarning             = 5
	WeightRestart             = 4
	WeightRestartFailed       = 7
	WeightSourceDisabled      = 8
	WeightDependencyDown      = 6
	WeightDependencyRecovered = 3
	WeightEmergencyStop       = 10
	WeightEmergencyCleared    = 4
)

// Audit sources. All of them share the "supervisor." prefix, so the crash tracker
// never counts the supervisor's own output.
const (
	SourceSupervisor = "supervisor"
	sourceHeartbeat  = SourceSupervisor + ".heartbeat"
	sourceCrash      = SourceSupervisor + ".crash"
	sourceDependency = SourceSupervisor + ".dependency"
	sourceEmergency  = SourceSupervisor + ".emergency"
)
