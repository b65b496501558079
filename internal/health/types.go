package health

import (
	"context"
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// Well-known worker status values. Any other string is accepted as-is.
const (
	StatusAlive     = "alive"
	StatusRestarted = "restarted"
	// StatusResting marks a worker that is intentionally paused. It is exempt from
	// escalation while the supervisor's rest condition is active.
	StatusResting = "resting"
)

// Handle is a reference to a running worker that can be asked whether it is still alive.
type Handle interface {
	IsAlive() bool
}

// NoHandle is the handle of a worker the supervisor cannot inspect. It never reports alive,
// so a silent worker without a real handle is always eligible for restart.
type NoHandle struct{}

func (NoHandle) IsAlive() bool { return false }

// Launcher starts a fresh instance of a worker and returns its handle.
type Launcher func(ctx context.Context) (Handle, error)

// WorkerRecord holds the liveness information for a single worker.
type WorkerRecord struct {
	Name        string
	Criticality types.Criticality
	LastSeen    time.Time
	Status      string
	MissedBeats int
	Launcher    Launcher
	Handle      Handle
}

// Reporter is the capability workers use to report liveness. Workers depend on this
// interface rather than on the supervisor itself.
type Reporter interface {
	// Heartbeat resets the silence clock of the named worker. It never fails.
	Heartbeat(name, status string)
}

// NopReporter discards every heartbeat. Use it where no supervisor is wired.
type NopReporter struct{}

func (NopReporter) Heartbeat(string, string) {}
