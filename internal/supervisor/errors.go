package supervisor

import "errors"

var (
	// ErrProbeFailure wraps transient failures of a probe's external calls (event log
	// queries, dependency probes, switch reads). They are logged at debug level.
	ErrProbeFailure = errors.New("probe failure")

	// ErrRestartFailed is returned by a launch that produced no usable handle
	ErrRestartFailed = errors.New("restart failed")

	// ErrNoLauncher is returned when a silent worker has no registered launcher
	ErrNoLauncher = errors.New("no launcher registered")
)
