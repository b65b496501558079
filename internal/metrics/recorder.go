package metrics

// Recorder receives supervisor instrumentation events.
type Recorder interface {
	// ScanCompleted is called once per scan cycle with its duration in seconds.
	ScanCompleted(seconds float64)
	// ProbeFailed counts a probe returning an error.
	ProbeFailed(probe string)
	// Escalation counts an escalation of a silent worker by criticality.
	Escalation(criticality string)
	// Restart counts restart attempts by result (success, failure, skipped_alive).
	Restart(result string)
	// CrashTier counts sources reaching a crash tier (advisory, degraded, disabled).
	CrashTier(tier string)
	// SetDependencyDown reports the dependency availability state.
	SetDependencyDown(down bool)
	// ReconnectAttempt counts dependency reconnection attempts.
	ReconnectAttempt()
	// SetEmergencyActive reports the emergency-stop state.
	SetEmergencyActive(active bool)
	// SetWorkers reports the number of registered workers.
	SetWorkers(n int)
}

// Nop discards every metric.
type Nop struct{}

var _ Recorder = Nop{}

func (Nop) ScanCompleted(float64)    {}
func (Nop) ProbeFailed(string)       {}
func (Nop) Escalation(string)        {}
func (Nop) Restart(string)           {}
func (Nop) CrashTier(string)         {}
func (Nop) SetDependencyDown(bool)   {}
func (Nop) ReconnectAttempt()        {}
func (Nop) SetEmergencyActive(bool)  {}
func (Nop) SetWorkers(int)           {}
