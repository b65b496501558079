package supervisor

import (
	"time"

	"github.com/masa-finance/liveness-supervisor/api/types"
)

// CrashThresholds are the per-source error counts, inside the crash window, at which
// a source enters each tier.
type CrashThresholds struct {
	Advisory int
	Degraded int
	Disabled int
}

// Config tunes the supervisor. Zero values are replaced by the defaults below.
type Config struct {
	// ScanInterval is the pause between two scan cycles.
	ScanInterval time.Duration
	// DetectionWindows is the maximum tolerated silence per criticality.
	DetectionWindows map[types.Criticality]time.Duration
	// RestartThreshold is the silence after which VITAL and IMPORTANT workers are restarted.
	RestartThreshold time.Duration
	// LauncherTimeout bounds a single launcher call. A timeout counts as a failed restart.
	LauncherTimeout time.Duration

	CrashWindow     time.Duration
	CrashThresholds CrashThresholds
	// ExcludedSources are known noisy sources ignored by the crash tracker.
	ExcludedSources []string
	// EventRetention is how long events are kept in the event log before pruning.
	EventRetention time.Duration

	// DependencyBackoff is the reconnection schedule while the dependency is down.
	DependencyBackoff []time.Duration

	// StopTimeout bounds how long Stop waits for the scan loop to exit.
	StopTimeout time.Duration
}

const (
	DefaultScanInterval     = 30 * time.Second
	DefaultRestartThreshold = 600 * time.Second
	DefaultLauncherTimeout  = 30 * time.Second
	DefaultCrashWindow      = 5 * time.Minute
	DefaultEventRetention   = 24 * time.Hour
	DefaultStopTimeout      = 5 * time.Second
)

// DefaultDetectionWindows returns the stock silence windows.
func DefaultDetectionWindows() map[types.Criticality]time.Duration {
	return map[types.Criticality]time.Duration{
		types.CriticalityVital:     120 * time.Second,
		types.CriticalityImportant: 300 * time.Second,
		types.CriticalityStandard:  600 * time.Second,
	}
}

// DefaultDependencyBackoff returns the stock reconnection schedule.
func DefaultDependencyBackoff() []time.Duration {
	return []time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second, 60 * time.Second}
}

func DefaultCrashThresholds() CrashThresholds {
	return CrashThresholds{Advisory: 3, Degraded: 5, Disabled: 10}
}

func DefaultConfig() Config {
	return Config{
		ScanInterval:      DefaultScanInterval,
		DetectionWindows:  DefaultDetectionWindows(),
		RestartThreshold:  DefaultRestartThreshold,
		LauncherTimeout:   DefaultLauncherTimeout,
		CrashWindow:       DefaultCrashWindow,
		CrashThresholds:   DefaultCrashThresholds(),
		EventRetention:    DefaultEventRetention,
		DependencyBackoff: DefaultDependencyBackoff(),
		StopTimeout:       DefaultStopTimeout,
	}
}

// withDefaults fills every unset field.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ScanInterval <= 0 {
		c.ScanInterval = d.ScanInterval
	}
	windows := DefaultDetectionWindows()
	for crit, w := range c.DetectionWindows {
		if w > 0 {
			windows[crit] = w
		}
	}
	c.DetectionWindows = windows
	if c.RestartThreshold <= 0 {
		c.RestartThreshold = d.RestartThreshold
	}
	if c.LauncherTimeout <= 0 {
		c.LauncherTimeout = d.LauncherTimeout
	}
	if c.CrashWindow <= 0 {
		c.CrashWindow = d.CrashWindow
	}
	if c.CrashThresholds.Advisory <= 0 {
		c.CrashThresholds.Advisory = d.CrashThresholds.Advisory
	}
	if c.CrashThresholds.Degraded <= 0 {
		c.CrashThresholds.Degraded = d.CrashThresholds.Degraded
	}
	if c.CrashThresholds.Disabled <= 0 {
		c.CrashThresholds.Disabled = d.CrashThresholds.Disabled
	}
	if c.EventRetention <= 0 {
		c.EventRetention = d.EventRetention
	}
	if len(c.DependencyBackoff) == 0 {
		c.DependencyBackoff = d.DependencyBackoff
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = d.StopTimeout
	}
	return c
}
