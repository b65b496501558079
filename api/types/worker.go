package types

import (
	"fmt"
	"strings"
)

// Criticality decides how long a worker may stay silent before the supervisor reacts.
type Criticality string

const (
	CriticalityVital     Criticality = "VITAL"
	CriticalityImportant Criticality = "IMPORTANT"
	CriticalityStandard  Criticality = "STANDARD"
)

// ParseCriticality parses a criticality name, case-insensitively.
func ParseCriticality(s string) (Criticality, error) {
	switch Criticality(strings.ToUpper(strings.TrimSpace(s))) {
	case CriticalityVital:
		return CriticalityVital, nil
	case CriticalityImportant:
		return CriticalityImportant, nil
	case CriticalityStandard, "":
		return CriticalityStandard, nil
	default:
		return "", fmt.Errorf("unknown criticality %q", s)
	}
}

// WorkerStatus is the externally visible view of a single worker record.
type WorkerStatus struct {
	Status               string      `json:"status"`
	Criticality          Criticality `json:"criticality"`
	SecondsSinceLastSeen float64     `json:"seconds_since_last_seen"`
	MissedBeats          int         `json:"missed_beats"`
}

// SupervisorStatus is returned by the status endpoint. It is always a best-effort,
// last-known snapshot.
type SupervisorStatus struct {
	InstanceID      string                  `json:"instance_id"`
	Running         bool                    `json:"running"`
	Workers         map[string]WorkerStatus `json:"workers"`
	DisabledSources []string                `json:"disabled_sources"`
	DependencyDown  bool                    `json:"dependency_down"`
	EmergencyActive bool                    `json:"emergency_active"`
}

type HeartbeatRequest struct {
	Status string `json:"status"`
}

type RegisterRequest struct {
	Criticality Criticality `json:"criticality"`
}

type APIResponse struct {
	Status string `json:"status"`
}

type APIError struct {
	Error string `json:"error"`
}
