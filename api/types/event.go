package types

import (
	"fmt"
	"strings"
	"time"
)

// Severity of an event in the shared event log.
type Severity string

const (
	SeverityDebug    Severity = "debug"
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// IsFailure reports whether events of this severity count as crashes.
func (s Severity) IsFailure() bool {
	return s == SeverityError || s == SeverityCritical
}

func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(strings.ToLower(strings.TrimSpace(s))); sev {
	case SeverityDebug, SeverityInfo, SeverityWarning, SeverityError, SeverityCritical:
		return sev, nil
	case "warn":
		return SeverityWarning, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Event is a single entry of the shared event log that workers append to.
type Event struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Severity  Severity  `json:"severity"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
