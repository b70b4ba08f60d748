package diag

import (
	"fmt"
	"strings"
)

// Severity defines the importance of a diagnostic. `pragma diagnostic
// directives remap a diagnostic's severity from a point in a buffer onward.
type Severity uint8

const (
	// Ignored suppresses the diagnostic entirely.
	Ignored Severity = iota
	// Note is for informational diagnostics.
	Note
	// Warning is for warning diagnostics.
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Ignored:
		return "ignored"
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	}
	return "unknown"
}

// ParseSeverity converts a directive argument to a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "ignore", "ignored":
		return Ignored, nil
	case "note", "info":
		return Note, nil
	case "warn", "warning":
		return Warning, nil
	case "error":
		return Error, nil
	case "fatal":
		return Fatal, nil
	default:
		return Warning, fmt.Errorf("invalid severity: %q (expected: ignore|note|warning|error|fatal)", s)
	}
}
