// Package diag carries the non-fatal findings produced while parsing and
// restructuring netlists and timing files.
//
// The parsers in this module are lenient: malformed SDF blocks, unmatched
// naming conventions and unresolved graph endpoints are skipped rather than
// failing the whole conversion. Each skip is recorded here so callers can
// inspect what was dropped.
package diag

import (
	"fmt"
	"strings"
)

// Severity classifies a diagnostic
type Severity int

const (
	// Warning marks input that was skipped or defaulted
	Warning Severity = iota
	// Info marks noteworthy but harmless input
	Info
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Info:
		return "info"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText renders the severity by name in JSON output.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity written by MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "warning":
		*s = Warning
	case "info":
		*s = Info
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Diagnostic is a single non-fatal finding.
type Diagnostic struct {
	Severity  Severity `json:"severity"`
	Component string   `json:"component"` // e.g. "sdf", "verilog", "fpga"
	Summary   string   `json:"summary"`
	Detail    string   `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	if d.Detail == "" {
		return fmt.Sprintf("%s: %s: %s", d.Severity, d.Component, d.Summary)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", d.Severity, d.Component, d.Summary, d.Detail)
}

// List is an ordered collection of diagnostics.
type List []Diagnostic

// Warnf appends a warning.
func (l *List) Warnf(component, summary, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity:  Warning,
		Component: component,
		Summary:   summary,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// Infof appends an informational diagnostic.
func (l *List) Infof(component, summary, format string, args ...any) {
	*l = append(*l, Diagnostic{
		Severity:  Info,
		Component: component,
		Summary:   summary,
		Detail:    fmt.Sprintf(format, args...),
	})
}

// Extend appends every diagnostic of other.
func (l *List) Extend(other List) {
	*l = append(*l, other...)
}

// Warnings returns the number of warnings in the list.
func (l List) Warnings() int {
	n := 0
	for _, d := range l {
		if d.Severity == Warning {
			n++
		}
	}
	return n
}

// Filter returns the diagnostics reported by component, in order.
func (l List) Filter(component string) List {
	var out List
	for _, d := range l {
		if d.Component == component {
			out = append(out, d)
		}
	}
	return out
}

// HasSummary reports whether any diagnostic carries the given summary.
func (l List) HasSummary(summary string) bool {
	for _, d := range l {
		if d.Summary == summary {
			return true
		}
	}
	return false
}

func (l List) String() string {
	lines := make([]string, len(l))
	for i, d := range l {
		lines[i] = d.String()
	}
	return strings.Join(lines, "\n")
}
