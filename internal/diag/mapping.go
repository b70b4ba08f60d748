package diag

import "sort"

// severityOverride is one recorded remap point within a buffer.
type severityOverride struct {
	offset   uint64
	severity Severity
}

// Mapping is the active-severity state machine for a single buffer, built by
// a renderer from the diagnostic directives the source manager recorded.
// Overrides must be added in source order; lookups answer which severity is
// in effect for a diagnostic name at a given byte offset.
type Mapping struct {
	byName map[string][]severityOverride
}

// NewMapping creates an empty severity mapping.
func NewMapping() *Mapping {
	return &Mapping{byName: make(map[string][]severityOverride)}
}

// Add records that diagnostics called name report with the given severity
// from offset onward. The special name "__all__" applies to every
// diagnostic that has no override of its own.
func (m *Mapping) Add(name string, offset uint64, severity Severity) {
	m.byName[name] = append(m.byName[name], severityOverride{offset: offset, severity: severity})
}

// AllDiagnostics is the directive name that remaps every diagnostic at once.
const AllDiagnostics = "__all__"

// SeverityAt returns the override in effect for name at offset, if any.
// Falls back to the catch-all override before reporting no override.
func (m *Mapping) SeverityAt(name string, offset uint64) (Severity, bool) {
	if sev, ok := m.lookup(name, offset); ok {
		return sev, true
	}
	if name != AllDiagnostics {
		return m.lookup(AllDiagnostics, offset)
	}
	return Warning, false
}

func (m *Mapping) lookup(name string, offset uint64) (Severity, bool) {
	overrides := m.byName[name]
	// Last override with offset <= the query position wins.
	i := sort.Search(len(overrides), func(i int) bool {
		return overrides[i].offset > offset
	})
	if i == 0 {
		return Warning, false
	}
	return overrides[i-1].severity, true
}
