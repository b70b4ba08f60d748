package diag

import "testing"

func TestMappingNearestPrecedingOverride(t *testing.T) {
	m := NewMapping()
	m.Add("implicit-net", 100, Ignored)
	m.Add("implicit-net", 500, Error)

	if _, ok := m.SeverityAt("implicit-net", 50); ok {
		t.Error("Expected no override before the first directive")
	}
	if sev, ok := m.SeverityAt("implicit-net", 100); !ok || sev != Ignored {
		t.Errorf("Expected Ignored at the directive offset, got %v (ok=%v)", sev, ok)
	}
	if sev, ok := m.SeverityAt("implicit-net", 499); !ok || sev != Ignored {
		t.Errorf("Expected Ignored before the second directive, got %v (ok=%v)", sev, ok)
	}
	if sev, ok := m.SeverityAt("implicit-net", 9999); !ok || sev != Error {
		t.Errorf("Expected Error after the second directive, got %v (ok=%v)", sev, ok)
	}
}

func TestMappingCatchAll(t *testing.T) {
	m := NewMapping()
	m.Add(AllDiagnostics, 10, Ignored)
	m.Add("real-warning", 20, Error)

	// A name with its own override uses it.
	if sev, _ := m.SeverityAt("real-warning", 30); sev != Error {
		t.Errorf("Expected the specific override, got %v", sev)
	}
	// A name without one falls back to the catch-all.
	if sev, ok := m.SeverityAt("other", 30); !ok || sev != Ignored {
		t.Errorf("Expected the catch-all override, got %v (ok=%v)", sev, ok)
	}
	// Before the catch-all takes effect, nothing applies.
	if _, ok := m.SeverityAt("other", 5); ok {
		t.Error("Expected no override before the catch-all directive")
	}
}

func TestMappingUnknownName(t *testing.T) {
	m := NewMapping()
	if _, ok := m.SeverityAt("never-mentioned", 0); ok {
		t.Error("Expected no override for an unknown diagnostic")
	}
}
