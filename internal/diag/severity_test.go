package diag

import "testing"

func TestSeverityString(t *testing.T) {
	cases := []struct {
		sev  Severity
		want string
	}{
		{Ignored, "ignored"},
		{Note, "note"},
		{Warning, "warning"},
		{Error, "error"},
		{Fatal, "fatal"},
		{Severity(99), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.sev.String(); got != tc.want {
			t.Errorf("Severity(%d).String() = %q, want %q", tc.sev, got, tc.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	cases := []struct {
		in   string
		want Severity
	}{
		{"ignore", Ignored},
		{"IGNORED", Ignored},
		{"info", Note},
		{"note", Note},
		{"warn", Warning},
		{"Warning", Warning},
		{"error", Error},
		{"fatal", Fatal},
	}
	for _, tc := range cases {
		got, err := ParseSeverity(tc.in)
		if err != nil {
			t.Errorf("ParseSeverity(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseSeverity(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}

	if _, err := ParseSeverity("loud"); err == nil {
		t.Error("Expected an error for an unknown severity name")
	}
}
