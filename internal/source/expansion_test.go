package source

import (
	"strings"
	"testing"
)

// expandMacro mimics what the preprocessor does for `define M a+b expanded
// at the given invocation site: one expansion buffer whose original location
// points into the macro body text.
func expandMacro(sm *SourceManager, name string, bodyLoc SourceLocation, site SourceRange) SourceLocation {
	return sm.CreateExpansionLocForMacro(bodyLoc, site, name)
}

func TestMacroExpansionScenario(t *testing.T) {
	sm := NewSourceManager()

	// Macro body "a+b" lives on line 1; the invocation `M sits on raw
	// line 5.
	text := "`define M a+b\n// 2\n// 3\n// 4\n`M\n"
	buf := sm.AssignText("macro.sv", text, NoLocation, nil)

	bodyOffset := uint64(strings.Index(text, "a+b"))
	siteOffset := uint64(strings.Index(text, "`M"))
	bodyLoc := NewSourceLocation(buf.ID, bodyOffset)
	site := RangeAt(NewSourceLocation(buf.ID, siteOffset), 2)

	macroLoc := expandMacro(sm, "M", bodyLoc, site)

	if !sm.IsMacroLoc(macroLoc) {
		t.Fatal("Expected a macro location")
	}
	if sm.IsFileLoc(macroLoc) {
		t.Error("Expected the macro location not to be a file location")
	}
	if sm.IsMacroArgLoc(macroLoc) {
		t.Error("Expected a body expansion, not an argument substitution")
	}

	// The '+' one byte into the expansion spells one byte into the body.
	plus := macroLoc.Add(1)
	orig := sm.GetFullyOriginalLoc(plus)
	if !sm.IsFileLoc(orig) {
		t.Fatal("Expected the fully original location to be a file location")
	}
	if orig.Offset() != bodyOffset+1 {
		t.Errorf("Expected original offset %d, got %d", bodyOffset+1, orig.Offset())
	}

	// Diagnostics anchor at the invocation site on line 5.
	expanded := sm.GetFullyExpandedLoc(plus)
	if !sm.IsFileLoc(expanded) {
		t.Fatal("Expected the fully expanded location to be a file location")
	}
	if line := sm.GetLineNumber(expanded); line != 5 {
		t.Errorf("Expected the expansion site on line 5, got %d", line)
	}

	if name := sm.GetMacroName(macroLoc); name != "M" {
		t.Errorf("Expected macro name M, got %q", name)
	}
}

func TestMacroArgumentSubstitution(t *testing.T) {
	sm := NewSourceManager()
	text := "`define INC(x) x+1\n`INC(foo)\n"
	buf := sm.AssignText("arg.sv", text, NoLocation, nil)

	argOffset := uint64(strings.Index(text, "foo"))
	paramOffset := uint64(strings.Index(text, "x+1"))

	// Argument substitution: original points at the argument text at the
	// invocation site, the range spans the parameter in the macro body.
	argLoc := sm.CreateExpansionLoc(
		NewSourceLocation(buf.ID, argOffset),
		RangeAt(NewSourceLocation(buf.ID, paramOffset), 1),
		true)

	if !sm.IsMacroArgLoc(argLoc) {
		t.Error("Expected an argument-substitution location")
	}
	if name := sm.GetMacroName(argLoc); name != "" {
		t.Errorf("Expected no macro name for an anonymous substitution, got %q", name)
	}

	orig := sm.GetOriginalLoc(argLoc)
	if orig.Offset() != argOffset {
		t.Errorf("Expected the original hop to reach the argument at %d, got %d", argOffset, orig.Offset())
	}
}

func TestNestedExpansionChain(t *testing.T) {
	sm := NewSourceManager()
	text := "`define A 1\n`define B `A\n`B\n"
	buf := sm.AssignText("nest.sv", text, NoLocation, nil)

	bodyB := NewSourceLocation(buf.ID, uint64(strings.Index(text, "`A")))
	bodyA := NewSourceLocation(buf.ID, uint64(strings.Index(text, "1\n")))
	siteB := RangeAt(NewSourceLocation(buf.ID, uint64(strings.LastIndex(text, "`B"))), 2)

	// `B expands at the file site, then `A expands inside B's body.
	expB := expandMacro(sm, "B", bodyB, siteB)
	expA := expandMacro(sm, "A", bodyA, RangeAt(expB, 2))

	orig := sm.GetFullyOriginalLoc(expA)
	if !sm.IsFileLoc(orig) {
		t.Fatal("Expected the chain to terminate at a file location")
	}
	if orig != bodyA {
		t.Errorf("Expected the fully original location %v, got %v", bodyA, orig)
	}

	expanded := sm.GetFullyExpandedLoc(expA)
	if !sm.IsFileLoc(expanded) {
		t.Fatal("Expected the expansion chain to terminate at a file location")
	}
	if expanded != siteB.Start {
		t.Errorf("Expected the fully expanded location %v, got %v", siteB.Start, expanded)
	}

	// One-hop queries move exactly one level.
	if hop := sm.GetExpansionLoc(expA); hop != expB {
		t.Errorf("Expected one expansion hop to reach %v, got %v", expB, hop)
	}
	if name := sm.GetMacroName(expA); name != "A" {
		t.Errorf("Expected the innermost macro name A, got %q", name)
	}
}

func TestTraversalsTerminateAtFiles(t *testing.T) {
	sm := NewSourceManager()
	buf := sm.AssignText("t.sv", "abcdef\n", NoLocation, nil)

	loc := NewSourceLocation(buf.ID, 2)
	for depth := 0; depth < 10; depth++ {
		loc = sm.CreateExpansionLoc(loc, RangeAt(loc, 1), depth%2 == 0)
	}

	if !sm.IsFileLoc(sm.GetFullyOriginalLoc(loc)) {
		t.Error("Expected GetFullyOriginalLoc to terminate at a file location")
	}
	if !sm.IsFileLoc(sm.GetFullyExpandedLoc(loc)) {
		t.Error("Expected GetFullyExpandedLoc to terminate at a file location")
	}
}

func TestFileLocIdentityHops(t *testing.T) {
	sm := NewSourceManager()
	buf := sm.AssignText("id.sv", "xyz\n", NoLocation, nil)
	loc := NewSourceLocation(buf.ID, 1)

	if got := sm.GetExpansionLoc(loc); got != loc {
		t.Errorf("Expected a file location to expand to itself, got %v", got)
	}
	if got := sm.GetOriginalLoc(loc); got != loc {
		t.Errorf("Expected a file location to originate at itself, got %v", got)
	}
	if got := sm.GetFullyOriginalLoc(loc); got != loc {
		t.Errorf("Expected a file location to be fully original, got %v", got)
	}
	if name := sm.GetMacroName(loc); name != "" {
		t.Errorf("Expected no macro name for a file location, got %q", name)
	}
}

func TestGetExpansionRange(t *testing.T) {
	sm := NewSourceManager()
	buf := sm.AssignText("r.sv", "span here\n", NoLocation, nil)
	site := RangeAt(NewSourceLocation(buf.ID, 5), 4)
	macroLoc := expandMacro(sm, "HERE", NewSourceLocation(buf.ID, 0), site)

	if got := sm.GetExpansionRange(macroLoc); got != site {
		t.Errorf("Expected expansion range %v, got %v", site, got)
	}
}

func TestIsPreprocessedLoc(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inc.svh", "// header\n")

	sm := NewSourceManager()
	root := sm.AssignText("root.sv", "`include \"inc.svh\"\n", NoLocation, nil)
	rootLoc := NewSourceLocation(root.ID, 0)
	if sm.IsPreprocessedLoc(rootLoc) {
		t.Error("Expected a root file location not to be preprocessed")
	}

	if err := sm.AddUserDirectories(dir); err != nil {
		t.Fatalf("AddUserDirectories failed: %v", err)
	}
	inc, err := sm.ReadHeader("inc.svh", rootLoc, nil, false, nil)
	if err != nil {
		t.Fatalf("Include failed: %v", err)
	}
	if !sm.IsPreprocessedLoc(NewSourceLocation(inc.ID, 0)) {
		t.Error("Expected an included-file location to be preprocessed")
	}

	macroLoc := sm.CreateExpansionLoc(rootLoc, RangeAt(rootLoc, 1), false)
	if !sm.IsPreprocessedLoc(macroLoc) {
		t.Error("Expected a macro location to be preprocessed")
	}
}
