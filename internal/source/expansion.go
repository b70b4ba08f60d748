package source

import "fmt"

// maxExpansionHops bounds the chain walks below. Real chains are only as
// deep as actual macro nesting; hitting the guard means the registry holds
// cyclic data, which is a bug worth a loud stop instead of a hang.
const maxExpansionHops = 1 << 16

// IsFileLoc determines whether the given location exists in a source file.
func (sm *SourceManager) IsFileLoc(loc SourceLocation) bool {
	if !loc.Valid() {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getEntry(loc.Buffer()).kind == entryFile
}

// IsMacroLoc determines whether the given location points to a macro
// expansion.
func (sm *SourceManager) IsMacroLoc(loc SourceLocation) bool {
	if !loc.Valid() {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getEntry(loc.Buffer()).kind == entryExpansion
}

// IsMacroArgLoc determines whether the given location points to a macro
// argument substitution.
func (sm *SourceManager) IsMacroArgLoc(loc SourceLocation) bool {
	if !loc.Valid() {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(loc.Buffer())
	return entry.kind == entryExpansion && entry.expansion.isMacroArg
}

// IsIncludedFileLoc determines whether the given location is inside an
// include file.
func (sm *SourceManager) IsIncludedFileLoc(loc SourceLocation) bool {
	if !loc.Valid() {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(loc.Buffer())
	return entry.kind == entryFile && entry.file.includedFrom.Valid()
}

// IsPreprocessedLoc determines whether the given location came from a macro
// expansion or an include file.
func (sm *SourceManager) IsPreprocessedLoc(loc SourceLocation) bool {
	if !loc.Valid() {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(loc.Buffer())
	return entry.kind == entryExpansion ||
		(entry.kind == entryFile && entry.file.includedFrom.Valid())
}

// GetExpansionLoc returns the start of the expansion range of a macro
// location: one hop toward where the text was expanded to. File locations
// are returned unchanged.
func (sm *SourceManager) GetExpansionLoc(loc SourceLocation) SourceLocation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.expansionLoc(loc)
}

// GetExpansionRange returns the full range the macro location was expanded
// over. loc must be a macro location.
func (sm *SourceManager) GetExpansionRange(loc SourceLocation) SourceRange {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(loc.Buffer())
	if entry.kind != entryExpansion {
		panic(fmt.Errorf("%s is a file buffer, macro expansion buffer required", loc.Buffer()))
	}
	return entry.expansion.expansionRange
}

// GetOriginalLoc returns where the text at a macro location was originally
// written: one hop toward the spelling site. File locations are returned
// unchanged.
func (sm *SourceManager) GetOriginalLoc(loc SourceLocation) SourceLocation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.originalLoc(loc)
}

// GetFullyOriginalLoc repeatedly hops toward the spelling site until it
// reaches a file location: where the character is actually written. Used
// for spelling and column reporting.
func (sm *SourceManager) GetFullyOriginalLoc(loc SourceLocation) SourceLocation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for hops := 0; sm.isMacroLocLocked(loc); hops++ {
		if hops >= maxExpansionHops {
			panic(fmt.Errorf("expansion chain from %s exceeds %d hops, registry data is cyclic", loc, maxExpansionHops))
		}
		loc = sm.originalLoc(loc)
	}
	return loc
}

// GetFullyExpandedLoc repeatedly hops toward the expansion site until it
// reaches a file location: where a diagnostic about the location should be
// anchored.
func (sm *SourceManager) GetFullyExpandedLoc(loc SourceLocation) SourceLocation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.fullyExpandedLoc(loc)
}

// GetMacroName returns the name of the macro a location was expanded from,
// or an empty string for file locations and anonymous argument
// substitutions.
func (sm *SourceManager) GetMacroName(loc SourceLocation) string {
	if !loc.Valid() {
		return ""
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(loc.Buffer())
	if entry.kind != entryExpansion {
		return ""
	}
	return entry.expansion.macroName
}

// Each hop below follows exactly one stored field: originalLoc when walking
// toward the spelling site, expansionRange.Start when walking toward the
// expansion site. Body-expansion and argument-substitution entries
// interleave freely in a chain because the two directions never mix within
// one walk.

func (sm *SourceManager) isMacroLocLocked(loc SourceLocation) bool {
	return loc.Valid() && sm.getEntry(loc.Buffer()).kind == entryExpansion
}

func (sm *SourceManager) expansionLoc(loc SourceLocation) SourceLocation {
	if !sm.isMacroLocLocked(loc) {
		return loc
	}
	return sm.getEntry(loc.Buffer()).expansion.expansionRange.Start
}

func (sm *SourceManager) originalLoc(loc SourceLocation) SourceLocation {
	if !sm.isMacroLocLocked(loc) {
		return loc
	}
	entry := sm.getEntry(loc.Buffer())
	// Positions inside the expansion keep their offset relative to the
	// original text.
	return entry.expansion.originalLoc.Add(int64(loc.Offset()))
}

func (sm *SourceManager) fullyExpandedLoc(loc SourceLocation) SourceLocation {
	for hops := 0; sm.isMacroLocLocked(loc); hops++ {
		if hops >= maxExpansionHops {
			panic(fmt.Errorf("expansion chain from %s exceeds %d hops, registry data is cyclic", loc, maxExpansionHops))
		}
		loc = sm.expansionLoc(loc)
	}
	return loc
}
