package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// GetLineNumber returns the reported line number for a location. Macro
// locations are first expanded out to their file expansion site; the raw
// line found by binary search over the line-start index is then adjusted by
// the nearest preceding `line directive, when one exists.
func (sm *SourceManager) GetLineNumber(loc SourceLocation) uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	loc = sm.fullyExpandedLoc(loc)
	info := sm.getFileInfo(loc.Buffer())
	rawLine := rawLineNumber(info.data, loc.Offset())

	directive := previousLineDirective(info.lineDirectives, rawLine)
	if directive == nil {
		return rawLine
	}
	return directive.LineOfDirective + (rawLine - directive.LineInFile)
}

// GetRawLineNumber returns the physical line number, ignoring any `line
// directive overrides. loc must be a file location.
func (sm *SourceManager) GetRawLineNumber(loc SourceLocation) uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	info := sm.getFileInfo(loc.Buffer())
	return rawLineNumber(info.data, loc.Offset())
}

// GetColumnNumber returns the 1-based byte column of a location.
// loc must be a file location.
func (sm *SourceManager) GetColumnNumber(loc SourceLocation) uint64 {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	info := sm.getFileInfo(loc.Buffer())
	offsets := info.data.LineOffsets()
	line := lineIndexFor(offsets, loc.Offset())
	return loc.Offset() - offsets[line] + 1
}

// GetFileName returns the file name to report for a location, honoring any
// `line directive in effect at it. Macro locations report the name of their
// file expansion site.
func (sm *SourceManager) GetFileName(loc SourceLocation) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	loc = sm.fullyExpandedLoc(loc)
	info := sm.getFileInfo(loc.Buffer())
	rawLine := rawLineNumber(info.data, loc.Offset())

	directive := previousLineDirective(info.lineDirectives, rawLine)
	if directive != nil && directive.Name != "" {
		return directive.Name
	}
	return sm.displayName(info.data)
}

// GetRawFileName returns the physical file name of a buffer, ignoring `line
// directives.
func (sm *SourceManager) GetRawFileName(buffer BufferID) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.displayName(sm.getFileInfo(buffer).data)
}

// displayName picks the name reported for a file. Unless proximate paths
// are disabled, an absolute path is shown relative to the current directory
// when that form is shorter.
func (sm *SourceManager) displayName(fd *FileData) string {
	if sm.disableProximatePaths.Load() || !filepath.IsAbs(fd.FullPath) {
		return fd.Name
	}
	wd, err := os.Getwd()
	if err != nil {
		return fd.Name
	}
	rel, err := filepath.Rel(wd, filepath.FromSlash(fd.FullPath))
	if err != nil || len(rel) >= len(fd.FullPath) {
		return fd.Name
	}
	return filepath.ToSlash(rel)
}

// AddLineDirective records the effect of a `line directive at the given
// location. loc must be a file location; reporting a `line directive from a
// macro buffer is a bug in the preprocessor.
func (sm *SourceManager) AddLineDirective(loc SourceLocation, lineOfDirective uint64, name string, level uint8) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	info := sm.getFileInfo(loc.Buffer())
	rawLine := rawLineNumber(info.data, loc.Offset())
	info.lineDirectives = append(info.lineDirectives, LineDirectiveInfo{
		Name:            name,
		LineInFile:      rawLine,
		LineOfDirective: lineOfDirective,
		Level:           level,
	})
}

// GetLineDirectives returns the `line directives recorded against a file
// buffer, in source order. The returned slice follows the same retention
// caveat as GetDiagnosticDirectives.
func (sm *SourceManager) GetLineDirectives(buffer BufferID) []LineDirectiveInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getFileInfo(buffer).lineDirectives
}

// rawLineNumber computes the 1-based physical line containing offset.
func rawLineNumber(fd *FileData, offset uint64) uint64 {
	return uint64(lineIndexFor(fd.LineOffsets(), offset)) + 1
}

// lineIndexFor finds the index of the last line start <= offset.
// offsets always holds at least the entry for line 1.
func lineIndexFor(offsets []uint64, offset uint64) int {
	i := sort.Search(len(offsets), func(i int) bool {
		return offsets[i] > offset
	})
	if i == 0 {
		panic(fmt.Errorf("line offset index missing line 1"))
	}
	return i - 1
}

// previousLineDirective returns the nearest directive recorded on a raw line
// strictly before rawLine, or nil. Directives arrive in source order, so the
// slice is sorted by LineInFile and a binary search suffices.
func previousLineDirective(directives []LineDirectiveInfo, rawLine uint64) *LineDirectiveInfo {
	i := sort.Search(len(directives), func(i int) bool {
		return directives[i].LineInFile >= rawLine
	})
	if i == 0 {
		return nil
	}
	return &directives[i-1]
}
