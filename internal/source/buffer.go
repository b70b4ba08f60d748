package source

import (
	"sync"

	"silica/internal/diag"
)

// Library is an attribution tag grouping source files for downstream policy
// decisions. It carries no compilation semantics in this layer.
type Library struct {
	Name string
}

// FileData holds the raw bytes and metadata for one loaded file. There is at
// most one FileData per canonical path; buffers created for repeated
// includes of the same file all reference the same record. FileData is
// immutable once created and lives for the whole compilation session.
type FileData struct {
	Name      string // file name as supplied by the loader
	Contents  []byte // decoded file contents
	Directory string // canonical directory containing the file
	FullPath  string // canonical full path

	lineOnce    sync.Once
	lineOffsets []uint64 // byte offset of the start of each line
}

// LineOffsets returns the cached line-start index, computing it on first use.
// Offset 0 is always the start of line 1.
func (fd *FileData) LineOffsets() []uint64 {
	fd.lineOnce.Do(func() {
		fd.lineOffsets = computeLineOffsets(fd.Contents)
	})
	return fd.lineOffsets
}

// SourceBuffer is the handle returned when a buffer is registered: the new
// buffer's identity, the decoded text it exposes, and the library the file
// was attributed to, if any.
type SourceBuffer struct {
	ID      BufferID
	Data    []byte
	Library *Library
}

// Valid reports whether the handle refers to an actual buffer.
func (sb SourceBuffer) Valid() bool {
	return sb.ID.Valid()
}

// LineDirectiveInfo records the effect of one `line directive on the buffer
// it appeared in.
type LineDirectiveInfo struct {
	Name            string // file name asserted by the directive
	LineInFile      uint64 // raw line number where the directive appeared
	LineOfDirective uint64 // line number the directive claims from here on
	Level           uint8  // 0 = flat, 1 = push new file context, 2 = pop
}

// Line directive nesting levels. Level 1 logically enters an included file
// and level 2 returns to the enclosing one; consumers resolving nested
// directive scopes must replicate that stack discipline.
const (
	LineDirectiveFlat uint8 = 0
	LineDirectivePush uint8 = 1
	LineDirectivePop  uint8 = 2
)

// DiagnosticDirectiveInfo records a `pragma diagnostic severity override.
type DiagnosticDirectiveInfo struct {
	Name     string        // name of the diagnostic being controlled
	Offset   uint64        // byte offset in the buffer where it occurred
	Severity diag.Severity // severity to apply from that point onward
}

type entryKind uint8

const (
	entryFile entryKind = iota
	entryExpansion
)

// fileInfo describes a file-backed buffer: which FileData it exposes, where
// it was included from (NoLocation for root files), and the line directives
// recorded against it. Several fileInfos can reference one FileData.
type fileInfo struct {
	data           *FileData
	library        *Library
	includedFrom   SourceLocation
	lineDirectives []LineDirectiveInfo
}

// expansionInfo describes a macro buffer. Used in two senses: for an
// ordinary body expansion originalLoc points inside the macro definition and
// expansionRange spans the invocation site; for an argument substitution
// originalLoc points at the argument text at the invocation site and
// expansionRange spans the parameter inside the macro body. isMacroArg
// discriminates the two.
type expansionInfo struct {
	originalLoc    SourceLocation
	expansionRange SourceRange
	isMacroArg     bool
	macroName      string // empty for anonymous argument substitutions
}

// bufferEntry is the registry's closed tagged union: exactly one of the two
// variants is populated according to kind. Entries are appended and never
// removed; the only in-place mutation is appending line directives to a
// fileInfo.
type bufferEntry struct {
	kind      entryKind
	file      fileInfo
	expansion expansionInfo
}

func computeLineOffsets(content []byte) []uint64 {
	offsets := make([]uint64, 1, 64)
	offsets[0] = 0
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, uint64(i)+1)
		}
	}
	return offsets
}
