package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"fortio.org/safecast"

	"silica/internal/diag"
)

// SourceManager handles loading and tracking source buffers for one
// compilation session.
//
// It abstracts away the differences between locations in files and locations
// generated by macro expansion: both are addressed by BufferID through one
// append-only registry, and every query that maps a SourceLocation back to
// human-meaningful file/line/column goes through it. Methods are safe for
// concurrent use unless noted otherwise.
type SourceManager struct {
	// mu guards the buffer registry, the file cache, and the directive
	// tables. The include directory lists live behind their own lock in
	// dirs.go; directory reads are far more frequent than writes and must
	// not contend with buffer churn.
	mu sync.RWMutex

	// entries[0] is a placeholder so that BufferID 0 stays "no buffer".
	entries []bufferEntry

	// lookupCache deduplicates loads by canonical full path. Failed loads
	// are cached too, so repeated misses don't touch storage again.
	lookupCache map[string]*cachedLookup

	// diagDirectives maps a buffer to its recorded severity overrides, in
	// source order.
	diagDirectives map[BufferID][]DiagnosticDirectiveInfo

	dirMu       sync.RWMutex
	systemDirs  []string
	userDirs    []string
	knownDirSet map[string]struct{}

	unnamedBufferCount    atomic.Uint32
	disableProximatePaths atomic.Bool
}

// cachedLookup remembers the outcome of loading one canonical path: either
// the owned FileData, or the error the load failed with. firstBuffer is the
// buffer handed out for the first plain (non-include) read of the path, so
// repeated reads stay idempotent.
type cachedLookup struct {
	data        *FileData
	err         error
	firstBuffer SourceBuffer
}

// NewSourceManager creates an empty manager. Each compilation session owns
// one instance; tests construct isolated ones.
func NewSourceManager() *SourceManager {
	return &SourceManager{
		entries:        make([]bufferEntry, 1), // index 0 reserved
		lookupCache:    make(map[string]*cachedLookup),
		diagDirectives: make(map[BufferID][]DiagnosticDirectiveInfo),
		knownDirSet:    make(map[string]struct{}),
	}
}

// SetDisableProximatePaths controls whether file names are made proximate to
// the current directory for reporting purposes. Proximate paths are on by
// default.
func (sm *SourceManager) SetDisableProximatePaths(disable bool) {
	sm.disableProximatePaths.Store(disable)
}

// getEntry resolves a BufferID to its registry entry. An ID that does not
// refer to a live entry is a contract violation in the caller, not a
// recoverable error. Callers must hold sm.mu.
func (sm *SourceManager) getEntry(buffer BufferID) *bufferEntry {
	if !buffer.Valid() || int(buffer) >= len(sm.entries) {
		panic(fmt.Errorf("dereference of invalid %s (registry holds %d entries)", buffer, len(sm.entries)-1))
	}
	return &sm.entries[buffer]
}

// getFileInfo resolves a BufferID that must name a file buffer.
// Callers must hold sm.mu.
func (sm *SourceManager) getFileInfo(buffer BufferID) *fileInfo {
	entry := sm.getEntry(buffer)
	if entry.kind != entryFile {
		panic(fmt.Errorf("%s is a macro expansion buffer, file buffer required", buffer))
	}
	return &entry.file
}

// appendEntry adds one registry entry and returns its fresh BufferID.
// Callers must hold sm.mu for writing.
func (sm *SourceManager) appendEntry(entry bufferEntry) BufferID {
	if len(sm.entries) > MaxBuffers {
		panic(fmt.Errorf("buffer registry exhausted at %d entries", MaxBuffers))
	}
	id, err := safecast.Conv[uint32](len(sm.entries))
	if err != nil {
		panic(fmt.Errorf("buffer count overflow: %w", err))
	}
	sm.entries = append(sm.entries, entry)
	return BufferID(id)
}

// createFileEntry registers a new file-backed buffer for fd.
// Callers must hold sm.mu for writing.
func (sm *SourceManager) createFileEntry(fd *FileData, includedFrom SourceLocation, library *Library) SourceBuffer {
	id := sm.appendEntry(bufferEntry{
		kind: entryFile,
		file: fileInfo{data: fd, library: library, includedFrom: includedFrom},
	})
	return SourceBuffer{ID: id, Data: fd.Contents, Library: library}
}

// CreateExpansionLoc registers a macro expansion buffer and returns the
// location of its first character. originalLoc points inside the macro
// definition (or, for argument substitutions, at the argument text at the
// invocation site); expansionRange spans the other side of that relation.
func (sm *SourceManager) CreateExpansionLoc(originalLoc SourceLocation, expansionRange SourceRange, isMacroArg bool) SourceLocation {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	id := sm.appendEntry(bufferEntry{
		kind:      entryExpansion,
		expansion: expansionInfo{originalLoc: originalLoc, expansionRange: expansionRange, isMacroArg: isMacroArg},
	})
	return NewSourceLocation(id, 0)
}

// CreateExpansionLocForMacro is the named form of CreateExpansionLoc, used
// when the expansion stands in for a specific macro's body.
func (sm *SourceManager) CreateExpansionLocForMacro(originalLoc SourceLocation, expansionRange SourceRange, macroName string) SourceLocation {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	id := sm.appendEntry(bufferEntry{
		kind:      entryExpansion,
		expansion: expansionInfo{originalLoc: originalLoc, expansionRange: expansionRange, macroName: macroName},
	})
	return NewSourceLocation(id, 0)
}

// AssignText registers text already in memory as a buffer, pretending it
// came from a file located at path. An empty path is replaced with a unique
// synthetic "<unnamed_bufferN>" name so every buffer stays nameable.
func (sm *SourceManager) AssignText(path, text string, includedFrom SourceLocation, library *Library) SourceBuffer {
	return sm.AssignBuffer(path, []byte(text), includedFrom, library)
}

// AssignBuffer is AssignText for callers that already own the byte slice.
// The manager takes ownership of content.
func (sm *SourceManager) AssignBuffer(path string, content []byte, includedFrom SourceLocation, library *Library) SourceBuffer {
	if path == "" {
		path = fmt.Sprintf("<unnamed_buffer%d>", sm.unnamedBufferCount.Add(1)-1)
	}

	fd := &FileData{
		Name:      filepath.Base(path),
		Contents:  content,
		Directory: filepath.ToSlash(filepath.Dir(path)),
		FullPath:  filepath.ToSlash(path),
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	// In-memory buffers join the cache under their pretend path so that
	// later reads of the same name resolve without touching storage.
	buf := sm.createFileEntry(fd, includedFrom, library)
	if _, ok := sm.lookupCache[fd.FullPath]; !ok {
		sm.lookupCache[fd.FullPath] = &cachedLookup{data: fd, firstBuffer: buf}
	}
	return buf
}

// ReadSource reads a source file from disk. Loads are content-addressed by
// canonical full path: a repeated read of the same path returns the
// previously created buffer without touching storage.
func (sm *SourceManager) ReadSource(path string, library *Library) (SourceBuffer, error) {
	fullPath, err := canonicalPath(path)
	if err != nil {
		return SourceBuffer{}, fmt.Errorf("resolve %q: %w", path, err)
	}
	return sm.openCached(fullPath, NoLocation, library)
}

// ReadHeader resolves a header name against the include search directories
// and loads it. Resolution order: the per-include-site extra directories
// first, then (for quoted includes) the directory of the including file,
// then the registered system or user directory list depending on the
// include style. The first directory containing the file wins.
func (sm *SourceManager) ReadHeader(name string, includedFrom SourceLocation, library *Library, isSystemPath bool, extraDirs []string) (SourceBuffer, error) {
	if name == "" {
		return SourceBuffer{}, fmt.Errorf("empty include file name")
	}

	if filepath.IsAbs(name) {
		fullPath, err := canonicalPath(name)
		if err != nil {
			return SourceBuffer{}, fmt.Errorf("resolve %q: %w", name, err)
		}
		return sm.openCached(fullPath, includedFrom, library)
	}

	var searchDirs []string
	searchDirs = append(searchDirs, extraDirs...)
	if !isSystemPath {
		if dir, ok := sm.includingFileDirectory(includedFrom); ok {
			searchDirs = append(searchDirs, dir)
		}
	}
	sm.dirMu.RLock()
	if isSystemPath {
		searchDirs = append(searchDirs, sm.systemDirs...)
	} else {
		searchDirs = append(searchDirs, sm.userDirs...)
	}
	sm.dirMu.RUnlock()

	var firstErr error
	for _, dir := range searchDirs {
		fullPath, err := canonicalPath(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		buf, err := sm.openCached(fullPath, includedFrom, library)
		if err == nil {
			return buf, nil
		}
		if firstErr == nil && !os.IsNotExist(err) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return SourceBuffer{}, firstErr
	}
	return SourceBuffer{}, fmt.Errorf("include %q: %w", name, os.ErrNotExist)
}

// includingFileDirectory returns the directory of the file containing the
// include site, when that site is itself in a file buffer.
func (sm *SourceManager) includingFileDirectory(includedFrom SourceLocation) (string, bool) {
	if !includedFrom.Valid() {
		return "", false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	if int(includedFrom.Buffer()) >= len(sm.entries) {
		return "", false
	}
	entry := &sm.entries[includedFrom.Buffer()]
	if entry.kind != entryFile || entry.file.data.Directory == "" {
		return "", false
	}
	return entry.file.data.Directory, true
}

// openCached returns a buffer for the canonical path, loading and caching
// the bytes on first use. Plain reads (includedFrom == NoLocation) of an
// already-loaded path return the original buffer; include-site reads get a
// fresh buffer sharing the same FileData, so each include records where it
// happened.
func (sm *SourceManager) openCached(fullPath string, includedFrom SourceLocation, library *Library) (SourceBuffer, error) {
	sm.mu.RLock()
	cached, ok := sm.lookupCache[fullPath]
	sm.mu.RUnlock()
	if ok {
		return sm.bufferFromCache(cached, includedFrom, library)
	}

	// Load outside the lock; a concurrent racer may beat us to the cache,
	// in which case our copy is discarded and theirs wins.
	fd, loadErr := loadFile(fullPath)

	sm.mu.Lock()
	if racer, ok := sm.lookupCache[fullPath]; ok {
		sm.mu.Unlock()
		return sm.bufferFromCache(racer, includedFrom, library)
	}
	cached = &cachedLookup{data: fd, err: loadErr}
	if loadErr == nil && !includedFrom.Valid() {
		cached.firstBuffer = sm.createFileEntry(fd, includedFrom, library)
	}
	sm.lookupCache[fullPath] = cached
	var buf SourceBuffer
	if loadErr == nil {
		if cached.firstBuffer.Valid() {
			buf = cached.firstBuffer
		} else {
			buf = sm.createFileEntry(fd, includedFrom, library)
		}
	}
	sm.mu.Unlock()
	return buf, loadErr
}

func (sm *SourceManager) bufferFromCache(cached *cachedLookup, includedFrom SourceLocation, library *Library) (SourceBuffer, error) {
	if cached.err != nil {
		return SourceBuffer{}, cached.err
	}
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if !includedFrom.Valid() && cached.firstBuffer.Valid() {
		return cached.firstBuffer, nil
	}
	buf := sm.createFileEntry(cached.data, includedFrom, library)
	if !includedFrom.Valid() {
		cached.firstBuffer = buf
	}
	return buf, nil
}

// loadFile reads and decodes one file from disk.
func loadFile(fullPath string) (*FileData, error) {
	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s: %w", fullPath, errIsDirectory)
	}

	// #nosec G304 -- path is provided by the caller
	raw, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	content, err := decodeSource(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fullPath, err)
	}

	return &FileData{
		Name:      filepath.Base(fullPath),
		Contents:  content,
		Directory: filepath.ToSlash(filepath.Dir(fullPath)),
		FullPath:  fullPath,
	}, nil
}

// IsCached reports whether the given path has already been loaded (or has
// already failed to load) by this manager.
func (sm *SourceManager) IsCached(path string) bool {
	fullPath, err := canonicalPath(path)
	if err != nil {
		return false
	}
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.lookupCache[fullPath]
	return ok
}

// GetSourceText returns the decoded text of a file buffer.
func (sm *SourceManager) GetSourceText(buffer BufferID) []byte {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getFileInfo(buffer).data.Contents
}

// GetAllBuffers returns the identities of every buffer created so far, files
// and macro expansions alike, in creation order.
func (sm *SourceManager) GetAllBuffers() []BufferID {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	ids := make([]BufferID, 0, len(sm.entries)-1)
	for i := 1; i < len(sm.entries); i++ {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("buffer index overflow: %w", err))
		}
		ids = append(ids, BufferID(id))
	}
	return ids
}

// GetIncludedFrom returns the location from which the given file buffer was
// included, or NoLocation for root files.
func (sm *SourceManager) GetIncludedFrom(buffer BufferID) SourceLocation {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.getFileInfo(buffer).includedFrom
}

// GetLibraryFor returns the source library the buffer belongs to, or nil if
// it is not part of any library or is not a file buffer.
func (sm *SourceManager) GetLibraryFor(buffer BufferID) *Library {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(buffer)
	if entry.kind != entryFile {
		return nil
	}
	return entry.file.library
}

// GetFullPath returns the canonical full path of a file buffer, or an empty
// string for macro expansion buffers. It does not take `line directives into
// account.
func (sm *SourceManager) GetFullPath(buffer BufferID) string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	entry := sm.getEntry(buffer)
	if entry.kind != entryFile {
		return ""
	}
	return entry.file.data.FullPath
}

// AddDiagnosticDirective records a `pragma diagnostic severity override at
// the given location. Directives must be recorded in source order.
func (sm *SourceManager) AddDiagnosticDirective(loc SourceLocation, name string, severity diag.Severity) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	buffer := loc.Buffer()
	sm.getEntry(buffer) // validate
	sm.diagDirectives[buffer] = append(sm.diagDirectives[buffer], DiagnosticDirectiveInfo{
		Name:     name,
		Offset:   loc.Offset(),
		Severity: severity,
	})
}

// GetDiagnosticDirectives returns the directives recorded against one
// buffer, in source order. The returned slice is not copied: callers must
// not retain it across a later AddDiagnosticDirective, which may reallocate
// the backing storage.
func (sm *SourceManager) GetDiagnosticDirectives(buffer BufferID) []DiagnosticDirectiveInfo {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.diagDirectives[buffer]
}

// VisitDiagnosticDirectives invokes fn for each buffer holding diagnostic
// directives. The slice passed to fn follows the same retention caveat as
// GetDiagnosticDirectives.
func (sm *SourceManager) VisitDiagnosticDirectives(fn func(buffer BufferID, directives []DiagnosticDirectiveInfo)) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for buffer, directives := range sm.diagDirectives {
		fn(buffer, directives)
	}
}

var errIsDirectory = fmt.Errorf("is a directory")

func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(abs), nil
}
