package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AddSystemDirectories adds one or more system include directories matching
// the given pattern. Patterns may be exact paths or shell globs; an exact
// path that does not exist or is not a directory is an error, while a glob
// matching nothing silently contributes zero directories.
func (sm *SourceManager) AddSystemDirectories(pattern string) error {
	return sm.addDirectories(pattern, true)
}

// AddUserDirectories adds one or more user include directories matching the
// given pattern, with the same exact-vs-glob error rules as
// AddSystemDirectories.
func (sm *SourceManager) AddUserDirectories(pattern string) error {
	return sm.addDirectories(pattern, false)
}

// SystemDirectories returns a copy of the registered system include
// directories, in registration order.
func (sm *SourceManager) SystemDirectories() []string {
	sm.dirMu.RLock()
	defer sm.dirMu.RUnlock()
	return append([]string(nil), sm.systemDirs...)
}

// UserDirectories returns a copy of the registered user include directories,
// in registration order.
func (sm *SourceManager) UserDirectories() []string {
	sm.dirMu.RLock()
	defer sm.dirMu.RUnlock()
	return append([]string(nil), sm.userDirs...)
}

func (sm *SourceManager) addDirectories(pattern string, system bool) error {
	var matches []string
	if hasGlobMeta(pattern) {
		expanded, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("include directory pattern %q: %w", pattern, err)
		}
		for _, match := range expanded {
			info, err := os.Stat(match)
			if err == nil && info.IsDir() {
				matches = append(matches, match)
			}
		}
	} else {
		info, err := os.Stat(pattern)
		if err != nil {
			return fmt.Errorf("include directory %q: %w", pattern, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("include directory %q: %w", pattern, errNotADirectory)
		}
		matches = append(matches, pattern)
	}

	// The same directory may legitimately sit in both lists, so the dedup
	// namespaces stay separate.
	keyPrefix := "user:"
	if system {
		keyPrefix = "system:"
	}

	sm.dirMu.Lock()
	defer sm.dirMu.Unlock()
	for _, dir := range matches {
		canonical, err := canonicalPath(dir)
		if err != nil {
			return fmt.Errorf("include directory %q: %w", dir, err)
		}
		// First registration wins position; repeats are cheap no-ops.
		if _, ok := sm.knownDirSet[keyPrefix+canonical]; ok {
			continue
		}
		sm.knownDirSet[keyPrefix+canonical] = struct{}{}
		if system {
			sm.systemDirs = append(sm.systemDirs, canonical)
		} else {
			sm.userDirs = append(sm.userDirs, canonical)
		}
	}
	return nil
}

func hasGlobMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

var errNotADirectory = fmt.Errorf("not a directory")
