package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"silica/internal/source"
)

// ManifestName is the file looked up when walking toward the filesystem
// root.
const ManifestName = "silica.toml"

// Manifest is a loaded silica.toml plus where it was found.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the manifest layout.
type Config struct {
	Includes  IncludeConfig   `toml:"includes"`
	Libraries []LibraryConfig `toml:"library"`
}

// IncludeConfig lists include search directories. Entries may be exact
// paths or shell globs; relative entries resolve against the manifest root.
type IncludeConfig struct {
	System []string `toml:"system"`
	User   []string `toml:"user"`
}

// LibraryConfig declares one named source library.
type LibraryConfig struct {
	Name  string   `toml:"name"`
	Files []string `toml:"files"`
}

// Find walks from startDir toward the filesystem root looking for a
// manifest. A missing manifest is not an error; ok reports whether one was
// found.
func Find(startDir string) (*Manifest, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return Load(candidate)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil, false, nil
}

// Load reads and validates a manifest at an explicit path.
func Load(path string) (*Manifest, bool, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, true, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	for i, lib := range cfg.Libraries {
		if strings.TrimSpace(lib.Name) == "" {
			return nil, true, fmt.Errorf("%s: [[library]] entry %d is missing a name", path, i+1)
		}
	}
	return &Manifest{
		Path:   path,
		Root:   filepath.Dir(path),
		Config: cfg,
	}, true, nil
}

// Apply registers the manifest's include directories with the manager and
// returns the declared libraries keyed by name. Exact include paths that do
// not exist fail; glob entries that match nothing contribute nothing.
func (m *Manifest) Apply(sm *source.SourceManager) (map[string]*source.Library, error) {
	for _, pattern := range m.Config.Includes.System {
		if err := sm.AddSystemDirectories(m.resolve(pattern)); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
	}
	for _, pattern := range m.Config.Includes.User {
		if err := sm.AddUserDirectories(m.resolve(pattern)); err != nil {
			return nil, fmt.Errorf("%s: %w", m.Path, err)
		}
	}

	libraries := make(map[string]*source.Library, len(m.Config.Libraries))
	for _, lib := range m.Config.Libraries {
		libraries[lib.Name] = &source.Library{Name: lib.Name}
	}
	return libraries, nil
}

// LibraryFor returns which declared library claims the given file path, by
// matching the library file globs against the path relative to the manifest
// root. The first declaration wins.
func (m *Manifest) LibraryFor(path string, libraries map[string]*source.Library) *source.Library {
	rel, err := filepath.Rel(m.Root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, lib := range m.Config.Libraries {
		for _, pattern := range lib.Files {
			if ok, err := filepath.Match(pattern, rel); err == nil && ok {
				return libraries[lib.Name]
			}
		}
	}
	return nil
}

func (m *Manifest) resolve(pattern string) string {
	if filepath.IsAbs(pattern) {
		return pattern
	}
	return filepath.Join(m.Root, pattern)
}
