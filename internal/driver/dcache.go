package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when FilePayload format changes.
const diskCacheSchemaVersion uint16 = 1

// DiskCache persists per-file digests and line indexes between runs, so a
// warm start can tell which files changed without re-reading them.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// FilePayload is the cached metadata for one source file.
type FilePayload struct {
	// Schema version for safe invalidation when the format changes.
	Schema uint16

	Path        string
	Size        int64
	ModTimeUnix int64
	Digest      [32]byte

	// Byte offset of the start of each line, so a warm start can skip
	// rebuilding the index for unchanged files.
	LineOffsets []uint64
}

// OpenDiskCache initializes and returns a disk cache at the standard
// location for the given application name.
func OpenDiskCache(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, app)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDiskCacheAt returns a disk cache rooted at an explicit directory.
func OpenDiskCacheAt(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(path string) string {
	key := sha256.Sum256([]byte(path))
	hexKey := hex.EncodeToString(key[:])
	// Grouped under "files" for readability and easy cleanup.
	return filepath.Join(c.dir, "files", hexKey+".mp")
}

// PutFile digests content and stores the payload for path.
func (c *DiskCache) PutFile(path string, content []byte) error {
	if c == nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	payload := &FilePayload{
		Schema:      diskCacheSchemaVersion,
		Path:        path,
		Size:        info.Size(),
		ModTimeUnix: info.ModTime().Unix(),
		Digest:      sha256.Sum256(content),
		LineOffsets: lineOffsetsOf(content),
	}
	return c.put(path, payload)
}

func (c *DiskCache) put(path string, payload *FilePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(path)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Atomic replacement.
	return os.Rename(f.Name(), p)
}

// Get reads the payload cached for path. Returns false when the path has no
// entry or the entry's schema is stale.
func (c *DiskCache) Get(path string, out *FilePayload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	if out.Schema != diskCacheSchemaVersion {
		return false, nil
	}
	return true, nil
}

// Fresh reports whether the cached entry for path still matches the file on
// disk, judged by size and modification time.
func (c *DiskCache) Fresh(path string) bool {
	var payload FilePayload
	ok, err := c.Get(path, &payload)
	if err != nil || !ok {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() == payload.Size && info.ModTime().Unix() == payload.ModTimeUnix
}

func lineOffsetsOf(content []byte) []uint64 {
	offsets := []uint64{0}
	for i, b := range content {
		if b == '\n' {
			offsets = append(offsets, uint64(i)+1)
		}
	}
	return offsets
}
