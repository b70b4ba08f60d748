package driver

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"silica/internal/source"
)

// LoadResult holds the outcome of loading one file into the manager.
type LoadResult struct {
	Path   string
	Buffer source.SourceBuffer
	Err    error
}

// ListSourceFiles returns every *.sv and *.svh file under root, sorted for
// deterministic order.
func ListSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(path, ".sv") || strings.HasSuffix(path, ".svh") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// LoadTree loads every source file under root into sm, at most jobs files in
// flight at once (jobs <= 0 means GOMAXPROCS). Per-file failures land in the
// corresponding LoadResult rather than aborting the whole walk; only a
// cancelled context stops early. The manager's cache guarantees each
// distinct path is read from disk once no matter how workers interleave.
func LoadTree(ctx context.Context, sm *source.SourceManager, root string, jobs int, cache *DiskCache) ([]LoadResult, error) {
	files, err := ListSourceFiles(root)
	if err != nil {
		return nil, err
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]LoadResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			buf, err := sm.ReadSource(path, nil)
			results[i] = LoadResult{Path: path, Buffer: buf, Err: err}
			if err == nil && cache != nil {
				// Cache write failures are not load failures.
				_ = cache.PutFile(path, buf.Data)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
