package driver

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"silica/internal/source"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", rel, err)
		}
	}
}

func TestListSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"b/top.sv":     "module top; endmodule\n",
		"a/defs.svh":   "`define X 1\n",
		"a/ignore.txt": "not verilog",
	})

	files, err := ListSourceFiles(root)
	if err != nil {
		t.Fatalf("ListSourceFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("Expected 2 files, got %d: %v", len(files), files)
	}
	// Sorted order: a/defs.svh before b/top.sv.
	if filepath.Base(files[0]) != "defs.svh" || filepath.Base(files[1]) != "top.sv" {
		t.Errorf("Unexpected order: %v", files)
	}
}

func TestLoadTree(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"one.sv": "module one; endmodule\n",
		"two.sv": "module two; endmodule\n",
	})

	sm := source.NewSourceManager()
	results, err := LoadTree(context.Background(), sm, root, 4, nil)
	if err != nil {
		t.Fatalf("LoadTree failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	for _, res := range results {
		if res.Err != nil {
			t.Errorf("Load of %s failed: %v", res.Path, res.Err)
		}
		if !res.Buffer.Valid() {
			t.Errorf("Expected a valid buffer for %s", res.Path)
		}
	}
	if got := len(sm.GetAllBuffers()); got != 2 {
		t.Errorf("Expected 2 buffers in the manager, got %d", got)
	}
}

func TestLoadTreeRecordsFailures(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"ok.sv": "module ok; endmodule\n"})
	// A dangling symlink trips the loader but must not abort the rest of
	// the walk.
	if err := os.Symlink(filepath.Join(root, "gone.sv"), filepath.Join(root, "broken.sv")); err != nil {
		t.Fatalf("Failed to create dangling symlink: %v", err)
	}

	sm := source.NewSourceManager()
	results, err := LoadTree(context.Background(), sm, root, 2, nil)
	if err != nil {
		t.Fatalf("LoadTree failed: %v", err)
	}

	var failures, successes int
	for _, res := range results {
		if res.Err != nil {
			failures++
		} else {
			successes++
		}
	}
	if successes != 1 || failures != 1 {
		t.Errorf("Expected 1 success and 1 failure, got %d/%d", successes, failures)
	}
}

func TestLoadTreeWithCache(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"c.sv": "line\nline\n"})

	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt failed: %v", err)
	}

	sm := source.NewSourceManager()
	if _, err := LoadTree(context.Background(), sm, root, 1, cache); err != nil {
		t.Fatalf("LoadTree failed: %v", err)
	}

	path := filepath.Join(root, "c.sv")
	if !cache.Fresh(path) {
		t.Error("Expected the cache entry to be fresh right after loading")
	}
	var payload FilePayload
	ok, err := cache.Get(path, &payload)
	if err != nil || !ok {
		t.Fatalf("Expected a cache entry, got ok=%v err=%v", ok, err)
	}
	if len(payload.LineOffsets) != 3 {
		t.Errorf("Expected 3 line offsets, got %v", payload.LineOffsets)
	}
}
