package fs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/locus/pkg/core"
)

func TestCache_Load(t *testing.T) {
	t.Run("Starts Empty if File Missing", func(t *testing.T) {
		c := newCache(t.TempDir(), ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries, got %d", c.Len())
		}
	})

	t.Run("Resets on Corrupted JSON", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		os.MkdirAll(cacheDir, 0755)
		os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte("{ invalid json"), 0644)

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected empty entries after corruption, got %d", c.Len())
		}
	})

	t.Run("Resets on Version Mismatch", func(t *testing.T) {
		tmpDir := t.TempDir()
		cacheDir := filepath.Join(tmpDir, ".cache")
		os.MkdirAll(cacheDir, 0755)
		os.WriteFile(filepath.Join(cacheDir, "index.json"), []byte(`{"version": 99, "entries": {"a.md": {}}}`), 0644)

		c := newCache(tmpDir, ".cache")
		if err := c.Load(); err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("Expected old index to be discarded, got %d entries", c.Len())
		}
	})
}

func TestCache_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	mtime := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	c := newCache(tmpDir, ".cache")
	c.Set("a.md", core.Note{ID: "a", Title: "Alpha", Location: &core.Location{Latitude: 1, Longitude: 2}}, mtime)
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded := newCache(tmpDir, ".cache")
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	n, ok := loaded.Get("a.md", mtime)
	if !ok {
		t.Fatal("Expected cache hit")
	}
	if n.Title != "Alpha" || n.Location == nil || n.Location.Longitude != 2 {
		t.Errorf("Unexpected cached note: %+v", n)
	}

	if _, ok := loaded.Get("a.md", mtime.Add(time.Second)); ok {
		t.Error("Expected miss for a different mtime")
	}
}

func TestCache_SaveOnlyWhenDirty(t *testing.T) {
	tmpDir := t.TempDir()
	c := newCache(tmpDir, ".cache")

	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(c.Path); !os.IsNotExist(err) {
		t.Error("Clean cache should not be written")
	}

	c.Set("a.md", core.Note{ID: "a"}, time.Now())
	c.Prune(map[string]bool{})
	if c.Len() != 0 {
		t.Errorf("Expected pruned cache, got %d entries", c.Len())
	}
	if err := c.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(c.Path); err != nil {
		t.Errorf("Dirty cache should be written: %v", err)
	}
}
