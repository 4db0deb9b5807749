package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/locus/pkg/adapters/fs"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/git"
)

// setupRepo creates an initialized repository in a fresh vault.
// It returns the repository and the root path of the vault.
func setupRepo(t *testing.T, opts ...func(*fs.Config)) (*fs.Repository, string) {
	t.Helper()

	vaultPath := filepath.Join(t.TempDir(), "vault")
	cfg := fs.Config{Path: vaultPath}
	for _, opt := range opts {
		opt(&cfg)
	}

	repo := fs.NewRepository(cfg)
	if err := repo.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return repo, vaultPath
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestInitialize(t *testing.T) {
	t.Run("Creates Directory if Missing", func(t *testing.T) {
		_, path := setupRepo(t)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Errorf("expected directory to be created at %s", path)
		}
	})

	t.Run("Fails if MustExist and Missing", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{
			Path:      filepath.Join(t.TempDir(), "missing"),
			MustExist: true,
		})
		if err := repo.Initialize(context.Background()); err == nil {
			t.Error("expected error when vault is missing")
		}
	})

	t.Run("Rejects Invalid Pattern", func(t *testing.T) {
		repo := fs.NewRepository(fs.Config{Path: t.TempDir(), Pattern: "[notes"})
		if err := repo.Initialize(context.Background()); err == nil {
			t.Error("expected error for malformed pattern")
		}
	})
}

func TestSaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo, vault := setupRepo(t)

	saved, err := repo.Save(ctx, core.Note{
		ID:       "errands/milk",
		Title:    "Buy milk",
		Content:  "Semi-skimmed.\n",
		Tags:     []string{"errands"},
		Location: &core.Location{Name: "Shop", Latitude: 37.42, Longitude: -122.08},
	})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.CreatedAt.IsZero() || saved.UpdatedAt.IsZero() {
		t.Errorf("expected timestamps to be stamped, got %+v", saved)
	}
	if _, err := os.Stat(filepath.Join(vault, "errands", "milk.md")); err != nil {
		t.Fatalf("expected note file on disk: %v", err)
	}

	got, err := repo.Get(ctx, "errands/milk")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Title != "Buy milk" || got.Content != "Semi-skimmed.\n" {
		t.Errorf("unexpected note: %+v", got)
	}
	if got.Location == nil || got.Location.Latitude != 37.42 {
		t.Errorf("location lost: %+v", got.Location)
	}

	// CreatedAt survives an update that does not carry it.
	time.Sleep(10 * time.Millisecond)
	updated, err := repo.Save(ctx, core.Note{ID: "errands/milk", Title: "Buy oat milk"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt changed: %v -> %v", saved.CreatedAt, updated.CreatedAt)
	}
	if !updated.UpdatedAt.After(saved.UpdatedAt) {
		t.Errorf("UpdatedAt not advanced: %v -> %v", saved.UpdatedAt, updated.UpdatedAt)
	}
}

func TestSaveGeneratesID(t *testing.T) {
	repo, _ := setupRepo(t)
	n, err := repo.Save(context.Background(), core.Note{Title: "anonymous"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n.ID == "" {
		t.Fatal("expected generated ID")
	}
	if _, err := repo.Get(context.Background(), n.ID); err != nil {
		t.Errorf("Get generated ID failed: %v", err)
	}
}

func TestInvalidIDs(t *testing.T) {
	repo, _ := setupRepo(t)
	for _, id := range []string{"../escape", "a/../../b", "/abs", ".locus/index", ".hidden/x"} {
		t.Run(id, func(t *testing.T) {
			_, err := repo.Save(context.Background(), core.Note{ID: id, Title: "x"})
			if !errors.Is(err, fs.ErrInvalidID) {
				t.Errorf("expected ErrInvalidID, got %v", err)
			}
		})
	}
}

func TestSaveRejectsInvalidLocation(t *testing.T) {
	repo, _ := setupRepo(t)
	_, err := repo.Save(context.Background(), core.Note{
		ID:       "far",
		Title:    "Nowhere",
		Location: &core.Location{Latitude: 91, Longitude: 0},
	})
	if !errors.Is(err, core.ErrInvalidLocation) {
		t.Errorf("expected ErrInvalidLocation, got %v", err)
	}
}

func TestGetMissing(t *testing.T) {
	repo, _ := setupRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	if !errors.Is(err, core.ErrNoteNotFound) {
		t.Errorf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestList(t *testing.T) {
	ctx := context.Background()
	repo, vault := setupRepo(t)

	writeFile(t, vault, "b.md", "---\ntitle: Bravo\ncreated_at: 2026-01-02T00:00:00Z\n---\n")
	writeFile(t, vault, "sub/a.md", "---\ntitle: Alpha\ncreated_at: 2026-01-01T00:00:00Z\n---\n")
	writeFile(t, vault, "c.md", "---\ntitle: [unclosed\n---\n")
	writeFile(t, vault, "notes.txt", "not a note")
	writeFile(t, vault, ".obsidian/skip.md", "---\ntitle: hidden\n---\n")
	writeFile(t, vault, ".locus-tmp-123", "partial")

	notes, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d: %+v", len(notes), notes)
	}
	if notes[0].ID != "sub/a" || notes[1].ID != "b" {
		t.Errorf("unexpected order: %s, %s", notes[0].ID, notes[1].ID)
	}

	if _, err := os.Stat(filepath.Join(vault, ".locus", "index.json")); err != nil {
		t.Errorf("expected index to be persisted: %v", err)
	}
}

func TestListPattern(t *testing.T) {
	repo, vault := setupRepo(t, func(c *fs.Config) { c.Pattern = "places/**/*.md" })
	writeFile(t, vault, "places/home.md", "---\ntitle: Home\n---\n")
	writeFile(t, vault, "journal/today.md", "---\ntitle: Today\n---\n")

	notes, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 || notes[0].ID != "places/home" {
		t.Errorf("expected only places/home, got %+v", notes)
	}
}

func TestListUsesIndexAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	repo, vault := setupRepo(t)
	writeFile(t, vault, "a.md", "---\ntitle: Alpha\n---\n")

	if _, err := repo.List(ctx); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	// A fresh repository reads from the index and still picks up edits.
	info, err := os.Stat(filepath.Join(vault, "a.md"))
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, vault, "a.md", "---\ntitle: Alpha Two\n---\n")
	later := info.ModTime().Add(2 * time.Second)
	if err := os.Chtimes(filepath.Join(vault, "a.md"), later, later); err != nil {
		t.Fatal(err)
	}

	reopened := fs.NewRepository(fs.Config{Path: vault})
	notes, err := reopened.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(notes) != 1 || notes[0].Title != "Alpha Two" {
		t.Errorf("expected edited note, got %+v", notes)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupRepo(t)

	if _, err := repo.Save(ctx, core.Note{ID: "gone", Title: "Gone"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := repo.Get(ctx, "gone"); !errors.Is(err, core.ErrNoteNotFound) {
		t.Errorf("expected note to be gone, got %v", err)
	}
	if err := repo.Delete(ctx, "gone"); !errors.Is(err, core.ErrNoteNotFound) {
		t.Errorf("expected ErrNoteNotFound on second delete, got %v", err)
	}
}

func TestReadOnly(t *testing.T) {
	ctx := context.Background()
	_, vault := setupRepo(t)
	writeFile(t, vault, "a.md", "---\ntitle: Alpha\n---\n")

	repo := fs.NewRepository(fs.Config{Path: vault, ReadOnly: true})
	if err := repo.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if _, err := repo.Save(ctx, core.Note{ID: "b", Title: "b"}); !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on Save, got %v", err)
	}
	if err := repo.Delete(ctx, "a"); !errors.Is(err, core.ErrReadOnly) {
		t.Errorf("expected ErrReadOnly on Delete, got %v", err)
	}
	notes, err := repo.List(ctx)
	if err != nil || len(notes) != 1 {
		t.Errorf("expected read access, got %d notes (err=%v)", len(notes), err)
	}
	if _, err := os.Stat(filepath.Join(vault, ".locus", "index.json")); !os.IsNotExist(err) {
		t.Error("read-only repository must not write its index")
	}
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	repo, vault := setupRepo(t)
	writeFile(t, vault, "keep.md", "---\ntitle: Keep\n---\n")
	writeFile(t, vault, "drop.md", "---\ntitle: Drop\n---\n")

	if _, err := repo.List(ctx); err != nil {
		t.Fatal(err)
	}

	writeFile(t, vault, "new.md", "---\ntitle: New\n---\n")
	if err := os.Remove(filepath.Join(vault, "drop.md")); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(filepath.Join(vault, "keep.md"), later, later); err != nil {
		t.Fatal(err)
	}

	events, err := repo.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	want := map[string]core.EventType{
		"drop": core.EventDelete,
		"keep": core.EventModify,
		"new":  core.EventCreate,
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), events)
	}
	for _, e := range events {
		if want[e.ID] != e.Type {
			t.Errorf("event for %s: got %s, want %s", e.ID, e.Type, want[e.ID])
		}
	}
}

func TestVersioned(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	repo, vault := setupRepo(t, func(c *fs.Config) { c.Versioned = true })

	if _, err := repo.Save(ctx, core.Note{ID: "home", Title: "Home"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := repo.List(ctx); err != nil {
		t.Fatal(err)
	}
	if err := repo.Delete(ctx, "home"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	client := git.NewClient(vault, git.DefaultLockName, nil)
	count, err := client.Run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		t.Fatalf("git rev-list failed: %v", err)
	}
	if count != "3" {
		t.Errorf("expected 3 commits (ignore, save, delete), got %s", count)
	}

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status != "" {
		t.Errorf("expected clean work tree, got:\n%s", status)
	}
}
