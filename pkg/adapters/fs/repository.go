// Package fs stores notes as markdown files with YAML frontmatter in a directory
// (the vault). Note IDs are slash-separated paths relative to the vault, without
// the .md extension.
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/git"
)

const (
	// DefaultPattern selects the note files of a vault.
	DefaultPattern = "**/*.md"
	// DefaultSystemDir holds the index cache and is never scanned for notes.
	DefaultSystemDir = ".locus"
	noteExt          = ".md"
)

// ErrInvalidID is returned for IDs that would escape the vault.
var ErrInvalidID = errors.New("invalid note id")

// Config holds the configuration for the filesystem repository.
type Config struct {
	Path      string
	MustExist bool
	// Pattern is a doublestar glob matched against slash-separated relative paths.
	Pattern   string
	SystemDir string
	ReadOnly  bool
	// Versioned commits every change to a git repository rooted at Path.
	Versioned bool
	Logger    *slog.Logger
	// ErrorHandler receives watcher errors in addition to the logger.
	ErrorHandler func(error)
}

// Repository implements core.Repository and core.Watchable on a vault directory.
type Repository struct {
	Path   string
	config Config
	git    *git.Client
	cache  *cache

	// writeMu serializes writers within this process; git adds a cross-process lock.
	writeMu sync.Mutex

	mu            sync.RWMutex
	cacheLoaded   bool
	watcherActive bool
	lastScan      *time.Time
	lastReconcile *time.Time
	known         map[string]time.Time // id -> mtime, as of the last scan
}

// NewRepository creates a repository. Zero Config fields take their defaults.
func NewRepository(config Config) *Repository {
	if config.Pattern == "" {
		config.Pattern = DefaultPattern
	}
	if config.SystemDir == "" {
		config.SystemDir = DefaultSystemDir
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{
		Path:   config.Path,
		config: config,
		git:    git.NewClient(config.Path, config.SystemDir+".lock", config.Logger),
		cache:  newCache(config.Path, config.SystemDir),
	}
}

// Initialize creates the vault directory and, for versioned vaults, the git repository.
func (r *Repository) Initialize(ctx context.Context) error {
	if !doublestar.ValidatePattern(r.config.Pattern) {
		return fmt.Errorf("invalid note pattern %q", r.config.Pattern)
	}

	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("vault path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", r.Path)
		}
	} else if !r.config.ReadOnly {
		if err := os.MkdirAll(r.Path, 0755); err != nil {
			return fmt.Errorf("failed to create vault directory: %w", err)
		}
	}

	if !r.config.Versioned || r.config.ReadOnly {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}

	wasNewRepo := false
	if !r.git.IsRepo(ctx) {
		if err := r.git.Init(ctx); err != nil {
			return fmt.Errorf("failed to git init: %w", err)
		}
		wasNewRepo = true
	}

	mod, err := r.ensureIgnore()
	if err != nil {
		return fmt.Errorf("failed to ensure .gitignore: %w", err)
	}
	if mod && wasNewRepo {
		if err := r.git.Add(ctx, ".gitignore"); err != nil {
			return fmt.Errorf("failed to add .gitignore: %w", err)
		}
		if err := r.git.Commit(ctx, fmt.Sprintf("chore: ignore %s", r.config.SystemDir)); err != nil {
			return fmt.Errorf("failed to commit .gitignore: %w", err)
		}
	}
	return nil
}

// ensureIgnore keeps the system directory and lock file out of version control.
func (r *Repository) ensureIgnore() (bool, error) {
	ignorePath := filepath.Join(r.Path, ".gitignore")
	wanted := []string{r.config.SystemDir + "/", r.config.SystemDir + ".lock"}

	content, err := os.ReadFile(ignorePath)
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}

	present := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, w := range wanted {
		if !present[w] {
			missing = append(missing, w)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}

	f, err := os.OpenFile(ignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false, err
	}
	defer f.Close()

	if len(content) > 0 && !strings.HasSuffix(string(content), "\n") {
		if _, err := f.WriteString("\n"); err != nil {
			return false, err
		}
	}
	if _, err := f.WriteString(strings.Join(missing, "\n") + "\n"); err != nil {
		return false, err
	}
	return true, nil
}

// Save writes a note atomically. Notes without an ID get a random one; CreatedAt
// is kept from the stored note and UpdatedAt is stamped now.
func (r *Repository) Save(ctx context.Context, n core.Note) (core.Note, error) {
	if r.config.ReadOnly {
		return core.Note{}, core.ErrReadOnly
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	rel, err := r.relPath(n.ID)
	if err != nil {
		return core.Note{}, err
	}
	if n.Location != nil {
		if err := n.Location.Validate(); err != nil {
			return core.Note{}, err
		}
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	fullPath := filepath.Join(r.Path, filepath.FromSlash(rel))
	if n.CreatedAt.IsZero() {
		if prev, err := r.readNote(n.ID, fullPath); err == nil {
			n.CreatedAt = prev.CreatedAt
		}
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	data, err := serializeNote(n)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to serialize note: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return core.Note{}, fmt.Errorf("failed to create directories: %w", err)
	}
	if err := writeFileAtomic(fullPath, data, 0644); err != nil {
		return core.Note{}, fmt.Errorf("failed to write file: %w", err)
	}
	r.cache.Delete(rel)

	if r.config.Versioned {
		if err := r.commit(ctx, "update "+n.ID, func() error { return r.git.Add(ctx, rel) }); err != nil {
			return core.Note{}, err
		}
	}

	r.config.Logger.Debug("saved note", "id", n.ID, "path", rel)
	return n, nil
}

// Get reads a single note.
func (r *Repository) Get(ctx context.Context, id string) (core.Note, error) {
	rel, err := r.relPath(id)
	if err != nil {
		return core.Note{}, err
	}
	return r.readNote(id, filepath.Join(r.Path, filepath.FromSlash(rel)))
}

func (r *Repository) readNote(id, fullPath string) (core.Note, error) {
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return core.Note{}, fmt.Errorf("%w: %s", core.ErrNoteNotFound, id)
		}
		return core.Note{}, err
	}
	n, err := parseNote(id, data)
	if err != nil {
		return core.Note{}, fmt.Errorf("failed to parse note %s: %w", id, err)
	}
	return n, nil
}

// Notes implements core.NoteSource.
func (r *Repository) Notes(ctx context.Context) ([]core.Note, error) {
	return r.List(ctx)
}

// List scans the vault for every note matching the pattern, ordered by creation
// time then ID. Unparseable files are logged and skipped.
func (r *Repository) List(ctx context.Context) ([]core.Note, error) {
	r.loadCache()

	var notes []core.Note
	seen := make(map[string]bool)
	known := make(map[string]time.Time)

	err := filepath.WalkDir(r.Path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(r.Path, p)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && r.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !r.matches(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		mtime := info.ModTime()
		id := strings.TrimSuffix(rel, noteExt)
		seen[rel] = true
		known[id] = mtime

		if n, hit := r.cache.Get(rel, mtime); hit {
			notes = append(notes, cloneNote(n))
			return nil
		}

		n, err := r.readNote(id, p)
		if err != nil {
			r.config.Logger.Warn("skipping unreadable note", "path", rel, "error", err)
			return nil
		}
		r.cache.Set(rel, n, mtime)
		notes = append(notes, cloneNote(n))
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.cache.Prune(seen)
	if !r.config.ReadOnly {
		if err := r.cache.Save(); err != nil {
			r.config.Logger.Debug("failed to persist index", "error", err)
		}
	}

	now := time.Now()
	r.mu.Lock()
	r.known = known
	r.lastScan = &now
	r.mu.Unlock()

	slices.SortFunc(notes, func(a, b core.Note) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return notes, nil
}

// Reconcile rescans the vault and returns the changes since the previous scan.
// The watcher uses it to recover from dropped filesystem events.
func (r *Repository) Reconcile(ctx context.Context) ([]core.Event, error) {
	r.mu.RLock()
	before := r.known
	r.mu.RUnlock()

	if _, err := r.List(ctx); err != nil {
		return nil, err
	}

	r.mu.Lock()
	after := r.known
	now := time.Now()
	r.lastReconcile = &now
	r.mu.Unlock()

	ts := now.Unix()
	var events []core.Event
	for id, mtime := range after {
		prev, ok := before[id]
		switch {
		case !ok:
			events = append(events, core.Event{Type: core.EventCreate, ID: id, Timestamp: ts})
		case !prev.Equal(mtime):
			events = append(events, core.Event{Type: core.EventModify, ID: id, Timestamp: ts})
		}
	}
	for id := range before {
		if _, ok := after[id]; !ok {
			events = append(events, core.Event{Type: core.EventDelete, ID: id, Timestamp: ts})
		}
	}
	slices.SortFunc(events, func(a, b core.Event) int { return strings.Compare(a.ID, b.ID) })
	return events, nil
}

// Delete removes a note.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if r.config.ReadOnly {
		return core.ErrReadOnly
	}
	rel, err := r.relPath(id)
	if err != nil {
		return err
	}
	fullPath := filepath.Join(r.Path, filepath.FromSlash(rel))

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if _, err := os.Stat(fullPath); os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", core.ErrNoteNotFound, id)
	}

	if r.config.Versioned {
		if err := r.commit(ctx, "delete "+id, func() error { return r.git.Rm(ctx, rel) }); err != nil {
			return err
		}
	} else if err := os.Remove(fullPath); err != nil {
		return fmt.Errorf("failed to remove file: %w", err)
	}

	r.cache.Delete(rel)
	r.config.Logger.Debug("deleted note", "id", id)
	return nil
}

// Watch streams vault changes until ctx ends, then closes the channel.
func (r *Repository) Watch(ctx context.Context) (<-chan core.Event, error) {
	events := make(chan core.Event)
	w := newWatchWorker(r, r.config.Pattern, events)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	go func() {
		<-w.done
		close(events)
	}()
	return events, nil
}

func (r *Repository) commit(ctx context.Context, msg string, stage func() error) error {
	unlock, err := r.git.Lock(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	if err := stage(); err != nil {
		return fmt.Errorf("failed to stage change: %w", err)
	}
	if err := r.git.Commit(ctx, msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

func (r *Repository) loadCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cacheLoaded {
		return
	}
	r.cacheLoaded = true
	if err := r.cache.Load(); err != nil {
		r.config.Logger.Debug("starting with empty index", "error", err)
	}
}

// relPath maps an ID to its slash-separated file path inside the vault.
func (r *Repository) relPath(id string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(id, "\\", "/"))
	if id == "" || clean == "." || strings.HasPrefix(clean, "/") || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, part := range strings.Split(clean, "/") {
		if r.skipDir(part) {
			return "", fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return clean + noteExt, nil
}

// skipDir reports whether a directory (or path element) is outside the note space.
func (r *Repository) skipDir(name string) bool {
	return name == r.config.SystemDir || name == ".git" || strings.HasPrefix(name, ".")
}

func (r *Repository) matches(rel string) bool {
	if isTempFile(rel) || !strings.HasSuffix(rel, noteExt) {
		return false
	}
	ok, err := doublestar.Match(r.config.Pattern, rel)
	return err == nil && ok
}

func cloneNote(n core.Note) core.Note {
	n.Tags = slices.Clone(n.Tags)
	if n.Location != nil {
		loc := *n.Location
		n.Location = &loc
	}
	return n
}

var _ core.Repository = (*Repository)(nil)
var _ core.Watchable = (*Repository)(nil)
