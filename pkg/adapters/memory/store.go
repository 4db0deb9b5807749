// Package memory provides a volatile note store.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/locus/pkg/core"
)

// eventBuffer is the per-watcher backlog before events are dropped.
const eventBuffer = 64

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotes seeds the store.
func WithNotes(notes ...core.Note) Option {
	return func(s *Store) {
		for _, n := range notes {
			s.notes[n.ID] = clone(n)
		}
	}
}

// Store keeps notes in a map and pushes change events to watchers.
type Store struct {
	mu       sync.RWMutex
	notes    map[string]core.Note
	watchers map[chan core.Event]struct{}
	now      func() time.Time
	logger   *slog.Logger
	dropped  int
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		notes:    make(map[string]core.Note),
		watchers: make(map[chan core.Event]struct{}),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize implements core.Repository.
func (s *Store) Initialize(context.Context) error {
	return nil
}

// Save implements core.Repository.
func (s *Store) Save(ctx context.Context, n core.Note) (core.Note, error) {
	if err := ctx.Err(); err != nil {
		return core.Note{}, err
	}
	if n.Location != nil {
		if err := n.Location.Validate(); err != nil {
			return core.Note{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := s.now()
	event := core.EventModify
	if prev, ok := s.notes[n.ID]; ok {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = prev.CreatedAt
		}
	} else {
		event = core.EventCreate
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
	}
	n.UpdatedAt = now

	s.notes[n.ID] = clone(n)
	s.emitLocked(core.Event{Type: event, ID: n.ID, Timestamp: now.Unix()})
	return clone(n), nil
}

// Get implements core.Repository.
func (s *Store) Get(_ context.Context, id string) (core.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok {
		return core.Note{}, fmt.Errorf("%w: %s", core.ErrNoteNotFound, id)
	}
	return clone(n), nil
}

// Delete implements core.Repository.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrNoteNotFound, id)
	}
	delete(s.notes, id)
	s.emitLocked(core.Event{Type: core.EventDelete, ID: id, Timestamp: s.now().Unix()})
	return nil
}

// Notes implements core.NoteSource. Notes are ordered by creation time, then ID.
func (s *Store) Notes(context.Context) ([]core.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(core.Note) bool { return true }), nil
}

// Search returns the notes whose title or content contains query, ignoring case.
// An empty query matches every note.
func (s *Store) Search(_ context.Context, query string) ([]core.Note, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(func(n core.Note) bool {
		return q == "" ||
			strings.Contains(strings.ToLower(n.Title), q) ||
			strings.Contains(strings.ToLower(n.Content), q)
	}), nil
}

// Watch implements core.Watchable. The channel closes when ctx ends.
func (s *Store) Watch(ctx context.Context) (<-chan core.Event, error) {
	ch := make(chan core.Event, eventBuffer)

	s.mu.Lock()
	s.watchers[ch] = struct{}{}
	s.mu.Unlock()

	context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, ch)
		close(ch)
	})
	return ch, nil
}

// Dropped returns how many events were discarded because a watcher lagged.
func (s *Store) Dropped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dropped
}

func (s *Store) emitLocked(e core.Event) {
	for ch := range s.watchers {
		select {
		case ch <- e:
		default:
			s.dropped++
			s.logger.Warn("watcher is not keeping up, dropping event", "event", e.String())
		}
	}
}

func (s *Store) sortedLocked(keep func(core.Note) bool) []core.Note {
	out := make([]core.Note, 0, len(s.notes))
	for _, n := range s.notes {
		if keep(n) {
			out = append(out, clone(n))
		}
	}
	slices.SortFunc(out, func(a, b core.Note) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func clone(n core.Note) core.Note {
	n.Tags = slices.Clone(n.Tags)
	if n.Location != nil {
		loc := *n.Location
		n.Location = &loc
	}
	return n
}

var _ core.Repository = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
