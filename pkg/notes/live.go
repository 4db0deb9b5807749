// Package notes keeps an always-current, in-memory view of a note store.
package notes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"

	storesource "github.com/aretw0/locus/pkg/adapters/lifecycle"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/observable"
)

// Option configures a Live collection.
type Option func(*Live)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Live) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Live mirrors the full note list of a store. Readers get the latest snapshot
// without touching storage; the snapshot is reloaded whenever the store reports a
// change, when the store is Watchable.
type Live struct {
	store  core.NoteSource
	logger *slog.Logger
	notes  *observable.Value[[]core.Note]

	mu        sync.Mutex
	started   bool
	watching  bool
	onDelete  []func(id string)
	refreshed time.Time

	refreshes atomic.Int64
	failures  atomic.Int64
}

// NewLive creates a Live collection over store.
func NewLive(store core.NoteSource, opts ...Option) *Live {
	l := &Live{
		store:  store,
		logger: slog.Default(),
		notes:  observable.New[[]core.Note](nil),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start loads the initial snapshot and follows store events until ctx ends.
// A store that cannot be watched leaves the snapshot static until Refresh.
func (l *Live) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return fmt.Errorf("live notes already started")
	}
	l.started = true
	l.mu.Unlock()

	if err := l.Refresh(ctx); err != nil {
		return err
	}

	w, ok := l.store.(core.Watchable)
	if !ok {
		l.logger.Debug("note store is not watchable, snapshot is static")
		return nil
	}
	src := storesource.NewSource(w)
	if err := src.Start(ctx); err != nil {
		l.logger.Warn("snapshot is static", "error", err)
		return nil
	}

	l.mu.Lock()
	l.watching = true
	l.mu.Unlock()

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer func() {
			l.mu.Lock()
			l.watching = false
			l.mu.Unlock()
		}()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-src.Events():
				if !ok {
					return nil
				}
				if e, ok := ev.(core.Event); ok {
					l.handle(ctx, e)
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		l.logger.Error("live notes loop failed", "error", err)
	}))
	return nil
}

func (l *Live) handle(ctx context.Context, e core.Event) {
	l.logger.Debug("note store changed", "event", e.String())
	if err := l.Refresh(ctx); err != nil {
		l.logger.Warn("failed to refresh notes", "error", err)
	}
	if e.Type != core.EventDelete {
		return
	}
	l.mu.Lock()
	hooks := append([]func(string){}, l.onDelete...)
	l.mu.Unlock()
	for _, fn := range hooks {
		fn(e.ID)
	}
}

// Refresh reloads the snapshot from the store.
func (l *Live) Refresh(ctx context.Context) error {
	list, err := l.store.Notes(ctx)
	if err != nil {
		l.failures.Add(1)
		return fmt.Errorf("failed to load notes: %w", err)
	}
	l.notes.Set(list)
	l.refreshes.Add(1)

	l.mu.Lock()
	l.refreshed = time.Now()
	l.mu.Unlock()
	return nil
}

// Notes returns the latest snapshot. Before Start it reads the store directly.
func (l *Live) Notes(ctx context.Context) ([]core.Note, error) {
	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return l.store.Notes(ctx)
	}
	return append([]core.Note(nil), l.notes.Get()...), nil
}

// Snapshot is the observable note list.
func (l *Live) Snapshot() *observable.Value[[]core.Note] {
	return l.notes
}

// OnDelete registers fn to run with the ID of every deleted note.
func (l *Live) OnDelete(fn func(id string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onDelete = append(l.onDelete, fn)
}
