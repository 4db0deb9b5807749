// Package budget caps how many times each note may trigger a notification per day.
package budget

import (
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxPerNote is the daily notification ceiling per note.
	DefaultMaxPerNote = 5
	// DefaultResetInterval is the rolling window after which counts are cleared.
	DefaultResetInterval = 24 * time.Hour
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithMaxPerNote sets the per-note ceiling.
func WithMaxPerNote(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.maxPerNote = n
		}
	}
}

// WithResetInterval sets how long counts live before a reset.
func WithResetInterval(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.resetInterval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tracker keeps per-note notification counts in memory with a single shared reset stamp.
// Counts do not survive a restart.
//
// Increment does not clamp: enforcing the ceiling is the caller's decision.
type Tracker struct {
	mu            sync.Mutex
	counts        map[string]int
	lastReset     time.Time
	maxPerNote    int
	resetInterval time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// New creates a Tracker whose reset window starts now.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		counts:        make(map[string]int),
		maxPerNote:    DefaultMaxPerNote,
		resetInterval: DefaultResetInterval,
		now:           time.Now,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.lastReset = t.now()
	return t
}

// Count returns how many notifications the note triggered in the current window.
func (t *Tracker) Count(noteID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[noteID]
}

// Increment adds one to the note's count and returns the new value.
func (t *Tracker) Increment(noteID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[noteID]++
	n := t.counts[noteID]
	t.logger.Debug("incremented notification count", "note", noteID, "count", n)
	return n
}

// ResetAll clears every count and stamps the reset time to now.
func (t *Tracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
}

// CheckAndResetIfNeeded resets all counts when the reset interval has elapsed since
// the last reset. It reports whether a reset happened.
func (t *Tracker) CheckAndResetIfNeeded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.now().Sub(t.lastReset) < t.resetInterval {
		return false
	}
	t.resetLocked()
	return true
}

// MaxPerNote returns the configured ceiling.
func (t *Tracker) MaxPerNote() int {
	return t.maxPerNote
}

// Forget drops the count of a note, typically after the note was deleted.
func (t *Tracker) Forget(noteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.counts, noteID)
}

// LastReset returns the time of the last reset.
func (t *Tracker) LastReset() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastReset
}

// Snapshot returns a copy of the current counts.
func (t *Tracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func (t *Tracker) resetLocked() {
	clear(t.counts)
	now := t.now()
	if now.After(t.lastReset) {
		t.lastReset = now
	}
	t.logger.Debug("reset all notification counts", "at", t.lastReset)
}
