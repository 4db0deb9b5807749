package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path          string     `json:"path"`
	Pattern       string     `json:"pattern"`
	SystemDir     string     `json:"system_dir"`
	CacheSize     int        `json:"cache_size"`
	KnownNotes    int        `json:"known_notes"`
	ReadOnly      bool       `json:"read_only"`
	Versioned     bool       `json:"versioned"`
	WatcherActive bool       `json:"watcher_active"`
	LastScan      *time.Time `json:"last_scan,omitempty"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:          r.Path,
		Pattern:       r.config.Pattern,
		SystemDir:     r.config.SystemDir,
		CacheSize:     r.cache.Len(),
		KnownNotes:    len(r.known),
		ReadOnly:      r.config.ReadOnly,
		Versioned:     r.config.Versioned,
		WatcherActive: r.watcherActive,
		LastScan:      r.lastScan,
		LastReconcile: r.lastReconcile,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}
