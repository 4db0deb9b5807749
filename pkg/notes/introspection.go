package notes

import (
	"time"

	"github.com/aretw0/introspection"
)

// LiveState exposes internal state for observability.
type LiveState struct {
	Notes       int        `json:"notes"`
	Started     bool       `json:"started"`
	Watching    bool       `json:"watching"`
	Refreshes   int64      `json:"refreshes"`
	Failures    int64      `json:"failures"`
	LastRefresh *time.Time `json:"last_refresh,omitempty"`
}

// State implements introspection.Introspectable.
func (l *Live) State() any {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := LiveState{
		Notes:     len(l.notes.Get()),
		Started:   l.started,
		Watching:  l.watching,
		Refreshes: l.refreshes.Load(),
		Failures:  l.failures.Load(),
	}
	if !l.refreshed.IsZero() {
		at := l.refreshed
		st.LastRefresh = &at
	}
	return st
}

// ComponentType implements introspection.Component.
func (l *Live) ComponentType() string {
	return "notes"
}

var _ introspection.Introspectable = (*Live)(nil)
var _ introspection.Component = (*Live)(nil)
