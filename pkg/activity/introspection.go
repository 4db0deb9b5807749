package activity

import (
	"time"

	"github.com/aretw0/introspection"
)

// TrackerState exposes internal state for observability.
type TrackerState struct {
	Current       string     `json:"current"`
	Started       bool       `json:"started"`
	Registered    bool       `json:"registered"`
	LastUpdate    *time.Time `json:"last_update,omitempty"`
	LastSource    string     `json:"last_source,omitempty"`
	MinConfidence int        `json:"min_confidence"`
	Watchdog      string     `json:"watchdog"`
	WatchdogFires int64      `json:"watchdog_fires"`
	Ignored       int64      `json:"ignored_low_confidence"`
	Subscribers   int        `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (t *Tracker) State() any {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := TrackerState{
		Current:       string(t.state.Get()),
		Started:       t.started,
		Registered:    t.registered,
		LastSource:    t.lastSource,
		MinConfidence: t.minConfidence,
		Watchdog:      t.watchdog.String(),
		WatchdogFires: t.watchdogFires.Load(),
		Ignored:       t.ignored.Load(),
		Subscribers:   t.state.Subscribers(),
	}
	if !t.lastUpdate.IsZero() {
		last := t.lastUpdate
		s.LastUpdate = &last
	}
	return s
}

// ComponentType implements introspection.Component.
func (t *Tracker) ComponentType() string {
	return "activity"
}

var _ introspection.Introspectable = (*Tracker)(nil)
var _ introspection.Component = (*Tracker)(nil)
