package budget

import (
	"time"

	"github.com/aretw0/introspection"
)

// TrackerState exposes internal state for observability.
type TrackerState struct {
	MaxPerNote    int            `json:"max_per_note"`
	ResetInterval string         `json:"reset_interval"`
	LastReset     time.Time      `json:"last_reset"`
	Counts        map[string]int `json:"counts,omitempty"`
}

// State implements introspection.Introspectable.
func (t *Tracker) State() any {
	return TrackerState{
		MaxPerNote:    t.maxPerNote,
		ResetInterval: t.resetInterval.String(),
		LastReset:     t.LastReset(),
		Counts:        t.Snapshot(),
	}
}

// ComponentType implements introspection.Component.
func (t *Tracker) ComponentType() string {
	return "budget"
}

var _ introspection.Introspectable = (*Tracker)(nil)
var _ introspection.Component = (*Tracker)(nil)
