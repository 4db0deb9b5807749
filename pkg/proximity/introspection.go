package proximity

import (
	"time"

	"github.com/aretw0/introspection"

	"github.com/aretw0/locus/pkg/core"
)

// EngineState exposes internal state for observability.
type EngineState struct {
	Started          bool             `json:"started"`
	Closed           bool             `json:"closed"`
	Threshold        float64          `json:"threshold_m"`
	Cooldown         string           `json:"cooldown"`
	MovingInterval   string           `json:"moving_interval"`
	StillInterval    string           `json:"still_interval"`
	Cycles           int64            `json:"cycles"`
	Failures         int64            `json:"failures"`
	Notifications    int64            `json:"notifications"`
	LastNotification *time.Time       `json:"last_notification,omitempty"`
	LastPosition     *core.Coordinate `json:"last_position,omitempty"`
	LastOutcome      Outcome          `json:"last_outcome,omitempty"`
	Nearby           []string         `json:"nearby"`
	Subscribers      int              `json:"subscribers"`
}

// State implements introspection.Introspectable.
func (e *Engine) State() any {
	st := EngineState{
		Started:        e.started.Load(),
		Closed:         e.base.Err() != nil,
		Threshold:      e.threshold,
		Cooldown:       e.cooldown.String(),
		MovingInterval: e.movingInterval.String(),
		StillInterval:  e.stillInterval.String(),
		Cycles:         e.cycles.Load(),
		Failures:       e.failures.Load(),
		Notifications:  e.notifications.Load(),
		LastPosition:   e.lastPosition.Load(),
		Subscribers:    e.nearby.Subscribers(),
	}
	if t := e.LastNotification(); !t.IsZero() {
		st.LastNotification = &t
	}
	if r := e.lastResult.Load(); r != nil {
		st.LastOutcome = r.Outcome
	}
	for _, n := range e.nearby.Get() {
		st.Nearby = append(st.Nearby, n.ID)
	}
	return st
}

// ComponentType implements introspection.Component.
func (e *Engine) ComponentType() string {
	return "proximity"
}

var _ introspection.Introspectable = (*Engine)(nil)
var _ introspection.Component = (*Engine)(nil)
