package host

import (
	"fmt"

	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/locus/pkg/activity"
	"github.com/aretw0/locus/pkg/budget"
	"github.com/aretw0/locus/pkg/notes"
	"github.com/aretw0/locus/pkg/position"
	"github.com/aretw0/locus/pkg/proximity"
)

// HostState aggregates the introspection state of every component.
type HostState struct {
	Status        string `json:"status"`
	Activity      any    `json:"activity,omitempty"`
	ActivityError string `json:"activity_error,omitempty"`
	StatusError   string `json:"status_error,omitempty"`
	Notes         any    `json:"notes"`
	Engine        any    `json:"engine"`
	Budget        any    `json:"budget"`
	Position      any    `json:"position"`
}

// Inspect returns the state of the host and its components.
func (h *Host) Inspect() HostState {
	st := HostState{
		Status:   fmt.Sprint(h.BaseWorker.State().Status),
		Notes:    h.config.Notes.State(),
		Engine:   h.config.Engine.State(),
		Budget:   h.config.Budget.State(),
		Position: h.config.Positions.State(),
	}
	if h.config.Tracker != nil {
		st.Activity = h.config.Tracker.State()
	}

	h.mu.Lock()
	if h.activityErr != nil {
		st.ActivityError = h.activityErr.Error()
	}
	if h.statusErr != nil {
		st.StatusError = h.statusErr.Error()
	}
	h.mu.Unlock()
	return st
}

// ComponentType implements introspection.Component.
func (h *Host) ComponentType() string {
	return "host"
}

var _ introspection.Component = (*Host)(nil)

// node is one box of the host diagram.
type node struct {
	Name     string
	Status   string
	Metadata map[string]string
	Children []node
}

// Diagram renders the component tree as a Mermaid diagram.
func (h *Host) Diagram() string {
	config := introspection.DefaultDiagramConfig()
	config.SecondaryID = "host"
	config.SecondaryLabel = "Background Host"
	return introspection.TreeDiagram(h.tree(), config)
}

func (h *Host) tree() node {
	st := h.Inspect()
	hostStatus := "suspended"
	if h.BaseWorker.State().Status == worker.StatusRunning {
		hostStatus = "running"
	}

	var children []node
	if ts, ok := st.Activity.(activity.TrackerState); ok {
		status := "suspended"
		if ts.Registered {
			status = "running"
		}
		children = append(children, node{
			Name:   "Activity",
			Status: status,
			Metadata: map[string]string{
				"type":    "goroutine",
				"current": ts.Current,
			},
		})
	}
	if ls, ok := st.Notes.(notes.LiveState); ok {
		status := "suspended"
		if ls.Watching {
			status = "running"
		}
		children = append(children, node{
			Name:   "Notes",
			Status: status,
			Metadata: map[string]string{
				"type":  "goroutine",
				"notes": fmt.Sprintf("%d", ls.Notes),
			},
		})
	}
	if es, ok := st.Engine.(proximity.EngineState); ok {
		status := "suspended"
		if es.Started && !es.Closed {
			status = "running"
		}
		children = append(children, node{
			Name:   "Engine",
			Status: status,
			Metadata: map[string]string{
				"type":   "process",
				"cycles": fmt.Sprintf("%d", es.Cycles),
				"nearby": fmt.Sprintf("%d", len(es.Nearby)),
			},
		})
	}
	if bs, ok := st.Budget.(budget.TrackerState); ok {
		children = append(children, node{
			Name:   "Budget",
			Status: "running",
			Metadata: map[string]string{
				"type":         "container",
				"max_per_note": fmt.Sprintf("%d", bs.MaxPerNote),
			},
		})
	}
	if ps, ok := st.Position.(position.SourceState); ok {
		status := "running"
		if ps.Closed {
			status = "stopped"
		}
		children = append(children, node{
			Name:   "Position",
			Status: status,
			Metadata: map[string]string{
				"type":     "container",
				"requests": fmt.Sprintf("%d", ps.Requests),
			},
		})
	}

	return node{
		Name:     "Host",
		Status:   hostStatus,
		Metadata: map[string]string{"type": "process"},
		Children: children,
	}
}
