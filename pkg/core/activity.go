package core

import (
	"fmt"
	"strings"
	"time"
)

// Activity is the classified physical activity of the user.
type Activity string

const (
	ActivityStill     Activity = "still"
	ActivityWalking   Activity = "walking"
	ActivityRunning   Activity = "running"
	ActivityOnFoot    Activity = "on_foot"
	ActivityOnBicycle Activity = "on_bicycle"
	ActivityInVehicle Activity = "in_vehicle"
	ActivityTilting   Activity = "tilting"
	ActivityUnknown   Activity = "unknown"
)

// Activities lists every known activity.
var Activities = []Activity{
	ActivityStill,
	ActivityWalking,
	ActivityRunning,
	ActivityOnFoot,
	ActivityOnBicycle,
	ActivityInVehicle,
	ActivityTilting,
	ActivityUnknown,
}

// ParseActivity accepts the canonical names as well as the upper-case and
// hyphenated spellings used by sensor bridges ("IN_VEHICLE", "on-foot").
func ParseActivity(s string) (Activity, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	for _, a := range Activities {
		if string(a) == norm {
			return a, nil
		}
	}
	return ActivityUnknown, fmt.Errorf("unknown activity %q", s)
}

// IsMoving reports whether the activity means the user is changing position.
func (a Activity) IsMoving() bool {
	switch a {
	case ActivityWalking, ActivityRunning, ActivityOnFoot, ActivityOnBicycle, ActivityInVehicle:
		return true
	}
	return false
}

// Label returns a human readable name.
func (a Activity) Label() string {
	switch a {
	case ActivityStill:
		return "Still"
	case ActivityWalking:
		return "Walking"
	case ActivityRunning:
		return "Running"
	case ActivityOnFoot:
		return "On Foot"
	case ActivityOnBicycle:
		return "On Bicycle"
	case ActivityInVehicle:
		return "In Vehicle"
	case ActivityTilting:
		return "Tilting"
	}
	return "Unknown"
}

// Candidate is one possible activity of a classification with its confidence (0-100).
type Candidate struct {
	Activity   Activity `json:"type"`
	Confidence int      `json:"confidence"`
}

// Classification is a raw result from the motion classifier.
type Classification struct {
	Candidates []Candidate `json:"activities"`
	Time       time.Time   `json:"time,omitempty"`
}

// Best returns the highest-confidence candidate. Ties keep the first one seen.
func (c Classification) Best() (Candidate, bool) {
	if len(c.Candidates) == 0 {
		return Candidate{}, false
	}
	best := c.Candidates[0]
	for _, cand := range c.Candidates[1:] {
		if cand.Confidence > best.Confidence {
			best = cand
		}
	}
	return best, true
}

// TransitionKind tells whether an activity was entered or left.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

// Transition is a discrete activity change reported by the platform.
type Transition struct {
	Activity Activity       `json:"type"`
	Kind     TransitionKind `json:"kind"`
	Time     time.Time      `json:"time,omitempty"`
}
