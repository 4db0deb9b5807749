// Package activity maintains the user's current best-guess physical activity.
package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/observable"
)

const (
	// DefaultMinConfidence is the confidence a classification must exceed to be applied.
	DefaultMinConfidence = 50
	// DefaultWatchdog is how long UNKNOWN may persist before falling back to STILL.
	DefaultWatchdog = 30 * time.Second
)

// ErrNoRecognizer is returned by Start when the tracker has no classifier attached.
var ErrNoRecognizer = errors.New("no activity recognizer configured")

// DefaultTransitions are the transitions registered with the recognizer.
var DefaultTransitions = []core.Transition{
	{Activity: core.ActivityStill, Kind: core.TransitionEnter},
	{Activity: core.ActivityWalking, Kind: core.TransitionEnter},
	{Activity: core.ActivityInVehicle, Kind: core.TransitionEnter},
}

// Report is one message from a Recognizer: either a classification or a transition.
type Report struct {
	Classification *core.Classification
	Transition     *core.Transition
}

// Recognizer is the platform motion classifier.
type Recognizer interface {
	// Subscribe registers for continuous classifications and for the given
	// transitions. The channel is closed when ctx is done or the source ends.
	Subscribe(ctx context.Context, transitions []core.Transition) (<-chan Report, error)
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithMinConfidence sets the confidence threshold. Updates need strictly more.
func WithMinConfidence(c int) Option {
	return func(t *Tracker) {
		t.minConfidence = c
	}
}

// WithWatchdog sets the UNKNOWN fallback interval. Zero disables the watchdog.
func WithWatchdog(d time.Duration) Option {
	return func(t *Tracker) {
		t.watchdog = d
	}
}

// WithTransitions overrides the transitions registered with the recognizer.
func WithTransitions(tr ...core.Transition) Option {
	return func(t *Tracker) {
		t.transitions = tr
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// Tracker is the activity signal source. It starts out UNKNOWN.
type Tracker struct {
	recognizer    Recognizer
	state         *observable.Value[core.Activity]
	logger        *slog.Logger
	minConfidence int
	watchdog      time.Duration
	transitions   []core.Transition
	now           func() time.Time

	mu         sync.Mutex
	started    bool
	registered bool
	lastUpdate time.Time
	lastSource string

	watchdogFires atomic.Int64
	ignored       atomic.Int64
}

// NewTracker creates a Tracker fed by recognizer, which may be nil.
func NewTracker(recognizer Recognizer, opts ...Option) *Tracker {
	t := &Tracker{
		recognizer:    recognizer,
		state:         observable.New(core.ActivityUnknown, observable.WithEqual(func(a, b core.Activity) bool { return a == b })),
		logger:        slog.Default(),
		minConfidence: DefaultMinConfidence,
		watchdog:      DefaultWatchdog,
		transitions:   DefaultTransitions,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start launches the watchdog and registers with the recognizer. A registration
// failure is returned but leaves the watchdog running; the tracker then only changes
// through Simulate or the fallback.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return fmt.Errorf("activity tracker already started")
	}
	t.started = true
	t.mu.Unlock()

	t.logger.Debug("starting activity recognition tracking")

	if t.watchdog > 0 {
		lifecycle.Go(ctx, t.runWatchdog, lifecycle.WithErrorHandler(t.handlePanic("watchdog")))
	}

	if t.recognizer == nil {
		return ErrNoRecognizer
	}

	reports, err := t.recognizer.Subscribe(ctx, t.transitions)
	if err != nil {
		return fmt.Errorf("failed to register for activity updates: %w", err)
	}

	t.mu.Lock()
	t.registered = true
	t.mu.Unlock()
	t.logger.Debug("registered for activity updates", "transitions", len(t.transitions))

	lifecycle.Go(ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case r, ok := <-reports:
				if !ok {
					t.logger.Debug("activity recognizer closed")
					return nil
				}
				t.handle(r)
			}
		}
	}, lifecycle.WithErrorHandler(t.handlePanic("delivery")))

	return nil
}

func (t *Tracker) handle(r Report) {
	switch {
	case r.Classification != nil:
		t.Process(*r.Classification)
	case r.Transition != nil:
		t.ProcessTransition(*r.Transition)
	}
}

// Process applies a raw classification. The most confident candidate replaces the
// current state only when its confidence exceeds the threshold. It reports whether
// the candidate passed the gate.
func (t *Tracker) Process(c core.Classification) bool {
	best, ok := c.Best()
	if !ok {
		return false
	}

	prev := t.state.Get()
	t.logger.Debug("activity detected",
		"activity", best.Activity.Label(),
		"confidence", best.Confidence,
		"previous", prev.Label(),
	)

	if best.Confidence <= t.minConfidence {
		t.ignored.Add(1)
		return false
	}
	t.set(best.Activity, "classification")
	return true
}

// ProcessTransition applies an ENTER transition for one of the registered activities.
func (t *Tracker) ProcessTransition(tr core.Transition) bool {
	if tr.Kind != core.TransitionEnter || !t.registeredFor(tr.Activity) {
		return false
	}
	t.set(tr.Activity, "transition")
	return true
}

// Simulate forces the current activity, bypassing the recognizer.
func (t *Tracker) Simulate(a core.Activity) {
	t.logger.Debug("simulating activity", "activity", a.Label())
	t.set(a, "simulated")
}

// Current returns the latest activity.
func (t *Tracker) Current() core.Activity {
	return t.state.Get()
}

// Updates streams the current activity followed by every change.
func (t *Tracker) Updates(ctx context.Context) <-chan core.Activity {
	return t.state.Subscribe(ctx)
}

func (t *Tracker) set(a core.Activity, source string) {
	t.mu.Lock()
	t.lastUpdate = t.now()
	t.lastSource = source
	t.mu.Unlock()

	if t.state.Set(a) {
		t.logger.Info("activity changed", "activity", a.Label(), "source", source)
	}
}

func (t *Tracker) registeredFor(a core.Activity) bool {
	for _, tr := range t.transitions {
		if tr.Activity == a && tr.Kind == core.TransitionEnter {
			return true
		}
	}
	return false
}

// runWatchdog forces STILL once UNKNOWN has persisted for the watchdog interval
// without any intervening update.
func (t *Tracker) runWatchdog(ctx context.Context) error {
	updates := t.state.Subscribe(ctx)

	timer := time.NewTimer(t.watchdog)
	timer.Stop()
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case a, ok := <-updates:
			if !ok {
				return nil
			}
			timer.Stop()
			fire = nil
			if a == core.ActivityUnknown {
				timer.Reset(t.watchdog)
				fire = timer.C
			}
		case <-fire:
			fire = nil
			if t.state.Get() != core.ActivityUnknown {
				continue
			}
			t.watchdogFires.Add(1)
			t.logger.Info("activity unknown for too long, defaulting to still", "after", t.watchdog)
			t.set(core.ActivityStill, "watchdog")
		}
	}
}

func (t *Tracker) handlePanic(loop string) func(error) {
	return func(err error) {
		t.logger.Error("activity tracker panic", "loop", loop, "error", err)
	}
}
