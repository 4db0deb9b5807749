// Package proximity decides which notes are near the user and when to tell them.
//
// An Engine runs evaluation cycles: fetch the position, measure every located note
// against the threshold, publish the nearby set and, subject to a cooldown and a
// per-note daily budget, post one grouped notification. Cycles are triggered by a
// periodic timer whose interval follows the user's activity, by the user starting
// to move, and on demand through CheckNow.
package proximity

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/geo"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/observable"
	"github.com/aretw0/locus/pkg/position"
)

// Locator supplies the current position.
type Locator interface {
	Current(ctx context.Context, p position.Priority) (core.Coordinate, bool)
}

// ActivitySignal supplies the user's physical activity.
type ActivitySignal interface {
	Current() core.Activity
	Updates(ctx context.Context) <-chan core.Activity
}

// Budget limits how often a single note may be notified.
type Budget interface {
	Count(noteID string) int
	Increment(noteID string) int
	CheckAndResetIfNeeded() bool
	MaxPerNote() int
}

// Trigger names what started an evaluation cycle.
type Trigger string

const (
	TriggerPeriodic Trigger = "periodic"
	TriggerActivity Trigger = "activity"
	TriggerManual   Trigger = "manual"
)

// Outcome summarizes how a cycle ended.
type Outcome string

const (
	OutcomeNoLocation   Outcome = "no_location"
	OutcomeQuiet        Outcome = "quiet"
	OutcomeCooldown     Outcome = "cooldown"
	OutcomeDenied       Outcome = "denied"
	OutcomeNotified     Outcome = "notified"
	OutcomeNotifyFailed Outcome = "notify_failed"
	OutcomeFailed       Outcome = "failed"
)

// Match is a nearby note and its distance from the user.
type Match struct {
	Note     core.Note `json:"note"`
	Distance float64   `json:"distance_m"`
}

// Result describes one evaluation cycle.
type Result struct {
	Trigger  Trigger         `json:"trigger"`
	Outcome  Outcome         `json:"outcome"`
	Position core.Coordinate `json:"position"`
	Located  bool            `json:"located"`
	Nearby   []Match         `json:"nearby"`
	Notified []string        `json:"notified,omitempty"`
}

// Engine is the proximity decision core. It is safe for concurrent use. Cycles may
// overlap; only the notification decision is serialized.
type Engine struct {
	source     core.NoteSource
	positions  Locator
	activities ActivitySignal
	budget     Budget
	notifier   notify.Notifier

	threshold      float64
	cooldown       time.Duration
	movingInterval time.Duration
	stillInterval  time.Duration
	permission     notify.Permission
	logger         *slog.Logger
	now            func() time.Time
	registerer     prometheus.Registerer

	metrics *Metrics
	nearby  *observable.Value[[]core.Note]

	notifyMu sync.Mutex
	// lastNotification is the unix-nano time of the last grouped notification.
	lastNotification atomic.Int64
	lastPosition     atomic.Pointer[core.Coordinate]
	lastResult       atomic.Pointer[Result]
	cycles           atomic.Int64
	failures         atomic.Int64
	notifications    atomic.Int64

	base      context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	started   atomic.Bool

	// spawnMu orders goroutine launches against Close.
	spawnMu sync.Mutex
	closed  bool
}

// New creates an Engine. activities may be nil, in which case the engine never
// reacts to movement and polls at the still interval.
func New(source core.NoteSource, positions Locator, activities ActivitySignal, budget Budget, notifier notify.Notifier, opts ...Option) *Engine {
	e := &Engine{
		source:         source,
		positions:      positions,
		activities:     activities,
		budget:         budget,
		notifier:       notifier,
		threshold:      DefaultThreshold,
		cooldown:       DefaultCooldown,
		movingInterval: DefaultMovingInterval,
		stillInterval:  DefaultStillInterval,
		permission:     notify.Allowed,
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registerer == nil {
		e.registerer = prometheus.NewRegistry()
	}
	e.metrics = NewMetrics(e.registerer)
	e.nearby = observable.New[[]core.Note](nil)
	e.base, e.cancel = context.WithCancel(context.Background())
	return e
}

// Start launches the activity-trigger loop and the periodic loop. Only the first
// call has any effect. The loops run until ctx ends or Close is called.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		loopCtx, cancel := context.WithCancel(ctx)
		context.AfterFunc(e.base, cancel)
		e.started.Store(true)

		if e.activities != nil {
			e.spawn(loopCtx, "activity", e.runActivityLoop)
		}
		e.spawn(loopCtx, "periodic", e.runPeriodicLoop)
		e.logger.Debug("proximity engine started",
			"threshold_m", e.threshold,
			"cooldown", e.cooldown,
			"moving_interval", e.movingInterval,
			"still_interval", e.stillInterval,
		)
	})
}

// Close cancels the loops and in-flight cycles and waits for them to return.
func (e *Engine) Close() error {
	e.spawnMu.Lock()
	e.closed = true
	e.spawnMu.Unlock()

	e.cancel()
	e.wg.Wait()
	return nil
}

// CheckNow runs one high-accuracy cycle in the background. Its result is observed
// through Nearby.
func (e *Engine) CheckNow() {
	e.spawn(e.base, "manual", func(ctx context.Context) error {
		_, err := e.Evaluate(ctx, TriggerManual)
		return err
	})
}

// Nearby is the observable nearby set.
func (e *Engine) Nearby() *observable.Value[[]core.Note] {
	return e.nearby
}

// LastNotification returns when the last grouped notification was posted.
func (e *Engine) LastNotification() time.Time {
	n := e.lastNotification.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Metrics returns the engine collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// Evaluate runs one evaluation cycle synchronously. A missing position is not an
// error. Any failure, panics included, ends the cycle after the steps already
// completed and leaves the engine ready for the next one.
func (e *Engine) Evaluate(ctx context.Context, trigger Trigger) (res Result, err error) {
	res = Result{Trigger: trigger}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation cycle panic: %v", r)
			if e.logger.Enabled(ctx, slog.LevelDebug) {
				e.logger.Error("evaluation cycle panic", "trigger", trigger, "error", err, "stack", string(debug.Stack()))
			} else {
				e.logger.Error("evaluation cycle panic", "trigger", trigger, "error", err)
			}
		}
		if err != nil {
			res.Outcome = OutcomeFailed
			e.failures.Add(1)
		}
		e.cycles.Add(1)
		e.metrics.CyclesTotal.WithLabelValues(string(trigger), string(res.Outcome)).Inc()
		snapshot := res
		e.lastResult.Store(&snapshot)
	}()

	if e.budget.CheckAndResetIfNeeded() {
		e.logger.Info("notification budget reset")
	}

	priority := position.PriorityBalanced
	if trigger == TriggerManual {
		priority = position.PriorityHighAccuracy
	}
	fetchStart := time.Now()
	pos, ok := e.positions.Current(ctx, priority)
	if !ok {
		e.metrics.PositionSeconds.WithLabelValues("absent").Observe(time.Since(fetchStart).Seconds())
		e.logger.Debug("no location, keeping nearby set", "trigger", trigger)
		res.Outcome = OutcomeNoLocation
		return res, nil
	}
	e.metrics.PositionSeconds.WithLabelValues("ok").Observe(time.Since(fetchStart).Seconds())
	res.Position, res.Located = pos, true
	e.lastPosition.Store(&pos)

	notes, err := e.source.Notes(ctx)
	if err != nil {
		e.logger.Error("failed to read notes", "trigger", trigger, "error", err)
		return res, fmt.Errorf("failed to read notes: %w", err)
	}

	res.Nearby = e.match(pos, notes)
	nearby := make([]core.Note, len(res.Nearby))
	for i, m := range res.Nearby {
		nearby[i] = m.Note
	}
	e.nearby.Set(nearby)
	e.metrics.NearbyNotes.Set(float64(len(nearby)))
	e.logger.Debug("proximity evaluated",
		"trigger", trigger,
		"position", pos.String(),
		"notes", len(notes),
		"nearby", len(nearby),
	)

	res.Outcome, res.Notified = e.notify(ctx, nearby)
	return res, nil
}

// match returns the located notes within the threshold, in note order.
func (e *Engine) match(pos core.Coordinate, notes []core.Note) []Match {
	var out []Match
	for _, n := range notes {
		c, ok := n.Coordinate()
		if !ok {
			continue
		}
		d := geo.Distance(pos, c)
		if d <= e.threshold {
			out = append(out, Match{Note: n, Distance: d})
		}
	}
	return out
}

// eligible keeps the notes whose notification count is below the ceiling.
func (e *Engine) eligible(nearby []core.Note) []core.Note {
	ceiling := e.budget.MaxPerNote()
	var out []core.Note
	for _, n := range nearby {
		count := e.budget.Count(n.ID)
		if count < 0 || count > ceiling {
			e.logger.Warn("notification count out of range, clamping", "note", n.ID, "count", count, "max", ceiling)
			count = min(max(count, 0), ceiling)
		}
		if count < ceiling {
			out = append(out, n)
		}
	}
	return out
}

// notify posts the grouped notification for the nearby notes still within budget
// when the cooldown allows it, and charges every included note. Overlapping cycles
// take turns here so a note is never charged past its ceiling.
func (e *Engine) notify(ctx context.Context, nearby []core.Note) (Outcome, []string) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	notes := e.eligible(nearby)
	if len(notes) == 0 {
		return OutcomeQuiet, nil
	}
	if !e.permission() {
		e.logger.Debug("notification permission missing, skipping", "notes", len(notes))
		return OutcomeDenied, nil
	}

	now := e.now()
	if last := e.lastNotification.Load(); last != 0 && now.Sub(time.Unix(0, last)) <= e.cooldown {
		return OutcomeCooldown, nil
	}
	e.lastNotification.Store(now.UnixNano())

	titles := make([]string, len(notes))
	ids := make([]string, len(notes))
	for i, n := range notes {
		titles[i] = n.Title
		ids[i] = n.ID
	}

	if e.notifier != nil {
		if err := e.notifier.Notify(ctx, notify.NearbyNotification(titles)); err != nil {
			e.logger.Warn("failed to post notification", "notes", len(notes), "error", err)
			return OutcomeNotifyFailed, nil
		}
	}

	ceiling := e.budget.MaxPerNote()
	for _, id := range ids {
		if c := e.budget.Increment(id); c > ceiling {
			e.logger.Warn("notification count exceeded ceiling", "note", id, "count", c, "max", ceiling)
		}
	}
	e.notifications.Add(1)
	e.metrics.NotificationsTotal.Inc()
	e.metrics.NotifiedNotesTotal.Add(float64(len(ids)))
	e.logger.Info("posted nearby notification", "notes", len(ids))
	return OutcomeNotified, ids
}

// runActivityLoop evaluates immediately whenever the user starts moving.
func (e *Engine) runActivityLoop(ctx context.Context) error {
	updates := e.activities.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case a, ok := <-updates:
			if !ok {
				return nil
			}
			if !a.IsMoving() {
				continue
			}
			e.logger.Debug("movement detected, evaluating", "activity", a.Label())
			e.runCycle(ctx, TriggerActivity)
		}
	}
}

// runPeriodicLoop evaluates at an interval chosen from the latest activity.
func (e *Engine) runPeriodicLoop(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
			e.runCycle(ctx, TriggerPeriodic)
			timer.Reset(e.interval())
		}
	}
}

func (e *Engine) interval() time.Duration {
	if e.activities != nil && e.activities.Current().IsMoving() {
		return e.movingInterval
	}
	return e.stillInterval
}

// runCycle is Evaluate for the loops: errors are already logged by the cycle.
func (e *Engine) runCycle(ctx context.Context, trigger Trigger) {
	if _, err := e.Evaluate(ctx, trigger); err != nil {
		e.logger.Debug("evaluation cycle failed", "trigger", trigger, "error", err)
	}
}

// spawn runs fn as a tracked goroutine. Nothing is launched once Close has begun.
func (e *Engine) spawn(ctx context.Context, name string, fn func(context.Context) error) {
	e.spawnMu.Lock()
	defer e.spawnMu.Unlock()
	if e.closed {
		return
	}
	e.wg.Add(1)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer e.wg.Done()
		return fn(ctx)
	}, lifecycle.WithErrorHandler(func(err error) {
		e.logger.Error("proximity engine goroutine failed", "loop", name, "error", err)
	}))
}
