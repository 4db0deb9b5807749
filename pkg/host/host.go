// Package host keeps the proximity engine alive in the background. It owns the
// activity tracker, the live note collection and the engine, starts them together
// and cancels them as a unit.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/locus/pkg/activity"
	"github.com/aretw0/locus/pkg/budget"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/notes"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/position"
	"github.com/aretw0/locus/pkg/proximity"
)

// Config holds the components run by the host. Tracker may be nil; everything else
// is required.
type Config struct {
	Tracker    *activity.Tracker
	Notes      *notes.Live
	Engine     *proximity.Engine
	Budget     *budget.Tracker
	Positions  *position.Source
	Notifier   notify.Notifier
	Permission notify.Permission
	Logger     *slog.Logger
}

// Host is the background execution host, a lifecycle worker.
type Host struct {
	*worker.BaseWorker
	config Config
	logger *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	activityErr error
	statusErr   error
}

// New creates a Host.
func New(config Config) (*Host, error) {
	if config.Notes == nil || config.Engine == nil || config.Budget == nil || config.Positions == nil || config.Notifier == nil {
		return nil, errors.New("host requires notes, engine, budget, positions and notifier")
	}
	if config.Permission == nil {
		config.Permission = notify.Allowed
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Host{
		BaseWorker: worker.NewBaseWorker("locus-host"),
		config:     config,
		logger:     config.Logger,
		done:       make(chan struct{}),
	}, nil
}

// Start posts the status indicator and starts every component. Only a failure to
// load the notes is fatal; activity tracking is optional.
func (h *Host) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := h.BaseWorker.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("host already started (status: %s)", status)
	}

	runCtx, cancel := context.WithCancel(ctx)

	h.postStatus(runCtx)

	if h.config.Tracker != nil {
		if err := h.config.Tracker.Start(runCtx); err != nil {
			level := slog.LevelWarn
			if errors.Is(err, activity.ErrNoRecognizer) {
				level = slog.LevelInfo
			}
			h.logger.Log(runCtx, level, "activity tracking unavailable, polling at the still interval", "error", err)
			h.mu.Lock()
			h.activityErr = err
			h.mu.Unlock()
		}
	}

	// Registered before Start so no delete slips through between load and watch.
	h.config.Notes.OnDelete(h.config.Budget.Forget)
	if err := h.config.Notes.Start(runCtx); err != nil {
		cancel()
		_ = h.config.Engine.Close()
		h.config.Positions.Close()
		return fmt.Errorf("failed to start note collection: %w", err)
	}

	h.config.Engine.Start(runCtx)
	h.cancel = cancel

	h.SetStatus(worker.StatusRunning)
	h.logger.Info("monitoring nearby notes")
	return h.StartFunc(runCtx, h.run)
}

// Stop cancels every component and waits for the engine to drain.
func (h *Host) Stop(ctx context.Context) error {
	if h.cancel == nil {
		return h.BaseWorker.Stop(ctx)
	}
	h.StopRequested = true
	h.cancel()
	err := h.BaseWorker.Stop(ctx)

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Done is closed once the host has shut every component down.
func (h *Host) Done() <-chan struct{} {
	return h.done
}

func (h *Host) run(ctx context.Context) error {
	defer close(h.done)
	<-ctx.Done()

	h.logger.Debug("stopping background host")
	_ = h.config.Engine.Close()
	h.config.Positions.Close()
	return nil
}

// postStatus shows the persistent indicator. Failures are logged; the host runs
// without it.
func (h *Host) postStatus(ctx context.Context) {
	if !h.config.Permission() {
		h.logger.Debug("notification permission missing, status indicator not shown")
		return
	}
	if err := h.config.Notifier.Notify(ctx, notify.StatusNotification()); err != nil {
		h.logger.Warn("failed to post status notification", "error", err)
		h.mu.Lock()
		h.statusErr = err
		h.mu.Unlock()
	}
}

// CheckNow requests an immediate high-accuracy evaluation.
func (h *Host) CheckNow() {
	h.config.Engine.CheckNow()
}

// Simulate injects an activity for QA. It is a no-op without a tracker.
func (h *Host) Simulate(a core.Activity) {
	if h.config.Tracker != nil {
		h.config.Tracker.Simulate(a)
	}
}

// Nearby returns the current nearby set.
func (h *Host) Nearby() []core.Note {
	return h.config.Engine.Nearby().Get()
}

// State reports the worker state with a summary of the components in its metadata.
func (h *Host) State() worker.State {
	nearby := len(h.config.Engine.Nearby().Get())
	list, _ := h.config.Notes.Notes(context.Background())
	activityState := string(core.ActivityUnknown)
	if h.config.Tracker != nil {
		activityState = string(h.config.Tracker.Current())
	}
	return h.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"activity":          activityState,
			"notes":             strconv.Itoa(len(list)),
			"nearby":            strconv.Itoa(nearby),
		}
	})
}
