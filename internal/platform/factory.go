package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/locus/internal/config"
	"github.com/aretw0/locus/pkg/activity"
	"github.com/aretw0/locus/pkg/adapters/fs"
	"github.com/aretw0/locus/pkg/budget"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/host"
	"github.com/aretw0/locus/pkg/notes"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/position"
	"github.com/aretw0/locus/pkg/proximity"
)

// Runtime is a fully wired locus instance. Host runs everything in the background;
// the other fields allow one-shot use (CLI commands, tests).
type Runtime struct {
	Config     *config.Config
	Repository core.Repository
	Service    *core.Service
	Notes      *notes.Live
	Tracker    *activity.Tracker
	Positions  *position.Source
	Budget     *budget.Tracker
	Engine     *proximity.Engine
	Host       *host.Host
	Notifier   notify.Notifier
}

// New builds every component from the options.
//
//	rt, err := locus.New(locus.WithVault("~/notes"))
func New(opts ...Option) (*Runtime, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	cfg := o.config
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	repo, err := openRepository(cfg, o, logger)
	if err != nil {
		return nil, err
	}

	provider := o.provider
	if provider == nil {
		provider, err = newProvider(cfg.Position, logger)
		if err != nil {
			return nil, err
		}
	}
	positions := position.NewSource(provider,
		position.WithTimeout(cfg.Position.Timeout),
		position.WithMaxAge(cfg.Position.MaxAge),
		position.WithHighAccuracy(cfg.Position.HighAccuracyMaxAge, position.DefaultHighAccuracyWait),
		position.WithLogger(logger),
	)

	recognizer := o.recognizer
	if recognizer == nil {
		recognizer = newRecognizer(cfg.Activity, logger)
	}
	trackerOpts := []activity.Option{
		activity.WithLogger(logger),
		activity.WithMinConfidence(cfg.Activity.MinConfidence),
		activity.WithWatchdog(cfg.Activity.Watchdog),
	}
	budgetOpts := []budget.Option{
		budget.WithMaxPerNote(cfg.Budget.MaxPerNote),
		budget.WithResetInterval(cfg.Budget.ResetInterval),
		budget.WithLogger(logger),
	}

	notifier := o.notifier
	if notifier == nil {
		notifier, err = newNotifier(cfg.Notify, logger)
		if err != nil {
			return nil, err
		}
	}
	permission := o.permission
	if permission == nil {
		permission = notify.Allowed
		if !cfg.Notify.Enabled {
			permission = notify.Denied
		}
	}

	engineOpts := []proximity.Option{
		proximity.WithThreshold(cfg.Proximity.ThresholdMeters),
		proximity.WithCooldown(cfg.Proximity.Cooldown),
		proximity.WithIntervals(cfg.Proximity.MovingInterval, cfg.Proximity.StillInterval),
		proximity.WithPermission(permission),
		proximity.WithLogger(logger),
		proximity.WithRegisterer(o.registerer),
	}

	if o.clock != nil {
		trackerOpts = append(trackerOpts, activity.WithClock(o.clock))
		budgetOpts = append(budgetOpts, budget.WithClock(o.clock))
		engineOpts = append(engineOpts, proximity.WithClock(o.clock))
	}

	tracker := activity.NewTracker(recognizer, trackerOpts...)
	b := budget.New(budgetOpts...)
	live := notes.NewLive(repo, notes.WithLogger(logger))
	engine := proximity.New(live, positions, tracker, b, notifier, engineOpts...)

	h, err := host.New(host.Config{
		Tracker:    tracker,
		Notes:      live,
		Engine:     engine,
		Budget:     b,
		Positions:  positions,
		Notifier:   notifier,
		Permission: permission,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	return &Runtime{
		Config:     cfg,
		Repository: repo,
		Service:    core.NewService(repo),
		Notes:      live,
		Tracker:    tracker,
		Positions:  positions,
		Budget:     b,
		Engine:     engine,
		Host:       h,
		Notifier:   notifier,
	}, nil
}

func openRepository(cfg *config.Config, o *options, logger *slog.Logger) (core.Repository, error) {
	if o.repository != nil {
		return o.repository, nil
	}

	repo := fs.NewRepository(fs.Config{
		Path:      cfg.Vault.Path,
		MustExist: cfg.Vault.ReadOnly,
		Pattern:   cfg.Vault.Pattern,
		ReadOnly:  cfg.Vault.ReadOnly,
		Versioned: cfg.Vault.Git,
		Logger:    logger,
		ErrorHandler: func(err error) {
			logger.Debug("vault watcher error", "error", err)
		},
	})
	if err := repo.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to open vault %s: %w", cfg.Vault.Path, err)
	}
	return repo, nil
}

func newProvider(cfg config.PositionConfig, logger *slog.Logger) (position.Provider, error) {
	switch cfg.Provider {
	case config.ProviderStatic:
		return position.StaticProvider{
			Coordinate: core.Coordinate{Latitude: cfg.Latitude, Longitude: cfg.Longitude},
		}, nil
	case config.ProviderFile, "":
		return position.NewFileProvider(cfg.File, position.WithFileLogger(logger)), nil
	}
	return nil, fmt.Errorf("unknown position provider: %s", cfg.Provider)
}

// newRecognizer returns nil when no activity source is configured.
func newRecognizer(cfg config.ActivityConfig, logger *slog.Logger) activity.Recognizer {
	if cfg.Source == "" {
		return nil
	}
	return activity.OpenStreamRecognizer(cfg.Source, logger)
}

func newNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.Command == "" {
		return notify.LogNotifier{Logger: logger}, nil
	}
	n, err := notify.NewCommandNotifier(cfg.Command, logger)
	if err != nil {
		return nil, fmt.Errorf("invalid notify command: %w", err)
	}
	return n, nil
}
