package platform

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/locus/internal/config"
	"github.com/aretw0/locus/pkg/activity"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/position"
)

// options holds the internal configuration for a locus runtime.
type options struct {
	config     *config.Config
	logger     *slog.Logger
	repository core.Repository
	provider   position.Provider
	recognizer activity.Recognizer
	notifier   notify.Notifier
	permission notify.Permission
	registerer prometheus.Registerer
	clock      func() time.Time
}

// Option defines a functional option for configuring locus.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		config: config.Default(),
	}
}

// WithConfig replaces the built-in configuration. Components injected through other
// options take precedence over the matching config section.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithVault sets the vault directory of the default filesystem store.
func WithVault(path string) Option {
	return func(o *options) {
		o.config.Vault.Path = path
	}
}

// WithVersioning commits every vault change to git.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config.Vault.Git = enabled
	}
}

// WithReadOnly opens the vault without ever writing to it.
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config.Vault.ReadOnly = enabled
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRepository injects a note store (e.g. memory.Store). If provided, the
// filesystem vault is skipped.
func WithRepository(repo core.Repository) Option {
	return func(o *options) {
		o.repository = repo
	}
}

// WithPositionProvider injects the platform position provider.
func WithPositionProvider(p position.Provider) Option {
	return func(o *options) {
		o.provider = p
	}
}

// WithRecognizer injects the platform activity recognizer.
func WithRecognizer(r activity.Recognizer) Option {
	return func(o *options) {
		o.recognizer = r
	}
}

// WithNotifier injects the notification surface.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithPermission injects the notification permission check.
func WithPermission(p notify.Permission) Option {
	return func(o *options) {
		o.permission = p
	}
}

// WithRegisterer registers the engine metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithClock replaces time.Now in the budget, tracker and engine.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.clock = now
	}
}
