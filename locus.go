package locus

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/locus/internal/config"
	"github.com/aretw0/locus/internal/platform"
	"github.com/aretw0/locus/pkg/activity"
	"github.com/aretw0/locus/pkg/core"
	"github.com/aretw0/locus/pkg/notify"
	"github.com/aretw0/locus/pkg/position"
)

// --- Types ---

// Runtime is a fully wired locus instance.
type Runtime = platform.Runtime

// Config is the daemon configuration.
type Config = config.Config

// --- Configuration ---

// Option defines a functional option for configuring locus.
type Option = platform.Option

// LoadConfig reads a YAML config file (empty for the default path) with LOCUS_*
// environment overrides.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// WithConfig replaces the built-in configuration.
func WithConfig(cfg *Config) Option {
	return platform.WithConfig(cfg)
}

// WithVault sets the notes vault directory.
func WithVault(path string) Option {
	return platform.WithVault(path)
}

// WithVersioning commits every vault change to git.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithReadOnly opens the vault without writing to it.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRepository injects a note store.
func WithRepository(repo core.Repository) Option {
	return platform.WithRepository(repo)
}

// WithPositionProvider injects the position provider.
func WithPositionProvider(p position.Provider) Option {
	return platform.WithPositionProvider(p)
}

// WithRecognizer injects the activity recognizer.
func WithRecognizer(r activity.Recognizer) Option {
	return platform.WithRecognizer(r)
}

// WithNotifier injects the notification surface.
func WithNotifier(n notify.Notifier) Option {
	return platform.WithNotifier(n)
}

// WithPermission injects the notification permission check.
func WithPermission(p notify.Permission) Option {
	return platform.WithPermission(p)
}

// WithRegisterer registers the engine metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return platform.WithRegisterer(reg)
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return platform.WithClock(now)
}

// --- Factory ---

// New builds a locus runtime.
func New(opts ...Option) (*Runtime, error) {
	return platform.New(opts...)
}
