// Package config loads the locus daemon configuration.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Config holds the complete locus configuration.
type Config struct {
	Vault     VaultConfig     `koanf:"vault"`
	Proximity ProximityConfig `koanf:"proximity"`
	Budget    BudgetConfig    `koanf:"budget"`
	Activity  ActivityConfig  `koanf:"activity"`
	Position  PositionConfig  `koanf:"position"`
	Notify    NotifyConfig    `koanf:"notify"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// VaultConfig selects the note vault.
type VaultConfig struct {
	Path     string `koanf:"path"`
	Pattern  string `koanf:"pattern"`
	Git      bool   `koanf:"git"`       // commit every change
	ReadOnly bool   `koanf:"read_only"` // never write to the vault
}

// ProximityConfig tunes the proximity engine.
type ProximityConfig struct {
	ThresholdMeters float64       `koanf:"threshold_meters"`
	Cooldown        time.Duration `koanf:"cooldown"`
	MovingInterval  time.Duration `koanf:"moving_interval"`
	StillInterval   time.Duration `koanf:"still_interval"`
}

// BudgetConfig tunes the per-note notification budget.
type BudgetConfig struct {
	MaxPerNote    int           `koanf:"max_per_note"`
	ResetInterval time.Duration `koanf:"reset_interval"`
}

// ActivityConfig configures activity recognition.
type ActivityConfig struct {
	Source        string        `koanf:"source"` // JSON-lines stream, "-" for stdin
	Watchdog      time.Duration `koanf:"watchdog"`
	MinConfidence int           `koanf:"min_confidence"`
}

// PositionConfig configures the position provider.
type PositionConfig struct {
	Provider           string        `koanf:"provider"`
	File               string        `koanf:"file"`
	Latitude           float64       `koanf:"latitude"`
	Longitude          float64       `koanf:"longitude"`
	Timeout            time.Duration `koanf:"timeout"`
	MaxAge             time.Duration `koanf:"max_age"`
	HighAccuracyMaxAge time.Duration `koanf:"high_accuracy_max_age"`
}

// NotifyConfig configures how notifications are posted.
type NotifyConfig struct {
	Command string `koanf:"command"`
	Enabled bool   `koanf:"enabled"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Position providers.
const (
	ProviderFile   = "file"
	ProviderStatic = "static"
)

// Validate checks the configuration for values the components would reject.
func (c *Config) Validate() error {
	if c.Vault.Path == "" {
		return errors.New("vault path is required")
	}
	if !doublestar.ValidatePattern(c.Vault.Pattern) {
		return fmt.Errorf("invalid vault pattern: %q", c.Vault.Pattern)
	}
	if c.Vault.Git && c.Vault.ReadOnly {
		return errors.New("vault cannot be both versioned and read-only")
	}

	if c.Proximity.ThresholdMeters <= 0 {
		return fmt.Errorf("invalid proximity threshold: %v (must be positive)", c.Proximity.ThresholdMeters)
	}
	if c.Proximity.Cooldown < 0 {
		return errors.New("proximity cooldown must not be negative")
	}
	if c.Proximity.MovingInterval <= 0 || c.Proximity.StillInterval <= 0 {
		return errors.New("proximity intervals must be positive")
	}

	if c.Budget.MaxPerNote < 1 {
		return fmt.Errorf("invalid budget: %d notifications per note (must be at least 1)", c.Budget.MaxPerNote)
	}
	if c.Budget.ResetInterval <= 0 {
		return errors.New("budget reset interval must be positive")
	}

	if c.Activity.MinConfidence < 0 || c.Activity.MinConfidence > 100 {
		return fmt.Errorf("invalid activity confidence: %d (must be 0-100)", c.Activity.MinConfidence)
	}
	if c.Activity.Watchdog < 0 {
		return errors.New("activity watchdog must not be negative")
	}

	switch c.Position.Provider {
	case ProviderFile:
		if c.Position.File == "" {
			return errors.New("position file is required for the file provider")
		}
	case ProviderStatic:
		if c.Position.Latitude < -90 || c.Position.Latitude > 90 || c.Position.Longitude < -180 || c.Position.Longitude > 180 {
			return fmt.Errorf("static position out of range: %v, %v", c.Position.Latitude, c.Position.Longitude)
		}
	default:
		return fmt.Errorf("unknown position provider: %q (want %s or %s)", c.Position.Provider, ProviderFile, ProviderStatic)
	}
	if c.Position.Timeout <= 0 {
		return errors.New("position timeout must be positive")
	}
	if c.Position.MaxAge <= 0 || c.Position.HighAccuracyMaxAge <= 0 {
		return errors.New("position freshness bounds must be positive")
	}

	return nil
}
