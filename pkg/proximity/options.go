package proximity

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/locus/pkg/notify"
)

const (
	// DefaultThreshold is two statute miles in meters.
	DefaultThreshold = 3218.69
	DefaultCooldown  = 60 * time.Second
	// DefaultMovingInterval is the periodic interval while the user is moving.
	DefaultMovingInterval = time.Minute
	// DefaultStillInterval is the periodic interval while STILL or UNKNOWN.
	DefaultStillInterval = 5 * time.Minute
)

// Option configures an Engine.
type Option func(*Engine)

// WithThreshold sets the nearby distance in meters.
func WithThreshold(meters float64) Option {
	return func(e *Engine) {
		if meters > 0 {
			e.threshold = meters
		}
	}
}

// WithCooldown sets the minimum time between two grouped notifications.
func WithCooldown(d time.Duration) Option {
	return func(e *Engine) {
		if d >= 0 {
			e.cooldown = d
		}
	}
}

// WithIntervals sets the periodic evaluation intervals.
func WithIntervals(moving, still time.Duration) Option {
	return func(e *Engine) {
		if moving > 0 {
			e.movingInterval = moving
		}
		if still > 0 {
			e.stillInterval = still
		}
	}
}

// WithPermission sets the notification permission check.
func WithPermission(p notify.Permission) Option {
	return func(e *Engine) {
		if p != nil {
			e.permission = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the clock used for cooldowns.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRegisterer registers the engine metrics on reg instead of a private registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		e.registerer = reg
	}
}
