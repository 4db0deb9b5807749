// Package position supplies the best-effort current coordinate of the device.
//
// Every failure mode (missing permission, provider error, timeout, cancellation)
// collapses into a single "no location" result so callers have one code path.
package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/aretw0/locus/pkg/core"
)

// Errors reported by providers.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrUnavailable      = errors.New("location unavailable")
)

// Priority trades accuracy against power draw.
type Priority int

const (
	// PriorityBalanced is used for routine polling.
	PriorityBalanced Priority = iota
	// PriorityHighAccuracy waits a bounded time for a fresh fix.
	PriorityHighAccuracy
)

func (p Priority) String() string {
	if p == PriorityHighAccuracy {
		return "high_accuracy"
	}
	return "balanced"
}

// Request parameterizes a single provider lookup.
type Request struct {
	Priority Priority
	// MaxAge is the oldest fix that satisfies the request.
	MaxAge time.Duration
	// Wait bounds how long a high-accuracy request waits for a fix within MaxAge.
	Wait time.Duration
	// FallbackMaxAge is accepted once Wait has elapsed without a fresh fix.
	FallbackMaxAge time.Duration
}

// Provider is the platform location subsystem.
type Provider interface {
	Locate(ctx context.Context, req Request) (core.Fix, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (core.Fix, error)

// Locate implements Provider.
func (f ProviderFunc) Locate(ctx context.Context, req Request) (core.Fix, error) {
	return f(ctx, req)
}

const (
	DefaultTimeout            = 30 * time.Second
	DefaultMaxAge             = 2 * time.Minute
	DefaultHighAccuracyMaxAge = 10 * time.Second
	DefaultHighAccuracyWait   = 10 * time.Second
)

// Option configures a Source.
type Option func(*Source)

// WithTimeout bounds a single fetch.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxAge sets the freshness bound for balanced requests.
func WithMaxAge(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithHighAccuracy sets the freshness bound and wait of high-accuracy requests.
func WithHighAccuracy(maxAge, wait time.Duration) Option {
	return func(s *Source) {
		if maxAge > 0 {
			s.highMaxAge = maxAge
		}
		if wait > 0 {
			s.highWait = wait
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Source wraps a Provider with timeouts, cancellation and in-flight deduplication:
// overlapping callers asking for the same priority share one provider request.
type Source struct {
	provider   Provider
	timeout    time.Duration
	maxAge     time.Duration
	highMaxAge time.Duration
	highWait   time.Duration
	logger     *slog.Logger

	group   singleflight.Group
	base    context.Context
	cancel  context.CancelFunc
	flights map[string]*flight

	mu      sync.Mutex
	lastFix *core.Fix
	lastErr error

	requests atomic.Int64
	failures atomic.Int64
}

// NewSource creates a Source. Close releases in-flight requests.
func NewSource(provider Provider, opts ...Option) *Source {
	s := &Source{
		provider:   provider,
		timeout:    DefaultTimeout,
		maxAge:     DefaultMaxAge,
		highMaxAge: DefaultHighAccuracyMaxAge,
		highWait:   DefaultHighAccuracyWait,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.base, s.cancel = context.WithCancel(context.Background())
	s.flights = make(map[string]*flight)
	return s
}

// flight is the shared provider request of one priority. It is cancelled when its
// last waiter leaves.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (s *Source) join(key string) *flight {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flights[key]
	if !ok {
		ctx, cancel := context.WithTimeout(s.base, s.timeout)
		f = &flight{ctx: ctx, cancel: cancel}
		s.flights[key] = f
	}
	f.waiters++
	return f
}

func (s *Source) leave(key string, f *flight) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f.waiters--
	if f.waiters > 0 {
		return
	}
	f.cancel()
	if s.flights[key] == f {
		delete(s.flights, key)
		// A request still unwinding from cancellation must not be shared.
		s.group.Forget(key)
	}
}

// Current returns the current coordinate, or false when none is available.
// It returns early when ctx is done. The shared provider request is cancelled once
// every caller waiting on it has left, and is bounded by the source timeout and by Close.
func (s *Source) Current(ctx context.Context, p Priority) (core.Coordinate, bool) {
	if s.provider == nil || s.base.Err() != nil {
		return core.Coordinate{}, false
	}
	s.requests.Add(1)

	key := p.String()
	f := s.join(key)
	defer s.leave(key, f)

	ch := s.group.DoChan(key, func() (any, error) {
		return s.locate(f.ctx, s.request(p))
	})

	select {
	case <-ctx.Done():
		s.logger.Debug("location request cancelled", "priority", p, "error", ctx.Err())
		return core.Coordinate{}, false
	case res := <-ch:
		if res.Err != nil {
			s.fail(p, res.Err)
			return core.Coordinate{}, false
		}
		fix := res.Val.(core.Fix)
		if !fix.Valid() {
			s.fail(p, fmt.Errorf("%w: invalid coordinate %s", ErrUnavailable, fix.Coordinate))
			return core.Coordinate{}, false
		}
		s.mu.Lock()
		s.lastFix = &fix
		s.lastErr = nil
		s.mu.Unlock()
		return fix.Coordinate, true
	}
}

// LastFix returns the most recent successful fix.
func (s *Source) LastFix() (core.Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFix == nil {
		return core.Fix{}, false
	}
	return *s.lastFix, true
}

// Close cancels in-flight requests. Later calls to Current report no location.
func (s *Source) Close() {
	s.cancel()
}

func (s *Source) request(p Priority) Request {
	if p == PriorityHighAccuracy {
		return Request{
			Priority:       p,
			MaxAge:         s.highMaxAge,
			Wait:           s.highWait,
			FallbackMaxAge: s.maxAge,
		}
	}
	return Request{Priority: p, MaxAge: s.maxAge}
}

// locate shields the caller from provider panics.
func (s *Source) locate(ctx context.Context, req Request) (fix core.Fix, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("location provider panic: %v", r)
		}
	}()
	return s.provider.Locate(ctx, req)
}

func (s *Source) fail(p Priority, err error) {
	s.failures.Add(1)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	switch {
	case errors.Is(err, ErrPermissionDenied):
		s.logger.Warn("location permission missing", "priority", p)
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("location request timed out", "priority", p, "timeout", s.timeout)
	default:
		s.logger.Warn("location unavailable", "priority", p, "error", err)
	}
}
