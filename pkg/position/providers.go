package position

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/locus/pkg/core"
)

// StaticProvider always reports the same coordinate, stamped with the current time.
type StaticProvider struct {
	Coordinate core.Coordinate
	Accuracy   float64
}

// Locate implements Provider.
func (p StaticProvider) Locate(ctx context.Context, _ Request) (core.Fix, error) {
	if err := ctx.Err(); err != nil {
		return core.Fix{}, err
	}
	if !p.Coordinate.Valid() {
		return core.Fix{}, fmt.Errorf("%w: static coordinate %s out of range", ErrUnavailable, p.Coordinate)
	}
	return core.Fix{Coordinate: p.Coordinate, Accuracy: p.Accuracy, Time: time.Now()}, nil
}

// fixFile is the on-disk shape written by an external positioning bridge.
// JSON and YAML are both accepted.
type fixFile struct {
	Latitude  *float64 `yaml:"latitude"`
	Longitude *float64 `yaml:"longitude"`
	Accuracy  float64  `yaml:"accuracy"`
	Time      string   `yaml:"time"`
}

// FileOption configures a FileProvider.
type FileOption func(*FileProvider)

// WithFileLogger sets the logger of a FileProvider.
func WithFileLogger(logger *slog.Logger) FileOption {
	return func(p *FileProvider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithFileClock overrides the clock used to age fixes.
func WithFileClock(now func() time.Time) FileOption {
	return func(p *FileProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// FileProvider reads the latest fix from a file kept up to date by another process.
// A fix without a time is treated as taken when the file was last modified.
type FileProvider struct {
	path   string
	logger *slog.Logger
	now    func() time.Time
}

// NewFileProvider creates a provider for the fix file at path.
func NewFileProvider(path string, opts ...FileOption) *FileProvider {
	p := &FileProvider{
		path:   filepath.Clean(path),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Path returns the watched fix file.
func (p *FileProvider) Path() string {
	return p.path
}

// Locate implements Provider. High-accuracy requests wait up to req.Wait for the
// file to be rewritten with a fresh fix and then settle for one within
// req.FallbackMaxAge.
func (p *FileProvider) Locate(ctx context.Context, req Request) (core.Fix, error) {
	fix, err := p.read()
	if err == nil && p.fresh(fix, req.MaxAge) {
		return fix, nil
	}
	if errors.Is(err, ErrPermissionDenied) {
		return core.Fix{}, err
	}
	if req.Priority != PriorityHighAccuracy || req.Wait <= 0 {
		return core.Fix{}, p.staleOr(err, fix)
	}

	if waited, werr := p.waitFresh(ctx, req); werr == nil {
		return waited, nil
	}

	// Settle for the best fix on disk.
	fix, err = p.read()
	if err == nil && p.fresh(fix, req.FallbackMaxAge) {
		return fix, nil
	}
	return core.Fix{}, p.staleOr(err, fix)
}

func (p *FileProvider) waitFresh(ctx context.Context, req Request) (core.Fix, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return core.Fix{}, err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		return core.Fix{}, err
	}

	timer := time.NewTimer(req.Wait)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return core.Fix{}, ctx.Err()
		case <-timer.C:
			return core.Fix{}, context.DeadlineExceeded
		case event, ok := <-watcher.Events:
			if !ok {
				return core.Fix{}, ErrUnavailable
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			fix, err := p.read()
			if err == nil && p.fresh(fix, req.MaxAge) {
				return fix, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return core.Fix{}, ErrUnavailable
			}
			p.logger.Warn("fix file watcher error", "path", p.path, "error", err)
		}
	}
}

func (p *FileProvider) read() (core.Fix, error) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		switch {
		case os.IsPermission(err):
			return core.Fix{}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		case os.IsNotExist(err):
			return core.Fix{}, fmt.Errorf("%w: no fix at %s", ErrUnavailable, p.path)
		}
		return core.Fix{}, err
	}

	var raw fixFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return core.Fix{}, fmt.Errorf("%w: malformed fix file: %v", ErrUnavailable, err)
	}
	if raw.Latitude == nil || raw.Longitude == nil {
		return core.Fix{}, fmt.Errorf("%w: fix file lacks coordinates", ErrUnavailable)
	}

	fix := core.Fix{
		Coordinate: core.Coordinate{Latitude: *raw.Latitude, Longitude: *raw.Longitude},
		Accuracy:   raw.Accuracy,
	}
	if ts := strings.TrimSpace(raw.Time); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return core.Fix{}, fmt.Errorf("%w: bad fix time %q", ErrUnavailable, ts)
		}
		fix.Time = t
	} else if info, err := os.Stat(p.path); err == nil {
		fix.Time = info.ModTime()
	}
	return fix, nil
}

func (p *FileProvider) fresh(fix core.Fix, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return p.now().Sub(fix.Time) <= maxAge
}

func (p *FileProvider) staleOr(err error, fix core.Fix) error {
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: fix from %s is stale", ErrUnavailable, fix.Time.Format(time.RFC3339))
}
