package position

import (
	"time"

	"github.com/aretw0/introspection"
)

// SourceState exposes internal state for observability.
type SourceState struct {
	Requests  int64      `json:"requests"`
	Failures  int64      `json:"failures"`
	LastFix   *time.Time `json:"last_fix,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	Timeout   string     `json:"timeout"`
	Closed    bool       `json:"closed"`
}

// State implements introspection.Introspectable.
func (s *Source) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := SourceState{
		Requests: s.requests.Load(),
		Failures: s.failures.Load(),
		Timeout:  s.timeout.String(),
		Closed:   s.base.Err() != nil,
	}
	if s.lastFix != nil {
		at := s.lastFix.Time
		st.LastFix = &at
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// ComponentType implements introspection.Component.
func (s *Source) ComponentType() string {
	return "position"
}

var _ introspection.Introspectable = (*Source)(nil)
var _ introspection.Component = (*Source)(nil)
