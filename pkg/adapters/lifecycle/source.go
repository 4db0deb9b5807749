// Package lifecycle bridges note store change events to lifecycle sources.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/locus/pkg/core"
)

type storeSource struct {
	store core.Watchable
	out   chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the change events of store.
// Every emitted event is a core.Event. The channel closes when the watch ends.
func NewSource(store core.Watchable) lifecycle.Source {
	return &storeSource{
		store: store,
		out:   make(chan lifecycle.Event),
	}
}

func (s *storeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes to the store. A failed subscription is returned and the event
// channel is closed.
func (s *storeSource) Start(ctx context.Context) error {
	events, err := s.store.Watch(ctx)
	if err != nil {
		close(s.out)
		return fmt.Errorf("failed to watch note store: %w", err)
	}

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
