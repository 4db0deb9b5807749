// Package observable provides a replay-latest value holder.
//
// Late subscribers immediately receive the current value and then every later
// update in emission order. Subscribers that fall too far behind lose the oldest
// pending updates, never the newest one.
package observable

import (
	"context"
	"sync"
)

// DefaultBuffer is the number of pending updates kept per subscriber.
const DefaultBuffer = 8

// Option configures a Value.
type Option[T any] func(*Value[T])

// WithEqual makes Set ignore values equal to the current one.
func WithEqual[T any](eq func(a, b T) bool) Option[T] {
	return func(v *Value[T]) {
		v.equal = eq
	}
}

// WithBuffer sets the per-subscriber buffer size (minimum 1).
func WithBuffer[T any](n int) Option[T] {
	return func(v *Value[T]) {
		if n < 1 {
			n = 1
		}
		v.buffer = n
	}
}

// Value holds the latest value of T and fans updates out to subscribers.
type Value[T any] struct {
	mu     sync.Mutex
	cur    T
	equal  func(a, b T) bool
	buffer int
	subs   map[chan T]struct{}
}

// New creates a Value holding initial.
func New[T any](initial T, opts ...Option[T]) *Value[T] {
	v := &Value[T]{
		cur:    initial,
		buffer: DefaultBuffer,
		subs:   make(map[chan T]struct{}),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cur
}

// Set stores val and publishes it. It returns false when val was dropped as
// equal to the current value.
func (v *Value[T]) Set(val T) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.equal != nil && v.equal(v.cur, val) {
		return false
	}
	v.cur = val
	for ch := range v.subs {
		push(ch, val)
	}
	return true
}

// Update applies fn to the current value atomically and publishes the result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()

	next := fn(v.cur)
	if v.equal != nil && v.equal(v.cur, next) {
		return v.cur
	}
	v.cur = next
	for ch := range v.subs {
		push(ch, next)
	}
	return next
}

// Subscribe returns a channel that first yields the current value and then every
// later update. The channel is closed once ctx is done.
func (v *Value[T]) Subscribe(ctx context.Context) <-chan T {
	ch := make(chan T, v.buffer)

	v.mu.Lock()
	ch <- v.cur
	if ctx.Err() != nil {
		v.mu.Unlock()
		close(ch)
		return ch
	}
	v.subs[ch] = struct{}{}
	v.mu.Unlock()

	context.AfterFunc(ctx, func() {
		v.mu.Lock()
		defer v.mu.Unlock()
		if _, ok := v.subs[ch]; ok {
			delete(v.subs, ch)
			close(ch)
		}
	})
	return ch
}

// Subscribers returns the number of active subscriptions.
func (v *Value[T]) Subscribers() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.subs)
}

// push sends without blocking, evicting the oldest pending update when full.
// Callers hold v.mu, so this goroutine is the only sender on ch.
func push[T any](ch chan T, val T) {
	select {
	case ch <- val:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- val
}
