package observable_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/locus/pkg/observable"
)

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for value")
	}
	var zero T
	return zero
}

func TestValue_ReplayLatest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := observable.New(1)
	v.Set(2)

	late := v.Subscribe(ctx)
	assert.Equal(t, 2, receive(t, late), "late subscriber sees the latest value, not a backlog")

	v.Set(3)
	v.Set(4)
	assert.Equal(t, 3, receive(t, late))
	assert.Equal(t, 4, receive(t, late))
	assert.Equal(t, 4, v.Get())
}

func TestValue_Equal(t *testing.T) {
	v := observable.New("unknown", observable.WithEqual(func(a, b string) bool { return a == b }))

	assert.False(t, v.Set("unknown"))
	assert.True(t, v.Set("walking"))
	assert.False(t, v.Set("walking"))
	assert.Equal(t, "walking", v.Update(func(s string) string { return s }))
}

func TestValue_SlowSubscriberKeepsNewest(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := observable.New(0, observable.WithBuffer[int](2))
	ch := v.Subscribe(ctx)
	for i := 1; i <= 10; i++ {
		v.Set(i)
	}

	first := receive(t, ch)
	second := receive(t, ch)
	assert.Equal(t, 9, first)
	assert.Equal(t, 10, second)
}

func TestValue_UnsubscribeOnCancel(t *testing.T) {
	v := observable.New(0)
	ctx, cancel := context.WithCancel(context.Background())
	ch := v.Subscribe(ctx)
	assert.Equal(t, 1, v.Subscribers())

	cancel()
	require.Eventually(t, func() bool { return v.Subscribers() == 0 }, time.Second, 5*time.Millisecond)

	<-ch // initial value
	_, ok := <-ch
	assert.False(t, ok)

	// Setting after unsubscribe must not panic on the closed channel.
	v.Set(1)
}
