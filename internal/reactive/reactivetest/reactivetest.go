// Package reactivetest drives a reactive.Loop from tests.
package reactivetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/trips/internal/reactive"
	"github.com/stretchr/testify/require"
)

// WaitFor is how long Wait helpers poll before failing.
const WaitFor = 2 * time.Second

// StartLoop runs a loop until the test ends.
func StartLoop(t testing.TB) *reactive.Loop {
	t.Helper()
	loop := reactive.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return loop
}

// NewScope returns a root scope disposed when the test ends.
func NewScope(t testing.TB) *reactive.Scope {
	t.Helper()
	scope := reactive.NewScope(context.Background())
	t.Cleanup(scope.Dispose)
	return scope
}

// OnLoop runs fn on the loop and waits for it.
func OnLoop(t testing.TB, loop *reactive.Loop, fn func()) {
	t.Helper()
	require.NoError(t, loop.Do(context.Background(), fn))
}

// Recorder collects emissions.
type Recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *Recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

// Values returns a copy of everything recorded so far.
func (r *Recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, len(r.values))
	copy(out, r.values)
	return out
}

// Len returns the number of recorded values.
func (r *Recorder[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.values)
}

// Last returns the most recent value.
func (r *Recorder[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero T
	if len(r.values) == 0 {
		return zero, false
	}
	return r.values[len(r.values)-1], true
}

// WaitLen blocks until at least n values were recorded.
func (r *Recorder[T]) WaitLen(t testing.TB, n int) []T {
	t.Helper()
	require.Eventually(t, func() bool { return r.Len() >= n }, WaitFor, 5*time.Millisecond)
	return r.Values()
}

// Record subscribes to src on the loop and records what it emits.
func Record[T any](t testing.TB, loop *reactive.Loop, scope *reactive.Scope, src reactive.Stream[T]) *Recorder[T] {
	t.Helper()
	rec := &Recorder[T]{}
	OnLoop(t, loop, func() { src(scope, rec.add) })
	return rec
}
