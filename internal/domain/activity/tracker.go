// Package activity tracks in-flight operations and exposes a busy flag
// for presentation.
package activity

import (
	"sync"

	"github.com/rpggio/trips/internal/reactive"
)

// Tracker is a reference count of in-flight operations. It reads busy
// while the count is above zero.
//
// The busy flag is published under the tracker's lock so transitions stay
// ordered. IsBusy subscribers must not call back into the tracker.
type Tracker struct {
	name     string
	observer Observer

	mu    sync.Mutex
	count int
	busy  *reactive.Variable[bool]
}

// NewTracker creates an idle tracker.
func NewTracker(name string, opts ...Option) *Tracker {
	t := &Tracker{
		name: name,
		busy: reactive.NewVariable(false),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the tracker's name.
func (t *Tracker) Name() string { return t.name }

// Token is the claim returned by MarkBusy.
type Token struct {
	once    sync.Once
	tracker *Tracker
}

// Release gives the claim back. Only the first call has an effect.
func (tok *Token) Release() {
	tok.once.Do(func() {
		tok.tracker.add(-1)
	})
}

// MarkBusy increments the count and returns the token that decrements it.
func (t *Tracker) MarkBusy() *Token {
	t.add(1)
	return &Token{tracker: t}
}

// Count returns the number of unreleased tokens.
func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// Busy reports whether any token is outstanding.
func (t *Tracker) Busy() bool {
	return t.Count() > 0
}

// IsBusy emits the current busy flag, then every transition.
func (t *Tracker) IsBusy() reactive.Stream[bool] {
	return reactive.Distinct(t.busy.Stream())
}

func (t *Tracker) add(delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.count += delta
	if t.observer != nil {
		t.observer.ObserveInFlight(t.name, t.count)
	}
	busy := t.count > 0
	if busy != t.busy.Value() {
		t.busy.Set(busy)
	}
}

// Track holds a token on t from subscription until src first emits or the
// subscription's scope is disposed.
func Track[T any](t *Tracker, src reactive.Stream[T]) reactive.Stream[T] {
	return func(scope *reactive.Scope, next func(T)) {
		if scope.Disposed() {
			return
		}
		tok := t.MarkBusy()
		scope.Defer(tok.Release)
		src(scope, func(v T) {
			tok.Release()
			next(v)
		})
	}
}
