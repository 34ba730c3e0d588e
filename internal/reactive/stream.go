package reactive

import (
	"context"
	"sync"
)

// Stream is a cold source of values. Subscribing calls it with the scope
// that bounds the subscription and the callback that receives values.
// Callbacks run on the loop.
type Stream[T any] func(scope *Scope, next func(T))

// Subscribe is sugar for s(scope, next).
func (s Stream[T]) Subscribe(scope *Scope, next func(T)) {
	s(scope, next)
}

// Just emits v once, synchronously.
func Just[T any](v T) Stream[T] {
	return func(scope *Scope, next func(T)) {
		if !scope.Disposed() {
			next(v)
		}
	}
}

// Never emits nothing.
func Never[T any]() Stream[T] {
	return func(*Scope, func(T)) {}
}

type subscriber[T any] struct {
	id   int
	next func(T)
}

// Subject multicasts published values to current subscribers. It does not
// replay.
type Subject[T any] struct {
	mu   sync.Mutex
	seq  int
	subs []subscriber[T]
}

// NewSubject creates a subject with no subscribers.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

// Publish delivers v to every subscriber in subscription order.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	subs := make([]subscriber[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.next(v)
	}
}

// Stream subscribes to future publications.
func (s *Subject[T]) Stream() Stream[T] {
	return func(scope *Scope, next func(T)) {
		if scope.Disposed() {
			return
		}
		id := s.add(next)
		scope.Defer(func() { s.remove(id) })
	}
}

func (s *Subject[T]) add(next func(T)) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.subs = append(s.subs, subscriber[T]{id: s.seq, next: next})
	return s.seq
}

func (s *Subject[T]) remove(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Variable holds a current value and replays it to each new subscriber
// before forwarding later changes.
type Variable[T any] struct {
	mu      sync.Mutex
	value   T
	changes *Subject[T]
}

// NewVariable creates a variable holding initial.
func NewVariable[T any](initial T) *Variable[T] {
	return &Variable[T]{value: initial, changes: NewSubject[T]()}
}

// Value returns the current value.
func (v *Variable[T]) Value() T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.value
}

// Set stores x and publishes it.
func (v *Variable[T]) Set(x T) {
	v.mu.Lock()
	v.value = x
	v.mu.Unlock()
	v.changes.Publish(x)
}

// Stream emits the current value, then every Set.
func (v *Variable[T]) Stream() Stream[T] {
	return func(scope *Scope, next func(T)) {
		if scope.Disposed() {
			return
		}
		v.changes.Stream()(scope, next)
		next(v.Value())
	}
}

// Async runs work on its own goroutine and delivers its value on the loop.
// The value is dropped when the subscribing scope is disposed first; work
// sees that through its context.
func Async[T any](loop *Loop, work func(ctx context.Context) T) Stream[T] {
	return func(scope *Scope, next func(T)) {
		if scope.Disposed() {
			return
		}
		ctx := scope.Context()
		go func() {
			v := work(ctx)
			loop.Post(func() {
				if scope.Disposed() {
					return
				}
				next(v)
			})
		}()
	}
}

// First subscribes to src on the loop under a child of parent and waits for
// its first value.
func First[T any](ctx context.Context, loop *Loop, parent *Scope, src Stream[T]) (T, error) {
	var zero T
	values := make(chan T, 1)
	child := parent.Child()
	defer func() { loop.Post(child.Dispose) }()

	if !loop.Post(func() {
		src(child, func(v T) {
			select {
			case values <- v:
			default:
			}
			child.Dispose()
		})
	}) {
		return zero, ErrLoopClosed
	}

	select {
	case v := <-values:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-child.Context().Done():
		// Parent went away. A value may still have landed.
		select {
		case v := <-values:
			return v, nil
		default:
			return zero, context.Canceled
		}
	}
}
