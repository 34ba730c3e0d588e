package reactive

import (
	"context"
	"sort"
	"sync"
)

// Scope owns subscriptions. Disposing it runs every registered cleanup in
// reverse order and cancels its context, so in-flight work started under
// it stops delivering.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	seq      int
	cleanups map[int]func()
	disposed bool
}

// NewScope creates a root scope whose context derives from parent.
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ctx:      ctx,
		cancel:   cancel,
		cleanups: make(map[int]func()),
	}
}

// Context is canceled when the scope is disposed.
func (s *Scope) Context() context.Context { return s.ctx }

// Disposed reports whether the scope (or its parent context) has ended.
func (s *Scope) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed || s.ctx.Err() != nil
}

// Defer registers fn to run on disposal and returns a func that
// unregisters it. On an already disposed scope fn runs immediately.
func (s *Scope) Defer(fn func()) func() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		fn()
		return func() {}
	}
	s.seq++
	id := s.seq
	s.cleanups[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.cleanups, id)
	}
}

// Child creates a scope disposed together with s. Disposing the child
// first detaches it from s.
func (s *Scope) Child() *Scope {
	child := NewScope(s.ctx)
	detach := s.Defer(child.Dispose)
	child.Defer(detach)
	return child
}

// Dispose runs cleanups newest first. Safe to call more than once.
func (s *Scope) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	ids := make([]int, 0, len(s.cleanups))
	for id := range s.cleanups {
		ids = append(ids, id)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(ids)))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.cleanups[id])
	}
	s.cleanups = make(map[int]func())
	s.mu.Unlock()

	s.cancel()
	for _, fn := range fns {
		fn()
	}
}
