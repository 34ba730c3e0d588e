// Package reactive provides the single-threaded event loop and the small
// set of stream combinators the presentation pipelines are built from.
//
// Every subscription, emission and piece of controller state is owned by
// one Loop goroutine. Work that blocks (remote calls) runs elsewhere and
// is delivered back with Post.
package reactive

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopClosed is returned when work is posted to a closed loop.
var ErrLoopClosed = errors.New("loop closed")

// Loop is a FIFO task queue drained by a single goroutine.
//
// The queue is unbounded so that emissions cascading from other emissions
// never block the poster.
type Loop struct {
	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1
}

// NewLoop creates an empty loop. Call Run to start draining it.
func NewLoop() *Loop {
	return &Loop{
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Post enqueues fn. Safe from any goroutine. Returns false once the loop is
// closed.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false
	}
	l.tasks = append(l.tasks, fn)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return true
}

// Do posts fn and waits for it to run.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrLoopClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work. Run drains what is queued and returns.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	close(l.signal)
}

// Run drains the queue until ctx is done or the loop is closed and empty.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-l.signal:
			if !ok {
				// Closed: drain whatever raced in before the close.
				for {
					fn, more := l.next()
					if !more {
						return nil
					}
					fn()
				}
			}
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	fn := l.tasks[0]
	l.tasks[0] = nil
	l.tasks = l.tasks[1:]
	return fn, true
}
