package reactive

// Map transforms each value.
func Map[T, U any](src Stream[T], f func(T) U) Stream[U] {
	return func(scope *Scope, next func(U)) {
		src(scope, func(v T) { next(f(v)) })
	}
}

// Filter forwards values for which keep returns true.
func Filter[T any](src Stream[T], keep func(T) bool) Stream[T] {
	return func(scope *Scope, next func(T)) {
		src(scope, func(v T) {
			if keep(v) {
				next(v)
			}
		})
	}
}

// Tap runs f for each value before forwarding it.
func Tap[T any](src Stream[T], f func(T)) Stream[T] {
	return func(scope *Scope, next func(T)) {
		src(scope, func(v T) {
			f(v)
			next(v)
		})
	}
}

// StartWith emits first, then everything src emits.
func StartWith[T any](src Stream[T], first T) Stream[T] {
	return func(scope *Scope, next func(T)) {
		if scope.Disposed() {
			return
		}
		next(first)
		src(scope, next)
	}
}

// Distinct drops values equal to the previous emission.
func Distinct[T comparable](src Stream[T]) Stream[T] {
	return DistinctFunc(src, func(a, b T) bool { return a == b })
}

// DistinctFunc drops values that eq reports equal to the previous emission.
func DistinctFunc[T any](src Stream[T], eq func(a, b T) bool) Stream[T] {
	return func(scope *Scope, next func(T)) {
		var last T
		seen := false
		src(scope, func(v T) {
			if seen && eq(last, v) {
				return
			}
			last, seen = v, true
			next(v)
		})
	}
}

// Merge interleaves the emissions of every source.
func Merge[T any](sources ...Stream[T]) Stream[T] {
	return func(scope *Scope, next func(T)) {
		for _, src := range sources {
			src(scope, next)
		}
	}
}

// CombineLatest emits f(a, b) whenever either side emits, once both have.
func CombineLatest[A, B, R any](a Stream[A], b Stream[B], f func(A, B) R) Stream[R] {
	return func(scope *Scope, next func(R)) {
		var lastA A
		var lastB B
		var haveA, haveB bool
		a(scope, func(v A) {
			lastA, haveA = v, true
			if haveB {
				next(f(lastA, lastB))
			}
		})
		b(scope, func(v B) {
			lastB, haveB = v, true
			if haveA {
				next(f(lastA, lastB))
			}
		})
	}
}

// CombineLatest3 is CombineLatest over three sources.
func CombineLatest3[A, B, C, R any](a Stream[A], b Stream[B], c Stream[C], f func(A, B, C) R) Stream[R] {
	type pair struct {
		a A
		b B
	}
	ab := CombineLatest(a, b, func(x A, y B) pair { return pair{x, y} })
	return CombineLatest(ab, c, func(p pair, z C) R { return f(p.a, p.b, z) })
}

// WithLatestFrom emits the latest value of latest each time trigger fires.
// Triggers before latest has emitted are dropped.
func WithLatestFrom[T, L any](trigger Stream[T], latest Stream[L]) Stream[L] {
	return func(scope *Scope, next func(L)) {
		var last L
		have := false
		latest(scope, func(v L) { last, have = v, true })
		trigger(scope, func(T) {
			if have {
				next(last)
			}
		})
	}
}

// SwitchMap subscribes to f(v) for each value, disposing the previous
// inner subscription first. Only the latest inner stream delivers.
func SwitchMap[T, U any](src Stream[T], f func(T) Stream[U]) Stream[U] {
	return func(scope *Scope, next func(U)) {
		var current *Scope
		src(scope, func(v T) {
			if current != nil {
				current.Dispose()
			}
			inner := scope.Child()
			current = inner
			f(v)(inner, next)
		})
	}
}

// MergeMap subscribes to f(v) for each value and keeps every inner
// subscription alive until scope is disposed.
func MergeMap[T, U any](src Stream[T], f func(T) Stream[U]) Stream[U] {
	return func(scope *Scope, next func(U)) {
		src(scope, func(v T) {
			f(v)(scope.Child(), next)
		})
	}
}

// MergeMapFirst is MergeMap for inner streams that resolve once: each
// inner subscription is disposed, and detached from scope, after its
// first value.
func MergeMapFirst[T, U any](src Stream[T], f func(T) Stream[U]) Stream[U] {
	return func(scope *Scope, next func(U)) {
		src(scope, func(v T) {
			inner := scope.Child()
			f(v)(inner, func(u U) {
				if inner.Disposed() {
					return
				}
				inner.Dispose()
				next(u)
			})
		})
	}
}

// Take forwards the first n values.
func Take[T any](src Stream[T], n int) Stream[T] {
	return func(scope *Scope, next func(T)) {
		if n <= 0 {
			return
		}
		child := scope.Child()
		count := 0
		src(child, func(v T) {
			if count >= n {
				return
			}
			count++
			next(v)
			if count == n {
				child.Dispose()
			}
		})
	}
}
