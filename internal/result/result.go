// Package result holds the envelope every remote-facing operation resolves
// to, and the error taxonomy that feeds its failure messages.
package result

// Unit is the payload of a success that carries no value.
type Unit struct{}

// Result is either a success carrying a value or a failure carrying a
// human-readable message.
type Result[T any] struct {
	value   T
	message string
	err     error
	failed  bool
}

// Success wraps v.
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps a display message. An empty message becomes "Error".
func Failure[T any](message string) Result[T] {
	if message == "" {
		message = genericMessage
	}
	return Result[T]{message: message, failed: true}
}

// FailureErr wraps err, keeping it for Err alongside its display message.
func FailureErr[T any](err error) Result[T] {
	r := Failure[T](Describe(err))
	r.err = err
	return r
}

// From converts a (value, error) pair into a Result.
func From[T any](v T, err error) Result[T] {
	if err != nil {
		return FailureErr[T](err)
	}
	return Success(v)
}

// Ok reports whether r is a success.
func (r Result[T]) Ok() bool { return !r.failed }

// Value returns the success value, or the zero value for a failure.
func (r Result[T]) Value() T { return r.value }

// Message returns the failure message, or "" for a success.
func (r Result[T]) Message() string { return r.message }

// Err returns the failure as an error, or nil for a success. A failure
// built from a bare message is classified by FromMessage.
func (r Result[T]) Err() error {
	if !r.failed {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return FromMessage(r.message)
}
