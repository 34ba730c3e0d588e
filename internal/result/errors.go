package result

import (
	"context"
	"errors"
)

const genericMessage = "Error"

// Kind classifies failures surfaced to the user.
type Kind int

const (
	KindService Kind = iota
	KindValidation
	KindUnauthenticated
	KindAuth
	KindFederated
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindAuth:
		return "auth"
	case KindFederated:
		return "federated"
	case KindStorage:
		return "storage"
	default:
		return "service"
	}
}

// Error is a classified failure. Msg is what the user sees; Err is the
// underlying cause, kept for logs.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Msg {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// ErrUnauthenticated is returned by operations that need an active session.
var ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Msg: "Invalid user"}

// ErrEmpty is the validation failure for a required field left empty.
var ErrEmpty = &Error{Kind: KindValidation, Msg: "Please enter something"}

// Validation builds a validation failure.
func Validation(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

// Auth wraps an identity provider failure.
func Auth(msg string, err error) error {
	return &Error{Kind: KindAuth, Msg: msg, Err: err}
}

// Federated wraps a federated sign-in failure.
func Federated(msg string, err error) error {
	return &Error{Kind: KindFederated, Msg: msg, Err: err}
}

// Storage wraps a record store failure.
func Storage(msg string, err error) error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

// Service wraps any other backend failure.
func Service(msg string, err error) error {
	return &Error{Kind: KindService, Msg: msg, Err: err}
}

// KindOf returns the classification of err, KindService when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindService
}

// Describe collapses err into a non-empty display message.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	if errors.Is(err, context.Canceled) {
		return "Operation canceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Operation timed out"
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericMessage
}

// FromMessage turns a display message back into an error. Only the
// unauthenticated message keeps its kind; anything else is a service error.
func FromMessage(msg string) error {
	if msg == ErrUnauthenticated.Msg {
		return ErrUnauthenticated
	}
	return Service(msg, nil)
}
