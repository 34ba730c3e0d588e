package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/result"
)

// APIError is the error text a tool call returns.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to tool error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	msg := result.Describe(err)
	switch {
	case errors.Is(err, app.ErrTripNotFound):
		return &APIError{Code: "TRIP_NOT_FOUND", Message: msg, RecoveryHint: "Call list_trips for current keys"}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return &APIError{Code: "CANCELED", Message: msg}
	}
	switch result.KindOf(err) {
	case result.KindValidation:
		return &APIError{Code: "VALIDATION", Message: msg}
	case result.KindUnauthenticated:
		return &APIError{Code: "UNAUTHENTICATED", Message: msg, RecoveryHint: "Call sign_in first"}
	case result.KindAuth:
		return &APIError{Code: "AUTH_FAILED", Message: msg}
	case result.KindFederated:
		return &APIError{Code: "FEDERATED_FAILED", Message: msg}
	case result.KindStorage:
		return &APIError{Code: "STORAGE", Message: msg, RecoveryHint: "Retry with reload_trips"}
	default:
		return &APIError{Code: "ERROR", Message: msg}
	}
}
