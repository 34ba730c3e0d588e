package sqlite

import (
	"strings"

	"github.com/rpggio/trips/internal/repository"
	"github.com/rpggio/trips/internal/result"
)

// Identity failures, worded for the user.
var (
	ErrInvalidEmail  = result.Auth("The email address is badly formatted.", nil)
	ErrWeakPassword  = result.Auth("The password must be 6 characters long or more.", nil)
	ErrEmailInUse    = result.Auth("The email address is already in use by another account.", repository.ErrConflict)
	ErrUserNotFound  = result.Auth("There is no user record corresponding to this identifier. The user may have been deleted.", repository.ErrNotFound)
	ErrWrongPassword = result.Auth("The password is invalid or the user does not have a password.", nil)
	ErrNoVerifier    = result.Federated("Federated sign-in is not configured.", nil)
)

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
