package session

import "errors"

var (
	// ErrNoSession is returned when the identity provider reports success
	// without a session.
	ErrNoSession = errors.New("identity provider returned no session")

	// ErrNoFederatedProvider is returned when federated sign-in is not configured.
	ErrNoFederatedProvider = errors.New("federated sign-in is not configured")
)
