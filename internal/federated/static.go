package federated

import (
	"context"

	"github.com/rpggio/trips/internal/domain/session"
)

// Static is a FederatedSignIn that hands back a fixed credential or error.
type Static struct {
	Credential session.Credential
	Err        error
}

// PresentSignIn returns the configured credential or error.
func (s Static) PresentSignIn(ctx context.Context) (session.Credential, error) {
	if err := ctx.Err(); err != nil {
		return session.Credential{}, err
	}
	if s.Err != nil {
		return session.Credential{}, s.Err
	}
	return s.Credential, nil
}

// StaticVerifier resolves every credential to one identity.
type StaticVerifier struct {
	Identity session.FederatedIdentity
}

// Verify returns the configured identity.
func (v StaticVerifier) Verify(ctx context.Context, cred session.Credential) (session.FederatedIdentity, error) {
	id := v.Identity
	if id.Provider == "" {
		id.Provider = cred.Provider
	}
	return id, nil
}
