package session

import "context"

// IdentityProvider is the backend identity service.
type IdentityProvider interface {
	CreateUser(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignInWithCredential(ctx context.Context, cred Credential) (*Session, error)
	SignOut(ctx context.Context) error
	CurrentSession() *Session
	// ObserveAuthState calls listener with the current session right away
	// and again on every change, until remove is called.
	ObserveAuthState(listener func(*Session)) (remove func(), err error)
}

// FederatedSignIn presents the external provider's one-shot sign-in flow.
type FederatedSignIn interface {
	PresentSignIn(ctx context.Context) (Credential, error)
}

// CredentialVerifier resolves a Credential to the identity behind it.
type CredentialVerifier interface {
	Verify(ctx context.Context, cred Credential) (FederatedIdentity, error)
}
