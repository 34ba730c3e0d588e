package session

import "time"

// Providers a Session can originate from.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// Session is the handle for an authenticated identity. A nil *Session
// means no one is signed in.
type Session struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	Provider    string    `json:"provider"`
	SignedInAt  time.Time `json:"signed_in_at"`
}

// Credential is the opaque token a federated provider hands back. It is
// exchanged once for a Session and never stored.
type Credential struct {
	Provider    string
	IDToken     string
	AccessToken string
}

// FederatedIdentity is what a verified Credential resolves to.
type FederatedIdentity struct {
	Provider       string
	ProviderUserID string
	Email          string
	Name           string
}
