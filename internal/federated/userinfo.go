package federated

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rpggio/trips/internal/domain/session"
	"golang.org/x/oauth2"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// googleUserInfo is the userinfo endpoint response.
type googleUserInfo struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UserInfoVerifier implements session.CredentialVerifier against the
// OpenID userinfo endpoint.
type UserInfoVerifier struct {
	url    string
	client *http.Client
}

// NewUserInfoVerifier creates a verifier. An empty url selects Google's
// endpoint; a nil client selects http.DefaultClient.
func NewUserInfoVerifier(url string, client *http.Client) *UserInfoVerifier {
	if url == "" {
		url = defaultGoogleUserInfoURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &UserInfoVerifier{url: url, client: client}
}

// Verify fetches the identity behind cred's access token.
func (v *UserInfoVerifier) Verify(ctx context.Context, cred session.Credential) (session.FederatedIdentity, error) {
	if cred.AccessToken == "" {
		return session.FederatedIdentity{}, fmt.Errorf("credential has no access token")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, v.client)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.AccessToken}))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return session.FederatedIdentity{}, fmt.Errorf("failed to create user info request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return session.FederatedIdentity{}, fmt.Errorf("user info request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return session.FederatedIdentity{}, fmt.Errorf("failed to read user info response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return session.FederatedIdentity{}, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return session.FederatedIdentity{}, fmt.Errorf("failed to parse user info response: %w", err)
	}
	if info.Sub == "" {
		return session.FederatedIdentity{}, fmt.Errorf("user info response has no subject")
	}

	provider := cred.Provider
	if provider == "" {
		provider = session.ProviderGoogle
	}
	return session.FederatedIdentity{
		Provider:       provider,
		ProviderUserID: info.Sub,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}
