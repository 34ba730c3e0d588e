package mocks

import (
	"context"

	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/stretchr/testify/mock"
)

// TripStore is a mock for trip.Store.
type TripStore struct {
	mock.Mock
}

func (m *TripStore) SetValue(ctx context.Context, path string, fields map[string]string) error {
	args := m.Called(ctx, path, fields)
	return args.Error(0)
}

func (m *TripStore) RemoveValue(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *TripStore) ReadOrderedByKey(ctx context.Context, path string) (trip.Snapshot, error) {
	args := m.Called(ctx, path)
	if snap, ok := args.Get(0).(trip.Snapshot); ok {
		return snap, args.Error(1)
	}
	return trip.Snapshot{}, args.Error(1)
}

// IdentityProvider is a mock for session.IdentityProvider.
type IdentityProvider struct {
	mock.Mock
}

func (m *IdentityProvider) CreateUser(ctx context.Context, email, password string) (*session.Session, error) {
	args := m.Called(ctx, email, password)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IdentityProvider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	args := m.Called(ctx, email, password)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IdentityProvider) SignInWithCredential(ctx context.Context, cred session.Credential) (*session.Session, error) {
	args := m.Called(ctx, cred)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *IdentityProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *IdentityProvider) CurrentSession() *session.Session {
	args := m.Called()
	sess, _ := args.Get(0).(*session.Session)
	return sess
}

func (m *IdentityProvider) ObserveAuthState(listener func(*session.Session)) (func(), error) {
	args := m.Called(listener)
	remove, _ := args.Get(0).(func())
	if remove == nil {
		remove = func() {}
	}
	return remove, args.Error(1)
}

// FederatedSignIn is a mock for session.FederatedSignIn.
type FederatedSignIn struct {
	mock.Mock
}

func (m *FederatedSignIn) PresentSignIn(ctx context.Context) (session.Credential, error) {
	args := m.Called(ctx)
	cred, _ := args.Get(0).(session.Credential)
	return cred, args.Error(1)
}

// CredentialVerifier is a mock for session.CredentialVerifier.
type CredentialVerifier struct {
	mock.Mock
}

func (m *CredentialVerifier) Verify(ctx context.Context, cred session.Credential) (session.FederatedIdentity, error) {
	args := m.Called(ctx, cred)
	id, _ := args.Get(0).(session.FederatedIdentity)
	return id, args.Error(1)
}

// AuthChecker is a mock for trip.AuthChecker.
type AuthChecker struct {
	mock.Mock
}

func (m *AuthChecker) Authenticated() bool {
	args := m.Called()
	return args.Bool(0)
}
