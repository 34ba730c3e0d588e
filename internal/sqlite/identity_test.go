package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/repository"
	"github.com/rpggio/trips/internal/repository/mocks"
	"github.com/rpggio/trips/internal/result"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sessionLog struct {
	mu   sync.Mutex
	seen []*session.Session
}

func (l *sessionLog) record(s *session.Session) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen = append(l.seen, s)
}

func (l *sessionLog) all() []*session.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*session.Session(nil), l.seen...)
}

func newTestIdentity(t *testing.T, db *DB, verifier session.CredentialVerifier) *IdentityProvider {
	t.Helper()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	return NewIdentityProvider(db, verifier, WithPasswordCost(bcrypt.MinCost), WithClock(func() time.Time { return now }))
}

func TestIdentity_CreateUserAndSignIn(t *testing.T) {
	db := NewTestDB(t)
	idp := newTestIdentity(t, db, nil)
	ctx := context.Background()

	log := &sessionLog{}
	remove, err := idp.ObserveAuthState(log.record)
	require.NoError(t, err)
	defer remove()

	created, err := idp.CreateUser(ctx, " Ada@Example.com ", "secret1")
	require.NoError(t, err)
	require.Equal(t, "ada@example.com", created.Email)
	require.Equal(t, session.ProviderPassword, created.Provider)
	require.Equal(t, created, idp.CurrentSession())

	require.NoError(t, idp.SignOut(ctx))
	require.Nil(t, idp.CurrentSession())

	signedIn, err := idp.SignIn(ctx, "ada@example.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, created.UserID, signedIn.UserID)
	require.NotEqual(t, created.ID, signedIn.ID)

	seen := log.all()
	require.Len(t, seen, 4)
	require.Nil(t, seen[0])
	require.Equal(t, created, seen[1])
	require.Nil(t, seen[2])
	require.Equal(t, signedIn, seen[3])
}

func TestIdentity_Errors(t *testing.T) {
	db := NewTestDB(t)
	idp := newTestIdentity(t, db, nil)
	ctx := context.Background()

	_, err := idp.CreateUser(ctx, "not-an-email", "secret1")
	require.ErrorIs(t, err, ErrInvalidEmail)

	_, err = idp.CreateUser(ctx, "a@b.co", "123")
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = idp.CreateUser(ctx, "a@b.co", "secret1")
	require.NoError(t, err)
	_, err = idp.CreateUser(ctx, "a@b.co", "secret2")
	require.ErrorIs(t, err, ErrEmailInUse)
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = idp.SignIn(ctx, "a@b.co", "wrong-password")
	require.ErrorIs(t, err, ErrWrongPassword)

	_, err = idp.SignIn(ctx, "nobody@b.co", "secret1")
	require.ErrorIs(t, err, ErrUserNotFound)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = idp.SignInWithCredential(ctx, session.Credential{Provider: session.ProviderGoogle})
	require.ErrorIs(t, err, ErrNoVerifier)
}

func TestIdentity_SignInWithCredential(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	cred := session.Credential{Provider: session.ProviderGoogle, AccessToken: "at"}
	verifier := &mocks.CredentialVerifier{}
	verifier.On("Verify", mock.Anything, cred).Return(session.FederatedIdentity{
		ProviderUserID: "g-123",
		Email:          "ada@gmail.com",
		Name:           "Ada",
	}, nil)
	idp := newTestIdentity(t, db, verifier)

	first, err := idp.SignInWithCredential(ctx, cred)
	require.NoError(t, err)
	require.Equal(t, session.ProviderGoogle, first.Provider)
	require.Equal(t, "Ada", first.DisplayName)

	second, err := idp.SignInWithCredential(ctx, cred)
	require.NoError(t, err)
	require.Equal(t, first.UserID, second.UserID)

	var users int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&users))
	require.Equal(t, 1, users)
}

func TestIdentity_VerifierFailure(t *testing.T) {
	db := NewTestDB(t)
	cred := session.Credential{Provider: session.ProviderGoogle, AccessToken: "expired"}
	verifier := &mocks.CredentialVerifier{}
	verifier.On("Verify", mock.Anything, cred).Return(nil, errors.New("401 Unauthorized"))
	idp := newTestIdentity(t, db, verifier)

	_, err := idp.SignInWithCredential(context.Background(), cred)
	require.Equal(t, result.KindFederated, result.KindOf(err))
	require.Equal(t, "The supplied auth credential is malformed or has expired.", result.Describe(err))
	require.Nil(t, idp.CurrentSession())
}

func TestIdentity_Restore(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	idp := newTestIdentity(t, db, nil)
	created, err := idp.CreateUser(ctx, "a@b.co", "secret1")
	require.NoError(t, err)

	restarted := newTestIdentity(t, db, nil)
	require.Nil(t, restarted.CurrentSession())
	require.NoError(t, restarted.Restore(ctx))

	restored := restarted.CurrentSession()
	require.NotNil(t, restored)
	require.Equal(t, created.ID, restored.ID)
	require.Equal(t, created.UserID, restored.UserID)
	require.True(t, created.SignedInAt.Equal(restored.SignedInAt))

	require.NoError(t, restarted.SignOut(ctx))
	again := newTestIdentity(t, db, nil)
	require.NoError(t, again.Restore(ctx))
	require.Nil(t, again.CurrentSession())
}

func TestIdentity_RemoveListener(t *testing.T) {
	db := NewTestDB(t)
	idp := newTestIdentity(t, db, nil)

	log := &sessionLog{}
	remove, err := idp.ObserveAuthState(log.record)
	require.NoError(t, err)
	remove()

	_, err = idp.CreateUser(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	require.Len(t, log.all(), 1)
}

func TestIdentity_ListenersSeeSessionsInOrder(t *testing.T) {
	db := NewTestDB(t)
	idp := newTestIdentity(t, db, nil)
	ctx := context.Background()

	_, err := idp.CreateUser(ctx, "a@b.co", "secret1")
	require.NoError(t, err)

	log := &sessionLog{}
	remove, err := idp.ObserveAuthState(log.record)
	require.NoError(t, err)
	defer remove()

	const workers = 8
	errs := make(chan error, workers*10)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				if i%2 == 0 {
					_, err := idp.SignIn(ctx, "a@b.co", "secret1")
					errs <- err
				} else {
					errs <- idp.SignOut(ctx)
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	seen := log.all()
	require.Len(t, seen, 1+workers*10)
	require.Same(t, idp.CurrentSession(), seen[len(seen)-1])
}
