package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/result"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// IdentityOption configures an IdentityProvider.
type IdentityOption func(*IdentityProvider)

// WithPasswordCost sets the bcrypt cost for new passwords.
func WithPasswordCost(cost int) IdentityOption {
	return func(p *IdentityProvider) { p.cost = cost }
}

// WithClock overrides the time source for session timestamps.
func WithClock(now func() time.Time) IdentityOption {
	return func(p *IdentityProvider) { p.now = now }
}

// IdentityProvider implements session.IdentityProvider over the users and
// auth_state tables. The signed-in session is kept in memory and mirrored
// to auth_state so Restore can bring it back after a restart.
type IdentityProvider struct {
	db       *DB
	verifier session.CredentialVerifier
	cost     int
	now      func() time.Time

	// deliver orders listener calls: a listener sees sessions in the
	// order they became current.
	deliver sync.Mutex

	mu        sync.Mutex
	current   *session.Session
	seq       int
	listeners map[int]func(*session.Session)
}

// NewIdentityProvider creates a new IdentityProvider. verifier may be nil,
// in which case credential sign-in fails.
func NewIdentityProvider(db *DB, verifier session.CredentialVerifier, opts ...IdentityOption) *IdentityProvider {
	p := &IdentityProvider{
		db:        db,
		verifier:  verifier,
		cost:      bcrypt.DefaultCost,
		now:       time.Now,
		listeners: make(map[int]func(*session.Session)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type userRow struct {
	id           string
	email        string
	displayName  string
	passwordHash sql.NullString
	provider     string
}

// Restore loads the persisted session, if any.
func (p *IdentityProvider) Restore(ctx context.Context) error {
	query := `
		SELECT a.session_id, a.signed_in_at, u.id, u.email, u.display_name, u.provider
		FROM auth_state a
		JOIN users u ON u.id = a.user_id
		WHERE a.id = 1
	`
	var sess session.Session
	err := p.db.QueryRowContext(ctx, query).Scan(
		&sess.ID,
		&sess.SignedInAt,
		&sess.UserID,
		&sess.Email,
		&sess.DisplayName,
		&sess.Provider,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	p.publish(&sess)
	return nil
}

// CreateUser registers a password account and signs it in.
func (p *IdentityProvider) CreateUser(ctx context.Context, email, password string) (*session.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := userRow{
		id:           uuid.NewString(),
		email:        email,
		passwordHash: sql.NullString{String: string(hash), Valid: true},
		provider:     session.ProviderPassword,
	}
	query := `
		INSERT INTO users (id, email, display_name, password_hash, provider, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = p.db.ExecContext(ctx, query,
		user.id, user.email, user.displayName, user.passwordHash, user.provider, p.now())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailInUse
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return p.startSession(ctx, user)
}

// SignIn checks a password account's credentials and signs it in.
func (p *IdentityProvider) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, email, display_name, password_hash, provider
		FROM users
		WHERE email = ? AND provider = ?
	`
	var user userRow
	err = p.db.QueryRowContext(ctx, query, email, session.ProviderPassword).Scan(
		&user.id, &user.email, &user.displayName, &user.passwordHash, &user.provider)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !user.passwordHash.Valid {
		return nil, ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.passwordHash.String), []byte(password)); err != nil {
		return nil, ErrWrongPassword
	}

	return p.startSession(ctx, user)
}

// SignInWithCredential verifies a federated credential, creating the
// account on first use, and signs it in.
func (p *IdentityProvider) SignInWithCredential(ctx context.Context, cred session.Credential) (*session.Session, error) {
	if p.verifier == nil {
		return nil, ErrNoVerifier
	}
	identity, err := p.verifier.Verify(ctx, cred)
	if err != nil {
		var classified *result.Error
		if errors.As(err, &classified) {
			return nil, err
		}
		return nil, result.Federated("The supplied auth credential is malformed or has expired.", err)
	}
	if identity.Provider == "" {
		identity.Provider = cred.Provider
	}

	user, err := p.findOrCreateFederated(ctx, identity)
	if err != nil {
		return nil, err
	}
	return p.startSession(ctx, user)
}

func (p *IdentityProvider) findOrCreateFederated(ctx context.Context, identity session.FederatedIdentity) (userRow, error) {
	query := `
		SELECT id, email, display_name, password_hash, provider
		FROM users
		WHERE provider = ? AND provider_user_id = ?
	`
	var user userRow
	err := p.db.QueryRowContext(ctx, query, identity.Provider, identity.ProviderUserID).Scan(
		&user.id, &user.email, &user.displayName, &user.passwordHash, &user.provider)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return userRow{}, fmt.Errorf("failed to load user: %w", err)
	}

	user = userRow{
		id:          uuid.NewString(),
		email:       identity.Email,
		displayName: identity.Name,
		provider:    identity.Provider,
	}
	insert := `
		INSERT INTO users (id, email, display_name, provider, provider_user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = p.db.ExecContext(ctx, insert,
		user.id, user.email, user.displayName, user.provider, identity.ProviderUserID, p.now())
	if err != nil {
		return userRow{}, fmt.Errorf("failed to create federated user: %w", err)
	}
	return user, nil
}

// SignOut clears the session.
func (p *IdentityProvider) SignOut(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM auth_state WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	p.publish(nil)
	return nil
}

// CurrentSession returns the signed-in session, or nil.
func (p *IdentityProvider) CurrentSession() *session.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// ObserveAuthState registers listener and calls it with the current
// session right away.
func (p *IdentityProvider) ObserveAuthState(listener func(*session.Session)) (func(), error) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	p.seq++
	id := p.seq
	p.listeners[id] = listener
	current := p.current
	p.mu.Unlock()

	listener(current)

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}, nil
}

func (p *IdentityProvider) startSession(ctx context.Context, user userRow) (*session.Session, error) {
	sess := &session.Session{
		ID:          uuid.NewString(),
		UserID:      user.id,
		Email:       user.email,
		DisplayName: user.displayName,
		Provider:    user.provider,
		SignedInAt:  p.now().UTC(),
	}
	query := `
		INSERT INTO auth_state (id, session_id, user_id, signed_in_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			session_id = excluded.session_id,
			user_id = excluded.user_id,
			signed_in_at = excluded.signed_in_at
	`
	if _, err := p.db.ExecContext(ctx, query, sess.ID, sess.UserID, sess.SignedInAt); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	p.publish(sess)
	return sess, nil
}

func (p *IdentityProvider) publish(sess *session.Session) {
	p.deliver.Lock()
	defer p.deliver.Unlock()

	p.mu.Lock()
	p.current = sess
	listeners := make([]func(*session.Session), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(sess)
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}
