// Package session exposes the signed-in state and the sign-in operations
// as streams of results.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// Service turns the identity provider into result streams delivered on
// the loop.
type Service struct {
	loop      *reactive.Loop
	identity  IdentityProvider
	federated FederatedSignIn
	logger    *slog.Logger
}

// NewService creates a new session service. federated may be nil.
func NewService(loop *reactive.Loop, identity IdentityProvider, federated FederatedSignIn, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		loop:      loop,
		identity:  identity,
		federated: federated,
		logger:    logger,
	}
}

// ObserveSessionChanges emits the current session and every later change.
// It never completes; dispose the scope to stop it.
func (s *Service) ObserveSessionChanges() reactive.Stream[result.Result[*Session]] {
	return func(scope *reactive.Scope, next func(result.Result[*Session])) {
		if scope.Disposed() {
			return
		}
		remove, err := s.identity.ObserveAuthState(func(sess *Session) {
			s.loop.Post(func() {
				if scope.Disposed() {
					return
				}
				next(result.Success(sess))
			})
		})
		if err != nil {
			s.logger.Warn("observing auth state failed", "error", err)
			next(result.FailureErr[*Session](asAuth(err)))
			return
		}
		scope.Defer(remove)
	}
}

// SignIn authenticates with email and password.
func (s *Service) SignIn(email, password string) reactive.Stream[result.Result[*Session]] {
	return call(s, "sign_in", func(ctx context.Context) (*Session, error) {
		return s.requireSession(s.identity.SignIn(ctx, email, password))
	})
}

// SignUp registers a new account and signs it in.
func (s *Service) SignUp(email, password string) reactive.Stream[result.Result[*Session]] {
	return call(s, "sign_up", func(ctx context.Context) (*Session, error) {
		return s.requireSession(s.identity.CreateUser(ctx, email, password))
	})
}

// ExchangeFederatedCredential trades a federated credential for a session.
func (s *Service) ExchangeFederatedCredential(cred Credential) reactive.Stream[result.Result[*Session]] {
	return call(s, "exchange_credential", func(ctx context.Context) (*Session, error) {
		return s.requireSession(s.identity.SignInWithCredential(ctx, cred))
	})
}

// ObtainFederatedCredential presents the federated provider's sign-in.
// User cancellation arrives as a failure.
func (s *Service) ObtainFederatedCredential() reactive.Stream[result.Result[Credential]] {
	return call(s, "obtain_credential", func(ctx context.Context) (Credential, error) {
		if s.federated == nil {
			return Credential{}, result.Federated("Google sign-in is unavailable", ErrNoFederatedProvider)
		}
		cred, err := s.federated.PresentSignIn(ctx)
		if err != nil {
			var classified *result.Error
			if errors.As(err, &classified) {
				return Credential{}, err
			}
			return Credential{}, result.Federated(err.Error(), err)
		}
		return cred, nil
	})
}

// SignOut ends the current session.
func (s *Service) SignOut() reactive.Stream[result.Result[result.Unit]] {
	return call(s, "sign_out", func(ctx context.Context) (result.Unit, error) {
		if err := s.identity.SignOut(ctx); err != nil {
			return result.Unit{}, asAuth(err)
		}
		s.logger.Info("signed out")
		return result.Unit{}, nil
	})
}

// Current returns the active session, or nil.
func (s *Service) Current() *Session {
	return s.identity.CurrentSession()
}

// Authenticated reports whether a session is active.
func (s *Service) Authenticated() bool {
	return s.Current() != nil
}

func (s *Service) requireSession(sess *Session, err error) (*Session, error) {
	if err != nil {
		return nil, asAuth(err)
	}
	if sess == nil {
		return nil, result.Service("Error", ErrNoSession)
	}
	s.logger.Info("signed in", "user_id", sess.UserID, "provider", sess.Provider)
	return sess, nil
}

func call[T any](s *Service, op string, fn func(ctx context.Context) (T, error)) reactive.Stream[result.Result[T]] {
	return reactive.Async(s.loop, func(ctx context.Context) result.Result[T] {
		v, err := fn(ctx)
		if err != nil {
			s.logger.Warn("session operation failed", "op", op, "error", err)
		}
		return result.From(v, err)
	})
}

// asAuth classifies a bare provider error as an auth failure.
func asAuth(err error) error {
	var classified *result.Error
	if errors.As(err, &classified) {
		return err
	}
	return result.Auth(err.Error(), err)
}

// LoggedIn collapses session changes into a logged-in flag. Failures go to
// onError and leave the flag unchanged.
func LoggedIn(changes reactive.Stream[result.Result[*Session]], onError func(string)) reactive.Stream[bool] {
	return func(scope *reactive.Scope, next func(bool)) {
		changes(scope, func(r result.Result[*Session]) {
			if !r.Ok() {
				if onError != nil {
					onError(r.Message())
				}
				return
			}
			next(r.Value() != nil)
		})
	}
}
