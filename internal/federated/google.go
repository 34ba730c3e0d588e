// Package federated implements the one-shot Google sign-in flow and the
// verifier that turns its credential into an identity.
package federated

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/result"
	"golang.org/x/oauth2"
)

const (
	defaultGoogleAuthURL  = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL = "https://oauth2.googleapis.com/token"
	defaultListenAddr     = "127.0.0.1:0"
	callbackPath          = "/callback"
)

var (
	// ErrCanceled is returned when the user backs out of the flow or the
	// caller gives up waiting.
	ErrCanceled = result.Federated("Google sign-in was canceled.", nil)
	// ErrStateMismatch is returned when the callback state does not match
	// the one sent with the authorization request.
	ErrStateMismatch = result.Federated("Google sign-in returned an unexpected state.", nil)
)

// GoogleConfig configures the loopback flow.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	// ListenAddr is the loopback address for the redirect listener.
	ListenAddr string

	// Overridable for tests.
	AuthURL  string
	TokenURL string
}

// Opener presents an authorization URL to the user, e.g. by launching a
// browser.
type Opener func(url string) error

// Google implements session.FederatedSignIn with the OAuth loopback
// redirect flow.
type Google struct {
	config GoogleConfig
	open   Opener
	logger *slog.Logger
}

// NewGoogle creates a new Google sign-in flow.
func NewGoogle(config GoogleConfig, open Opener, logger *slog.Logger) *Google {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.ListenAddr == "" {
		config.ListenAddr = defaultListenAddr
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Google{config: config, open: open, logger: logger}
}

type callback struct {
	code string
	err  error
}

// PresentSignIn runs one sign-in and returns the resulting credential.
func (g *Google) PresentSignIn(ctx context.Context) (session.Credential, error) {
	ln, err := net.Listen("tcp", g.config.ListenAddr)
	if err != nil {
		return session.Credential{}, result.Federated("Google sign-in could not start.", err)
	}

	conf := &oauth2.Config{
		ClientID:     g.config.ClientID,
		ClientSecret: g.config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:   g.config.AuthURL,
			TokenURL:  g.config.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://" + ln.Addr().String() + callbackPath,
		Scopes:      []string{"openid", "email", "profile"},
	}
	state := uuid.NewString()

	results := make(chan callback, 1)
	mux := http.NewServeMux()
	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		cb := readCallback(r, state)
		select {
		case results <- cb:
		default:
		}
		if cb.err != nil {
			http.Error(w, result.Describe(cb.err), http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this window.")
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			g.logger.Warn("google callback listener failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
	g.logger.Info("google sign-in started", "redirect", conf.RedirectURL)
	if err := g.open(authURL); err != nil {
		return session.Credential{}, result.Federated("Google sign-in could not be presented.", err)
	}

	var cb callback
	select {
	case <-ctx.Done():
		return session.Credential{}, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
	case cb = <-results:
	}
	if cb.err != nil {
		return session.Credential{}, cb.err
	}

	tok, err := conf.Exchange(ctx, cb.code)
	if err != nil {
		return session.Credential{}, result.Federated("Google sign-in failed to exchange the authorization code.", err)
	}
	idToken, _ := tok.Extra("id_token").(string)

	return session.Credential{
		Provider:    session.ProviderGoogle,
		IDToken:     idToken,
		AccessToken: tok.AccessToken,
	}, nil
}

func readCallback(r *http.Request, state string) callback {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		if reason == "access_denied" {
			return callback{err: ErrCanceled}
		}
		return callback{err: result.Federated("Google sign-in failed: "+reason, nil)}
	}
	if q.Get("state") != state {
		return callback{err: ErrStateMismatch}
	}
	code := q.Get("code")
	if code == "" {
		return callback{err: result.Federated("Google sign-in returned no authorization code.", nil)}
	}
	return callback{code: code}
}
