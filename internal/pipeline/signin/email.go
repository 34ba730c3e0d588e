// Package signin holds the controllers behind the sign-in screens.
package signin

import (
	"log/slog"

	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// Purpose selects between signing in and registering.
type Purpose int

const (
	PurposeSignIn Purpose = iota
	PurposeSignUp
)

// Title is the screen title for p.
func (p Purpose) Title() string {
	if p == PurposeSignUp {
		return "Sign Up"
	}
	return "Sign In"
}

// Authenticator performs password sign-in and registration.
type Authenticator interface {
	SignIn(email, password string) reactive.Stream[result.Result[*session.Session]]
	SignUp(email, password string) reactive.Stream[result.Result[*session.Session]]
}

// EmailInput is the email form's event sources.
type EmailInput struct {
	Email    reactive.Stream[string]
	Password reactive.Stream[string]
	Submit   reactive.Stream[struct{}]
}

// Email is the email/password controller.
type Email struct {
	purpose     Purpose
	emailErr    *reactive.Subject[string]
	passwordErr *reactive.Subject[string]
	failures    *reactive.Subject[error]
	completed   *reactive.Subject[*session.Session]
	tracker     *activity.Tracker
	logger      *slog.Logger
}

type credentials struct {
	email, password string
}

// NewEmail wires the controller under scope. Call on the loop.
func NewEmail(scope *reactive.Scope, auth Authenticator, purpose Purpose, in EmailInput, logger *slog.Logger, opts ...activity.Option) *Email {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Email{
		purpose:     purpose,
		emailErr:    reactive.NewSubject[string](),
		passwordErr: reactive.NewSubject[string](),
		failures:    reactive.NewSubject[error](),
		completed:   reactive.NewSubject[*session.Session](),
		tracker:     activity.NewTracker("email_auth", opts...),
		logger:      logger,
	}

	latest := reactive.CombineLatest(
		reactive.StartWith(in.Email, ""),
		reactive.StartWith(in.Password, ""),
		func(email, password string) credentials { return credentials{email, password} },
	)
	valid := reactive.Filter(reactive.WithLatestFrom(in.Submit, latest), c.validate)

	outcomes := reactive.SwitchMap(valid, func(cr credentials) reactive.Stream[result.Result[*session.Session]] {
		op := auth.SignIn
		if purpose == PurposeSignUp {
			op = auth.SignUp
		}
		return activity.Track(c.tracker, op(cr.email, cr.password))
	})
	outcomes(scope, func(r result.Result[*session.Session]) {
		if !r.Ok() {
			c.logger.Info("email auth failed", "purpose", purpose.Title(), "error", r.Message())
			c.failures.Publish(r.Err())
			return
		}
		c.completed.Publish(r.Value())
	})
	return c
}

func (c *Email) validate(cr credentials) bool {
	ok := true
	for _, f := range []struct {
		value string
		out   *reactive.Subject[string]
	}{{cr.email, c.emailErr}, {cr.password, c.passwordErr}} {
		if f.value == "" {
			ok = false
			f.out.Publish(result.Describe(result.ErrEmpty))
			continue
		}
		f.out.Publish("")
	}
	return ok
}

// Title is the screen title.
func (c *Email) Title() string { return c.purpose.Title() }

// EmailError emits the email field's message on each submit.
func (c *Email) EmailError() reactive.Stream[string] { return c.emailErr.Stream() }

// PasswordError emits the password field's message on each submit.
func (c *Email) PasswordError() reactive.Stream[string] { return c.passwordErr.Stream() }

// Errors emits failure messages from the identity provider.
func (c *Email) Errors() reactive.Stream[string] {
	return reactive.Map(c.failures.Stream(), result.Describe)
}

// Failures emits the same failures as Errors, classified.
func (c *Email) Failures() reactive.Stream[error] { return c.failures.Stream() }

// Completed emits the session once signed in.
func (c *Email) Completed() reactive.Stream[*session.Session] { return c.completed.Stream() }

// Busy is true while the request is in flight.
func (c *Email) Busy() reactive.Stream[bool] { return c.tracker.IsBusy() }
