package signin

import (
	"log/slog"

	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// FederatedAuthenticator obtains and exchanges federated credentials.
type FederatedAuthenticator interface {
	ObtainFederatedCredential() reactive.Stream[result.Result[session.Credential]]
	ExchangeFederatedCredential(cred session.Credential) reactive.Stream[result.Result[*session.Session]]
}

// Federated runs the one-tap federated flow: obtain a credential, then
// exchange it, both under one tracker.
type Federated struct {
	failures *reactive.Subject[error]
	signedIn *reactive.Subject[*session.Session]
	tracker  *activity.Tracker
}

// NewFederated wires the controller under scope. Call on the loop.
func NewFederated(scope *reactive.Scope, auth FederatedAuthenticator, tap reactive.Stream[struct{}], logger *slog.Logger, opts ...activity.Option) *Federated {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Federated{
		failures: reactive.NewSubject[error](),
		signedIn: reactive.NewSubject[*session.Session](),
		tracker:  activity.NewTracker("federated_auth", opts...),
	}

	flow := func(struct{}) reactive.Stream[result.Result[*session.Session]] {
		exchanged := reactive.SwitchMap(auth.ObtainFederatedCredential(), func(r result.Result[session.Credential]) reactive.Stream[result.Result[*session.Session]] {
			if !r.Ok() {
				return reactive.Just(result.FailureErr[*session.Session](r.Err()))
			}
			return auth.ExchangeFederatedCredential(r.Value())
		})
		return activity.Track(c.tracker, exchanged)
	}
	reactive.SwitchMap(tap, flow)(scope, func(r result.Result[*session.Session]) {
		if !r.Ok() {
			logger.Info("federated sign-in failed", "error", r.Message())
			c.failures.Publish(r.Err())
			return
		}
		c.signedIn.Publish(r.Value())
	})
	return c
}

// Errors emits failure messages, including cancellation.
func (c *Federated) Errors() reactive.Stream[string] {
	return reactive.Map(c.failures.Stream(), result.Describe)
}

// Failures emits the same failures as Errors, classified.
func (c *Federated) Failures() reactive.Stream[error] { return c.failures.Stream() }

// SignedIn emits the session after a successful exchange.
func (c *Federated) SignedIn() reactive.Stream[*session.Session] { return c.signedIn.Stream() }

// Busy is true from the tap until the flow resolves.
func (c *Federated) Busy() reactive.Stream[bool] { return c.tracker.IsBusy() }
