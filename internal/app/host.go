// Package app hosts the trip screens without a UI. It owns the event loop
// and drives the same controllers a UI would, exposing each screen action
// as a blocking call.
package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/pipeline/signin"
	"github.com/rpggio/trips/internal/pipeline/tripform"
	"github.com/rpggio/trips/internal/pipeline/triplist"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// ErrTripNotFound is returned when deleting a key the list does not show.
var ErrTripNotFound = result.Validation("No such trip in the list")

// Config wires a Host.
type Config struct {
	Identity  session.IdentityProvider
	Federated session.FederatedSignIn // nil disables Google sign-in
	Store     trip.Store

	Recorder trip.Recorder
	Observer activity.Observer

	ReloadAfterDelete bool
	NoticeLimit       int
	Now               func() time.Time
	Logger            *slog.Logger
}

// Host owns the loop, the root scope and the long-lived list pipeline.
type Host struct {
	loop     *reactive.Loop
	root     *reactive.Scope
	sessions *session.Service
	trips    *trip.Service
	list     *triplist.Pipeline
	notices  *noticeBuffer
	now      func() time.Time
	logger   *slog.Logger
	observer activity.Observer

	// Owned by the loop.
	loggedIn bool
	loading  bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New starts the loop and builds the list screen.
func New(cfg Config) (*Host, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	loop := reactive.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("event loop stopped", "error", err)
		}
	}()

	sessions := session.NewService(loop, cfg.Identity, cfg.Federated, logger)
	h := &Host{
		loop:     loop,
		root:     reactive.NewScope(context.Background()),
		sessions: sessions,
		trips:    trip.NewService(loop, cfg.Store, sessions, trip.NewKeyClock(now), cfg.Recorder, logger),
		notices:  newNoticeBuffer(cfg.NoticeLimit),
		now:      now,
		logger:   logger,
		observer: cfg.Observer,
		cancel:   cancel,
		done:     done,
	}

	err := loop.Do(context.Background(), func() {
		h.list = triplist.New(h.root, sessions, h.trips, triplist.Options{
			ReloadAfterDelete: cfg.ReloadAfterDelete,
			Observer:          cfg.Observer,
			Logger:            logger,
		})
		h.list.LoggedIn()(h.root, func(in bool) { h.loggedIn = in })
		h.list.Busy()(h.root, func(b bool) { h.loading = b })
		h.list.Errors()(h.root, func(msg string) { h.notice("session", msg) })
		h.list.State()(h.root, func(s triplist.State) {
			if s.Kind == triplist.KindError {
				h.notice("list", s.Message)
			}
		})
	})
	if err != nil {
		h.Close()
		return nil, err
	}
	return h, nil
}

// Close disposes every screen and stops the loop.
func (h *Host) Close() {
	_ = h.loop.Do(context.Background(), h.root.Dispose)
	h.loop.Close()
	h.cancel()
	<-h.done
}

// Session returns the signed-in session, or nil.
func (h *Host) Session() *session.Session {
	return h.sessions.Current()
}

// SignUp registers a password account through the sign-up screen.
func (h *Host) SignUp(ctx context.Context, email, password string) (*session.Session, error) {
	return h.emailAuth(ctx, signin.PurposeSignUp, email, password)
}

// SignIn signs in through the email sign-in screen.
func (h *Host) SignIn(ctx context.Context, email, password string) (*session.Session, error) {
	return h.emailAuth(ctx, signin.PurposeSignIn, email, password)
}

func (h *Host) emailAuth(ctx context.Context, purpose signin.Purpose, email, password string) (*session.Session, error) {
	screen := func(scope *reactive.Scope, next func(outcome[*session.Session])) {
		emailIn := reactive.NewSubject[string]()
		passwordIn := reactive.NewSubject[string]()
		submit := reactive.NewSubject[struct{}]()
		c := signin.NewEmail(scope, h.sessions, purpose, signin.EmailInput{
			Email:    emailIn.Stream(),
			Password: passwordIn.Stream(),
			Submit:   submit.Stream(),
		}, h.logger, h.trackerOpts()...)

		var invalid []string
		collectInvalid(scope, &invalid, c.EmailError(), c.PasswordError())
		c.Completed()(scope, func(s *session.Session) { next(succeeded(s)) })
		c.Failures()(scope, func(err error) {
			source := "sign_in"
			if purpose == signin.PurposeSignUp {
				source = "sign_up"
			}
			next(failed[*session.Session](h, source, err))
		})

		emailIn.Publish(email)
		passwordIn.Publish(password)
		submit.Publish(struct{}{})
		if len(invalid) > 0 {
			next(outcome[*session.Session]{err: result.Validation(strings.Join(invalid, "\n"))})
		}
	}
	return run(ctx, h, screen)
}

// SignInWithGoogle runs the one-tap federated flow.
func (h *Host) SignInWithGoogle(ctx context.Context) (*session.Session, error) {
	screen := func(scope *reactive.Scope, next func(outcome[*session.Session])) {
		tap := reactive.NewSubject[struct{}]()
		c := signin.NewFederated(scope, h.sessions, tap.Stream(), h.logger, h.trackerOpts()...)
		c.SignedIn()(scope, func(s *session.Session) { next(succeeded(s)) })
		c.Failures()(scope, func(err error) {
			next(failed[*session.Session](h, "sign_in_google", err))
		})
		tap.Publish(struct{}{})
	}
	return run(ctx, h, screen)
}

// SignOut ends the session. The list empties once the change arrives.
func (h *Host) SignOut(ctx context.Context) error {
	r, err := reactive.First(ctx, h.loop, h.root, h.sessions.SignOut())
	if err != nil {
		return err
	}
	if !r.Ok() {
		return failed[result.Unit](h, "sign_out", r.Err()).err
	}
	return nil
}

// Trip is one displayed row.
type Trip struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Dates     string `json:"dates"`
	Deleting  bool   `json:"deleting,omitempty"`
}

// Listing is a snapshot of the list screen.
type Listing struct {
	State     string `json:"state"`
	Trips     []Trip `json:"trips"`
	Message   string `json:"message,omitempty"`
	LoggedIn  bool   `json:"logged_in"`
	Loading   bool   `json:"loading"`
	CanCreate bool   `json:"can_create"`
}

// Trips waits for any in-flight fetch to settle and returns the list.
func (h *Host) Trips(ctx context.Context) (Listing, error) {
	settled := reactive.Filter(h.list.Busy(), func(busy bool) bool { return !busy })
	if _, err := reactive.First(ctx, h.loop, h.root, settled); err != nil {
		return Listing{}, err
	}
	return h.snapshot(ctx)
}

// Reload refreshes the list and returns the state it settles on.
func (h *Host) Reload(ctx context.Context) (Listing, error) {
	reloaded := func(scope *reactive.Scope, next func(triplist.State)) {
		replayed := false
		h.list.State()(scope, func(s triplist.State) {
			if replayed {
				next(s)
			}
		})
		replayed = true
		h.list.Reload()
	}
	if _, err := reactive.First(ctx, h.loop, h.root, reactive.Stream[triplist.State](reloaded)); err != nil {
		return Listing{}, err
	}
	return h.snapshot(ctx)
}

func (h *Host) snapshot(ctx context.Context) (Listing, error) {
	var l Listing
	err := h.loop.Do(ctx, func() {
		s := h.list.Current()
		l = Listing{
			State:     s.Kind.String(),
			Trips:     make([]Trip, 0, len(s.Rows)),
			Message:   s.Message,
			LoggedIn:  h.loggedIn,
			Loading:   h.loading,
			CanCreate: s.Kind != triplist.KindError,
		}
		for _, row := range s.Rows {
			rec := row.Record()
			l.Trips = append(l.Trips, Trip{
				Key:       rec.Key,
				Name:      row.Title(),
				Type:      rec.Type,
				StartDate: rec.StartDate,
				EndDate:   rec.EndDate,
				Dates:     row.Dates(),
				Deleting:  row.Deleting(),
			})
		}
	})
	return l, err
}

// AddTrip submits the add-trip form once. On success the list reloads, as
// it does when the list screen comes back into view.
func (h *Host) AddTrip(ctx context.Context, name, startDate, endDate string) error {
	screen := func(scope *reactive.Scope, next func(outcome[result.Unit])) {
		nameIn := reactive.NewSubject[string]()
		startIn := reactive.NewSubject[string]()
		endIn := reactive.NewSubject[string]()
		submit := reactive.NewSubject[struct{}]()

		f := tripform.New(scope, h.trips, tripform.Input{
			Name:      nameIn.Stream(),
			StartDate: startIn.Stream(),
			EndDate:   endIn.Stream(),
			Submit:    submit.Stream(),
		}, h.logger, h.trackerOpts()...)

		var invalid []string
		collectInvalid(scope, &invalid, f.NameError(), f.StartDateError(), f.EndDateError())
		f.Failures()(scope, func(err error) {
			next(failed[result.Unit](h, "add_trip", err))
		})
		f.Submitted()(scope, func(ok bool) {
			if ok {
				h.list.Reload()
				next(succeeded(result.Unit{}))
			}
		})

		nameIn.Publish(name)
		startIn.Publish(startDate)
		endIn.Publish(endDate)
		submit.Publish(struct{}{})
		if len(invalid) > 0 {
			next(outcome[result.Unit]{err: result.Validation(strings.Join(invalid, "\n"))})
		}
	}
	_, err := run(ctx, h, screen)
	return err
}

// DeleteTrip deletes the record behind a displayed row. The row stays in
// the list until the next refresh.
func (h *Host) DeleteTrip(ctx context.Context, key string) error {
	screen := func(scope *reactive.Scope, next func(outcome[result.Unit])) {
		row, ok := h.list.Row(key)
		if !ok {
			next(outcome[result.Unit]{err: ErrTripNotFound})
			return
		}
		reactive.Take(row.Deletions(), 1)(scope, func(d triplist.Deletion) {
			if !d.OK() {
				next(failed[result.Unit](h, "delete_trip", d.Cause))
				return
			}
			next(succeeded(result.Unit{}))
		})
		go func() {
			select {
			case <-row.Done():
				h.loop.Post(func() {
					if !scope.Disposed() {
						next(outcome[result.Unit]{err: context.Canceled})
					}
				})
			case <-scope.Context().Done():
			}
		}()
		row.Delete()
	}
	_, err := run(ctx, h, screen)
	return err
}

// Notices returns recent notices, oldest first, clearing them when drain
// is set.
func (h *Host) Notices(drain bool) []Notice {
	return h.notices.list(drain)
}

func (h *Host) trackerOpts() []activity.Option {
	if h.observer == nil {
		return nil
	}
	return []activity.Option{activity.WithObserver(h.observer)}
}

func (h *Host) notice(source, msg string) {
	h.logger.Warn("notice", "source", source, "message", msg)
	h.notices.add(Notice{At: h.now(), Source: source, Message: msg})
}

type outcome[T any] struct {
	value T
	err   error
}

func succeeded[T any](v T) outcome[T] { return outcome[T]{value: v} }

// failed records a notice for err and returns it as the screen outcome.
func failed[T any](h *Host, source string, err error) outcome[T] {
	if err == nil {
		err = result.Service("Error", nil)
	}
	h.notice(source, result.Describe(err))
	return outcome[T]{err: err}
}

// run opens a screen in a child scope, waits for its outcome and closes it.
func run[T any](ctx context.Context, h *Host, screen func(*reactive.Scope, func(outcome[T]))) (T, error) {
	o, err := reactive.First(ctx, h.loop, h.root, reactive.Stream[outcome[T]](screen))
	if err != nil {
		var zero T
		return zero, err
	}
	return o.value, o.err
}

// collectInvalid gathers the non-empty field messages emitted while the
// form is submitted.
func collectInvalid(scope *reactive.Scope, into *[]string, fields ...reactive.Stream[string]) {
	for _, f := range fields {
		f(scope, func(msg string) {
			if msg != "" {
				*into = append(*into, msg)
			}
		})
	}
}
