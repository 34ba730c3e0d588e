// Package triplist keeps the displayed trip list in sync with the session
// and the record store.
package triplist

import (
	"log/slog"
	"slices"

	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// SessionSource supplies session changes.
type SessionSource interface {
	ObserveSessionChanges() reactive.Stream[result.Result[*session.Session]]
}

// Repository is the part of the record repository the list uses.
type Repository interface {
	FetchAll() reactive.Stream[result.Result[[]trip.Record]]
	Delete(key string) reactive.Stream[result.Result[result.Unit]]
}

// Options configures a Pipeline.
type Options struct {
	// ReloadAfterDelete refreshes the list after a row deletes its record.
	ReloadAfterDelete bool
	Observer          activity.Observer
	Logger            *slog.Logger
}

// Pipeline derives the list state from (logged in, reload): every change
// of either input issues a fetch, latest wins.
type Pipeline struct {
	scope  *reactive.Scope
	repo   Repository
	opts   Options
	logger *slog.Logger

	reload   *reactive.Subject[struct{}]
	state    *reactive.Variable[State]
	loggedIn *reactive.Variable[bool]
	errors   *reactive.Subject[string]
	tracker  *activity.Tracker
	rows     map[string]*Row

	trackerOpts []activity.Option
}

// New builds the pipeline under scope and issues the first fetch once the
// session state is known. Call on the loop.
func New(scope *reactive.Scope, sessions SessionSource, repo Repository, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	var trackerOpts []activity.Option
	if opts.Observer != nil {
		trackerOpts = append(trackerOpts, activity.WithObserver(opts.Observer))
	}

	p := &Pipeline{
		scope:    scope,
		repo:     repo,
		opts:     opts,
		logger:   logger,
		reload:   reactive.NewSubject[struct{}](),
		state:    reactive.NewVariable(State{Kind: KindEmpty}),
		loggedIn: reactive.NewVariable(false),
		errors:   reactive.NewSubject[string](),
		tracker:  activity.NewTracker("reload", trackerOpts...),
		rows:     make(map[string]*Row),

		trackerOpts: trackerOpts,
	}

	loggedIn := reactive.Tap(
		reactive.Distinct(session.LoggedIn(sessions.ObserveSessionChanges(), p.publishError)),
		p.setLoggedIn,
	)
	reload := reactive.StartWith(p.reload.Stream(), struct{}{})
	inputs := reactive.CombineLatest(loggedIn, reload, func(in bool, _ struct{}) bool { return in })

	outcomes := reactive.SwitchMap(inputs, func(bool) reactive.Stream[result.Result[[]trip.Record]] {
		return activity.Track(p.tracker, repo.FetchAll())
	})
	outcomes(scope, p.apply)
	scope.Defer(p.dropAllRows)

	return p
}

// Reload requests a fresh fetch. Call on the loop.
func (p *Pipeline) Reload() {
	p.reload.Publish(struct{}{})
}

// State emits the current state and every change.
func (p *Pipeline) State() reactive.Stream[State] {
	return p.state.Stream()
}

// Current returns the current state.
func (p *Pipeline) Current() State {
	return p.state.Value()
}

// CanCreateNewEntry is false exactly while the state is an error.
func (p *Pipeline) CanCreateNewEntry() reactive.Stream[bool] {
	return reactive.Distinct(reactive.Map(p.state.Stream(), func(s State) bool {
		return s.Kind != KindError
	}))
}

// LoggedIn emits whether a session is active.
func (p *Pipeline) LoggedIn() reactive.Stream[bool] {
	return reactive.Distinct(p.loggedIn.Stream())
}

// Busy is true while a fetch is in flight.
func (p *Pipeline) Busy() reactive.Stream[bool] {
	return p.tracker.IsBusy()
}

// Errors emits session observation failures.
func (p *Pipeline) Errors() reactive.Stream[string] {
	return p.errors.Stream()
}

// Row returns the live row for key.
func (p *Pipeline) Row(key string) (*Row, bool) {
	r, ok := p.rows[key]
	return r, ok
}

func (p *Pipeline) publishError(msg string) {
	p.logger.Warn("session observation failed", "error", msg)
	p.errors.Publish(msg)
}

// setLoggedIn records the flag. Signing out discards the displayed rows
// before the fetch it triggers lands.
func (p *Pipeline) setLoggedIn(in bool) {
	p.loggedIn.Set(in)
	if in || (len(p.rows) == 0 && p.state.Value().Kind == KindEmpty) {
		return
	}
	p.dropAllRows()
	p.state.Set(State{Kind: KindEmpty})
}

func (p *Pipeline) apply(records result.Result[[]trip.Record]) {
	switch {
	case !records.Ok():
		p.dropAllRows()
		p.state.Set(State{Kind: KindError, Message: records.Message()})
	case len(records.Value()) == 0:
		p.dropAllRows()
		p.state.Set(State{Kind: KindEmpty})
	default:
		p.state.Set(State{Kind: KindItems, Rows: p.syncRows(records.Value())})
	}
}

// syncRows reuses rows whose key survived and disposes the rest.
func (p *Pipeline) syncRows(records []trip.Record) []*Row {
	records = slices.Clone(records)
	slices.Reverse(records)

	next := make(map[string]*Row, len(records))
	rows := make([]*Row, 0, len(records))
	for _, rec := range records {
		row, ok := p.rows[rec.Key]
		if ok {
			row.record = rec
		} else {
			row = newRow(p.scope.Child(), rec, p.repo, p.onDeleted, p.trackerOpts...)
		}
		next[rec.Key] = row
		rows = append(rows, row)
	}
	for key, row := range p.rows {
		if _, keep := next[key]; !keep {
			row.scope.Dispose()
		}
	}
	p.rows = next
	return rows
}

func (p *Pipeline) dropAllRows() {
	for _, row := range p.rows {
		row.scope.Dispose()
	}
	p.rows = make(map[string]*Row)
}

func (p *Pipeline) onDeleted(key string) {
	p.logger.Debug("trip row deleted", "key", key)
	if p.opts.ReloadAfterDelete {
		p.Reload()
	}
}
