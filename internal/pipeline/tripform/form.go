// Package tripform validates the add-trip form and creates the record.
package tripform

import (
	"log/slog"

	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// Field validation messages.
const (
	MsgNameRequired      = "Please specify trip name"
	MsgStartDateRequired = "Please specify trip start date"
	MsgEndDateRequired   = "Please specify trip end date"
)

// Creator is the part of the record repository the form uses.
type Creator interface {
	Create(name, tripType, startDate, endDate string) reactive.Stream[result.Result[result.Unit]]
}

// Input is the form's event sources.
type Input struct {
	Name      reactive.Stream[string]
	StartDate reactive.Stream[string]
	EndDate   reactive.Stream[string]
	Submit    reactive.Stream[struct{}]
}

// Form publishes per-field validation, busy state and the submit outcome.
type Form struct {
	nameErr   *reactive.Subject[string]
	startErr  *reactive.Subject[string]
	endErr    *reactive.Subject[string]
	submitErr *reactive.Subject[string]
	failures  *reactive.Subject[error]
	submitted *reactive.Subject[bool]
	tracker   *activity.Tracker
	logger    *slog.Logger
}

type fields struct {
	name, start, end string
}

// New wires the form under scope. Call on the loop, and subscribe to the
// outputs before the first submit.
func New(scope *reactive.Scope, creator Creator, in Input, logger *slog.Logger, opts ...activity.Option) *Form {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f := &Form{
		nameErr:   reactive.NewSubject[string](),
		startErr:  reactive.NewSubject[string](),
		endErr:    reactive.NewSubject[string](),
		submitErr: reactive.NewSubject[string](),
		failures:  reactive.NewSubject[error](),
		submitted: reactive.NewSubject[bool](),
		tracker:   activity.NewTracker("add_trip", opts...),
		logger:    logger,
	}

	latest := reactive.CombineLatest3(
		reactive.StartWith(in.Name, ""),
		reactive.StartWith(in.StartDate, ""),
		reactive.StartWith(in.EndDate, ""),
		func(name, start, end string) fields { return fields{name, start, end} },
	)
	valid := reactive.Filter(reactive.WithLatestFrom(in.Submit, latest), f.validate)

	outcomes := reactive.SwitchMap(valid, func(v fields) reactive.Stream[result.Result[result.Unit]] {
		f.submitErr.Publish("")
		return activity.Track(f.tracker, creator.Create(v.name, trip.TypeUpcoming, v.start, v.end))
	})
	outcomes(scope, func(r result.Result[result.Unit]) {
		if r.Ok() {
			f.logger.Debug("trip submitted")
			f.submitted.Publish(true)
			return
		}
		f.logger.Warn("adding trip failed", "error", r.Message())
		f.submitErr.Publish(r.Message())
		f.failures.Publish(r.Err())
		f.submitted.Publish(false)
	})
	return f
}

// validate publishes each field's message, "" when it is set, and reports
// whether all three are set.
func (f *Form) validate(v fields) bool {
	ok := true
	check := func(value, msg string, out *reactive.Subject[string]) {
		if value == "" {
			ok = false
			out.Publish(msg)
			return
		}
		out.Publish("")
	}
	check(v.name, MsgNameRequired, f.nameErr)
	check(v.start, MsgStartDateRequired, f.startErr)
	check(v.end, MsgEndDateRequired, f.endErr)
	return ok
}

// NameError emits the name field's message on each submit.
func (f *Form) NameError() reactive.Stream[string] { return f.nameErr.Stream() }

// StartDateError emits the start date field's message on each submit.
func (f *Form) StartDateError() reactive.Stream[string] { return f.startErr.Stream() }

// EndDateError emits the end date field's message on each submit.
func (f *Form) EndDateError() reactive.Stream[string] { return f.endErr.Stream() }

// SubmitError emits "" when a valid submit starts and the failure message
// when it fails.
func (f *Form) SubmitError() reactive.Stream[string] { return f.submitErr.Stream() }

// Failures emits each failed create, classified.
func (f *Form) Failures() reactive.Stream[error] { return f.failures.Stream() }

// Submitted emits true after a create succeeds and false after it fails.
func (f *Form) Submitted() reactive.Stream[bool] { return f.submitted.Stream() }

// Busy is true while a create is in flight.
func (f *Form) Busy() reactive.Stream[bool] { return f.tracker.IsBusy() }
