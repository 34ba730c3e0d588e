package triplist

import (
	"github.com/rpggio/trips/internal/domain/activity"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/result"
)

// Deletion is the outcome of a row's delete. Err is empty on success;
// Cause is the classified failure behind it.
type Deletion struct {
	Key   string
	Err   string
	Cause error
}

// OK reports whether the record was deleted.
func (d Deletion) OK() bool { return d.Err == "" }

// Row controls one displayed record. It never removes itself from the
// list; the list changes only on the next refresh.
type Row struct {
	record    trip.Record
	scope     *reactive.Scope
	trigger   *reactive.Subject[struct{}]
	deletions *reactive.Subject[Deletion]
	tracker   *activity.Tracker
}

func newRow(scope *reactive.Scope, rec trip.Record, repo Repository, onDeleted func(key string), opts ...activity.Option) *Row {
	r := &Row{
		record:    rec,
		scope:     scope,
		trigger:   reactive.NewSubject[struct{}](),
		deletions: reactive.NewSubject[Deletion](),
		tracker:   activity.NewTracker("row_delete", opts...),
	}

	outcomes := reactive.MergeMapFirst(r.trigger.Stream(), func(struct{}) reactive.Stream[result.Result[result.Unit]] {
		return activity.Track(r.tracker, repo.Delete(rec.Key))
	})
	outcomes(scope, func(res result.Result[result.Unit]) {
		d := Deletion{Key: rec.Key}
		if !res.Ok() {
			d.Err = res.Message()
			d.Cause = res.Err()
		}
		r.deletions.Publish(d)
		if d.OK() && onDeleted != nil {
			onDeleted(rec.Key)
		}
	})
	return r
}

// Key is the record key the row is bound to.
func (r *Row) Key() string { return r.record.Key }

// Record returns the displayed record.
func (r *Row) Record() trip.Record { return r.record }

// Title is the record's name.
func (r *Row) Title() string { return r.record.Name }

// Dates is "start-end".
func (r *Row) Dates() string { return r.record.StartDate + "-" + r.record.EndDate }

// Delete asks the repository to delete the record. Call on the loop.
func (r *Row) Delete() {
	if r.scope.Disposed() {
		return
	}
	r.trigger.Publish(struct{}{})
}

// Deletions emits one Deletion per completed delete request.
func (r *Row) Deletions() reactive.Stream[Deletion] {
	return r.deletions.Stream()
}

// Busy is true while a deletion is in flight.
func (r *Row) Busy() reactive.Stream[bool] {
	return r.tracker.IsBusy()
}

// Deleting reports whether a deletion is in flight.
func (r *Row) Deleting() bool {
	return r.tracker.Busy()
}

// Done is closed once the row is dropped from the list.
func (r *Row) Done() <-chan struct{} {
	return r.scope.Context().Done()
}

// Disposed reports whether the row was dropped from the list.
func (r *Row) Disposed() bool {
	return r.scope.Disposed()
}
