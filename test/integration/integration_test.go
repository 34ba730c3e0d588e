package integration_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/pipeline/tripform"
	"github.com/rpggio/trips/internal/pipeline/triplist"
	"github.com/rpggio/trips/internal/reactive"
	"github.com/rpggio/trips/internal/reactive/reactivetest"
	"github.com/rpggio/trips/internal/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// flakyStore fails writes while failSet is on.
type flakyStore struct {
	*sqlite.Store
	failSet atomic.Bool
}

func (s *flakyStore) SetValue(ctx context.Context, path string, fields map[string]string) error {
	if s.failSet.Load() {
		return errors.New("Permission denied")
	}
	return s.Store.SetValue(ctx, path, fields)
}

type testEnv struct {
	t        *testing.T
	db       *sqlite.DB
	store    *flakyStore
	identity *sqlite.IdentityProvider
	loop     *reactive.Loop
	scope    *reactive.Scope
	sessions *session.Service
	trips    *trip.Service
	list     *triplist.Pipeline
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { _ = db.Close() })

	e := &testEnv{
		t:        t,
		db:       db,
		store:    &flakyStore{Store: sqlite.NewStore(db)},
		identity: sqlite.NewIdentityProvider(db, nil, sqlite.WithPasswordCost(bcrypt.MinCost)),
		loop:     reactivetest.StartLoop(t),
		scope:    reactivetest.NewScope(t),
	}
	e.sessions = session.NewService(e.loop, e.identity, nil, nil)
	e.trips = trip.NewService(e.loop, e.store, e.sessions, nil, nil, nil)
	e.on(func() {
		e.list = triplist.New(e.scope, e.sessions, e.trips, triplist.Options{})
	})
	return e
}

func (e *testEnv) on(fn func()) {
	reactivetest.OnLoop(e.t, e.loop, fn)
}

func (e *testEnv) current() triplist.State {
	var s triplist.State
	e.on(func() { s = e.list.Current() })
	return s
}

// waitState polls until the list state satisfies ok.
func (e *testEnv) waitState(ok func(triplist.State) bool) triplist.State {
	e.t.Helper()
	var s triplist.State
	require.Eventually(e.t, func() bool {
		s = e.current()
		return ok(s)
	}, reactivetest.WaitFor, 5*time.Millisecond)
	return s
}

// signUp creates the account and waits for the list to refetch as the
// signed-in user.
func (e *testEnv) signUp() {
	e.t.Helper()
	_, err := e.identity.CreateUser(context.Background(), "ada@example.com", "secret123")
	require.NoError(e.t, err)

	loggedIn := reactivetest.Record(e.t, e.loop, e.scope, e.list.LoggedIn())
	require.Eventually(e.t, func() bool {
		last, ok := loggedIn.Last()
		return ok && last
	}, reactivetest.WaitFor, 5*time.Millisecond)
	busy := reactivetest.Record(e.t, e.loop, e.scope, e.list.Busy())
	require.Eventually(e.t, func() bool {
		last, ok := busy.Last()
		return ok && !last
	}, reactivetest.WaitFor, 5*time.Millisecond)
}

func (e *testEnv) seed(keys ...string) {
	e.t.Helper()
	for _, key := range keys {
		rec := trip.Record{Key: key, Name: "trip " + key, Type: trip.TypeUpcoming, StartDate: "May 1", EndDate: "May 3"}
		require.NoError(e.t, e.store.Store.SetValue(context.Background(), trip.RecordPath(key), rec.Fields()))
	}
}

// reload requests a refresh and waits for the fetch it starts to settle.
func (e *testEnv) reload() triplist.State {
	e.t.Helper()
	busy := reactivetest.Record(e.t, e.loop, e.scope, e.list.Busy())
	e.on(e.list.Reload)
	require.Eventually(e.t, func() bool {
		last, ok := busy.Last()
		return ok && !last
	}, reactivetest.WaitFor, 5*time.Millisecond)
	return e.current()
}

func isKind(kind triplist.Kind) func(triplist.State) bool {
	return func(s triplist.State) bool { return s.Kind == kind }
}

func TestFetchedRecordsOrderedNewestFirst(t *testing.T) {
	e := newTestEnv(t)
	e.signUp()

	e.waitState(isKind(triplist.KindEmpty))
	require.Equal(t, triplist.KindEmpty, e.reload().Kind)

	e.seed("1700000000001", "1700000000003", "1700000000002")
	s := e.reload()
	require.Equal(t, triplist.KindItems, s.Kind)
	require.Equal(t, []string{"1700000000003", "1700000000002", "1700000000001"}, s.Keys())
}

func TestDeleteThenReloadDropsKey(t *testing.T) {
	e := newTestEnv(t)
	e.seed("1", "2")
	e.signUp()

	s := e.waitState(isKind(triplist.KindItems))
	require.Equal(t, []string{"2", "1"}, s.Keys())
	row := s.Rows[0]

	deletions := reactivetest.Record(t, e.loop, e.scope, row.Deletions())
	e.on(row.Delete)
	require.True(t, deletions.WaitLen(t, 1)[0].OK())

	// Without an automatic reload the row is still displayed.
	require.Equal(t, []string{"2", "1"}, e.current().Keys())

	s = e.reload()
	require.Equal(t, []string{"1"}, s.Keys())
	require.True(t, row.Disposed())
}

func TestSubmitRequiresAllFields(t *testing.T) {
	e := newTestEnv(t)
	e.signUp()

	values := [2]string{"", "x"}
	for mask := range 8 {
		name, start, end := values[mask&1], values[mask>>1&1], values[mask>>2&1]

		scope := reactivetest.NewScope(t)
		nameIn := reactive.NewSubject[string]()
		startIn := reactive.NewSubject[string]()
		endIn := reactive.NewSubject[string]()
		submit := reactive.NewSubject[struct{}]()
		var form *tripform.Form
		e.on(func() {
			form = tripform.New(scope, e.trips, tripform.Input{
				Name: nameIn.Stream(), StartDate: startIn.Stream(), EndDate: endIn.Stream(), Submit: submit.Stream(),
			}, nil)
		})
		submitted := reactivetest.Record(t, e.loop, scope, form.Submitted())
		e.on(func() {
			nameIn.Publish(name)
			startIn.Publish(start)
			endIn.Publish(end)
			submit.Publish(struct{}{})
		})

		if mask == 7 {
			require.Equal(t, []bool{true}, submitted.WaitLen(t, 1))
		} else {
			require.Empty(t, submitted.Values())
		}
		e.on(scope.Dispose)
	}

	snap, err := e.store.ReadOrderedByKey(context.Background(), trip.Collection)
	require.NoError(t, err)
	require.Len(t, snap.Children, 1)
}

func TestFailedCreateLeavesListUnchanged(t *testing.T) {
	e := newTestEnv(t)
	e.seed("1")
	e.signUp()
	before := e.waitState(isKind(triplist.KindItems))

	e.store.failSet.Store(true)
	nameIn := reactive.NewSubject[string]()
	startIn := reactive.NewSubject[string]()
	endIn := reactive.NewSubject[string]()
	submit := reactive.NewSubject[struct{}]()
	var form *tripform.Form
	e.on(func() {
		form = tripform.New(e.scope, e.trips, tripform.Input{
			Name: nameIn.Stream(), StartDate: startIn.Stream(), EndDate: endIn.Stream(), Submit: submit.Stream(),
		}, nil)
	})
	errs := reactivetest.Record(t, e.loop, e.scope, reactive.Filter(form.SubmitError(), func(msg string) bool { return msg != "" }))
	busy := reactivetest.Record(t, e.loop, e.scope, form.Busy())
	states := reactivetest.Record(t, e.loop, e.scope, e.list.State())

	e.on(func() {
		nameIn.Publish("Oslo")
		startIn.Publish("Jan 10")
		endIn.Publish("Jan 14")
		submit.Publish(struct{}{})
	})

	require.Len(t, errs.WaitLen(t, 1), 1)
	require.Contains(t, errs.Values()[0], "Permission denied")
	require.Eventually(t, func() bool {
		last, ok := busy.Last()
		return ok && !last && busy.Len() == 3
	}, reactivetest.WaitFor, 5*time.Millisecond)
	require.Equal(t, 1, states.Len())
	require.Equal(t, before.Keys(), e.current().Keys())
}

func TestSignOutDiscardsItemsAndRefetches(t *testing.T) {
	e := newTestEnv(t)
	e.seed("1")
	e.signUp()
	s := e.waitState(isKind(triplist.KindItems))
	row := s.Rows[0]

	require.NoError(t, e.identity.SignOut(context.Background()))
	require.Eventually(t, row.Disposed, reactivetest.WaitFor, 5*time.Millisecond)

	// The signed-out change issues its own fetch; its rows are new.
	s = e.waitState(func(s triplist.State) bool { return len(s.Rows) == 1 && s.Rows[0] != row })
	require.Equal(t, []string{"1"}, s.Keys())
	loggedOutRow := s.Rows[0]

	e.seed("2")
	_, err := e.identity.SignIn(context.Background(), "ada@example.com", "secret123")
	require.NoError(t, err)

	s = e.waitState(func(s triplist.State) bool { return len(s.Rows) == 2 })
	require.Equal(t, []string{"2", "1"}, s.Keys())
	require.NotSame(t, row, s.Rows[1])
	require.Same(t, loggedOutRow, s.Rows[1])
}
