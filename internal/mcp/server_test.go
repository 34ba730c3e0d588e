package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/result"
	"github.com/stretchr/testify/require"
)

type stubHost struct {
	session   *session.Session
	listing   app.Listing
	signInErr error
	addErr    error
	deleteErr error
	notices   []app.Notice

	added   []string
	deleted []string
	drained bool
}

func (h *stubHost) SignUp(_ context.Context, email, _ string) (*session.Session, error) {
	return h.SignIn(context.Background(), email, "")
}

func (h *stubHost) SignIn(_ context.Context, email, _ string) (*session.Session, error) {
	if h.signInErr != nil {
		return nil, h.signInErr
	}
	h.session = &session.Session{ID: "s1", UserID: "u1", Email: email, Provider: session.ProviderPassword}
	return h.session, nil
}

func (h *stubHost) SignInWithGoogle(context.Context) (*session.Session, error) {
	return nil, result.Federated("Google sign-in was canceled.", nil)
}

func (h *stubHost) SignOut(context.Context) error {
	h.session = nil
	return nil
}

func (h *stubHost) Session() *session.Session { return h.session }

func (h *stubHost) Trips(context.Context) (app.Listing, error) { return h.listing, nil }

func (h *stubHost) Reload(context.Context) (app.Listing, error) { return h.listing, nil }

func (h *stubHost) AddTrip(_ context.Context, name, _, _ string) error {
	if h.addErr != nil {
		return h.addErr
	}
	h.added = append(h.added, name)
	return nil
}

func (h *stubHost) DeleteTrip(_ context.Context, key string) error {
	if h.deleteErr != nil {
		return h.deleteErr
	}
	h.deleted = append(h.deleted, key)
	return nil
}

func (h *stubHost) Notices(drain bool) []app.Notice {
	h.drained = drain
	return h.notices
}

func connect(t *testing.T, host Host) *sdkmcp.ClientSession {
	t.Helper()
	return connectWith(t, Config{Host: host})
}

func connectWith(t *testing.T, cfg Config) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	server := NewServer(cfg)

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientSession.Close() })
	return clientSession
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func decode[T any](t *testing.T, res *sdkmcp.CallToolResult) T {
	t.Helper()
	require.False(t, res.IsError, "tool returned error: %s", textOf(res))
	data, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func textOf(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func TestServer_ListTools(t *testing.T) {
	cs := connect(t, &stubHost{})

	tools, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, tool := range tools.Tools {
		names[tool.Name] = true
	}
	for _, name := range []string{
		"sign_up", "sign_in", "sign_in_google", "sign_out", "session_status",
		"list_trips", "reload_trips", "add_trip", "delete_trip", "notices",
	} {
		require.True(t, names[name], "missing tool %s", name)
	}
}

func TestServer_SignInAndStatus(t *testing.T) {
	host := &stubHost{}
	cs := connect(t, host)

	status := decode[sessionStatusOutput](t, callTool(t, cs, "session_status", nil))
	require.False(t, status.LoggedIn)

	out := decode[sessionOutput](t, callTool(t, cs, "sign_in", map[string]any{"email": "a@b.co", "password": "secret1"}))
	require.NotNil(t, out.Session)
	require.Equal(t, "a@b.co", out.Session.Email)

	status = decode[sessionStatusOutput](t, callTool(t, cs, "session_status", nil))
	require.True(t, status.LoggedIn)
	require.Equal(t, "u1", status.Session.UserID)

	decode[statusOutput](t, callTool(t, cs, "sign_out", nil))
	require.Nil(t, host.session)
}

func TestServer_SignInFailure(t *testing.T) {
	cs := connect(t, &stubHost{signInErr: result.Auth("The password is invalid or the user does not have a password.", nil)})

	res := callTool(t, cs, "sign_in", map[string]any{"email": "a@b.co", "password": "nope"})
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "AUTH_FAILED")
	require.Contains(t, textOf(res), "The password is invalid")
}

func TestServer_GoogleCanceled(t *testing.T) {
	cs := connect(t, &stubHost{})

	res := callTool(t, cs, "sign_in_google", nil)
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "FEDERATED_FAILED")
}

func TestServer_ListTrips(t *testing.T) {
	host := &stubHost{listing: app.Listing{
		State:     "items",
		LoggedIn:  true,
		CanCreate: true,
		Trips: []app.Trip{
			{Key: "2", Name: "Rome", Type: "upcoming", StartDate: "May 1", EndDate: "May 9", Dates: "May 1-May 9"},
			{Key: "1", Name: "Oslo", Type: "upcoming"},
		},
	}}
	cs := connect(t, host)

	listing := decode[app.Listing](t, callTool(t, cs, "list_trips", nil))
	require.Equal(t, "items", listing.State)
	require.Len(t, listing.Trips, 2)
	require.Equal(t, "Rome", listing.Trips[0].Name)
	require.Equal(t, "May 1-May 9", listing.Trips[0].Dates)
}

func TestServer_AddAndDelete(t *testing.T) {
	host := &stubHost{}
	cs := connect(t, host)

	decode[statusOutput](t, callTool(t, cs, "add_trip", map[string]any{"name": "Rome", "start_date": "May 1", "end_date": "May 9"}))
	require.Equal(t, []string{"Rome"}, host.added)

	decode[statusOutput](t, callTool(t, cs, "delete_trip", map[string]any{"key": "1"}))
	require.Equal(t, []string{"1"}, host.deleted)
}

func TestServer_ErrorCodes(t *testing.T) {
	host := &stubHost{
		addErr:    result.Validation("Please specify trip name"),
		deleteErr: result.ErrUnauthenticated,
	}
	cs := connect(t, host)

	res := callTool(t, cs, "add_trip", map[string]any{"name": "", "start_date": "May 1", "end_date": "May 9"})
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "VALIDATION: Please specify trip name")

	res = callTool(t, cs, "delete_trip", map[string]any{"key": "1"})
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "UNAUTHENTICATED: Invalid user")

	host.deleteErr = app.ErrTripNotFound
	res = callTool(t, cs, "delete_trip", map[string]any{"key": "9"})
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "TRIP_NOT_FOUND")
}

func TestServer_Notices(t *testing.T) {
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	host := &stubHost{notices: []app.Notice{{At: at, Source: "delete_trip", Message: "Invalid user"}}}
	cs := connect(t, host)

	out := decode[noticesOutput](t, callTool(t, cs, "notices", map[string]any{"drain": true}))
	require.Len(t, out.Notices, 1)
	require.Equal(t, "Invalid user", out.Notices[0].Message)
	require.True(t, out.Notices[0].At.Equal(at))
	require.True(t, host.drained)

	host.notices = nil
	out = decode[noticesOutput](t, callTool(t, cs, "notices", nil))
	require.Empty(t, out.Notices)
}

func TestMapError(t *testing.T) {
	require.Nil(t, MapError(nil))
	require.Equal(t, "STORAGE", MapError(result.Storage("disk full", nil)).Code)
	require.Equal(t, "CANCELED", MapError(context.Canceled).Code)
	require.Equal(t, "ERROR", MapError(result.Service("boom", nil)).Code)
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) records(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(b.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

func TestServer_LogsToolCalls(t *testing.T) {
	logs := &lockedBuffer{}
	logger := slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelInfo}))
	host := &stubHost{addErr: result.Validation("Please specify trip name")}
	cs := connectWith(t, Config{Host: host, Logger: logger})

	callTool(t, cs, "sign_in", map[string]any{"email": "ada@example.com", "password": "secret123"})
	res := callTool(t, cs, "add_trip", map[string]any{"name": "", "start_date": "2026-01-01", "end_date": "2026-01-02"})
	require.True(t, res.IsError)

	var calls []map[string]any
	for _, rec := range logs.records(t) {
		if _, ok := rec["tool"]; ok {
			calls = append(calls, rec)
		}
	}
	require.Len(t, calls, 2)

	require.Equal(t, "tool call", calls[0]["msg"])
	require.Equal(t, "sign_in", calls[0]["tool"])
	require.Equal(t, "u1", calls[0]["user_id"])
	require.NotContains(t, calls[0], "arguments")

	require.Equal(t, "tool call failed", calls[1]["msg"])
	require.Equal(t, "add_trip", calls[1]["tool"])
	require.Equal(t, "u1", calls[1]["user_id"])
	require.Equal(t, "VALIDATION", calls[1]["code"])
}
