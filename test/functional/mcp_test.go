package functional_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trips/internal/testserver"
	"github.com/stretchr/testify/require"
)

// bearerTransport adds the Authorization header to every request.
type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.base.RoundTrip(req)
}

func connectHTTP(t *testing.T, ts *testserver.TestServer) *sdkmcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{token: ts.Token, base: http.DefaultTransport},
		},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, cs *sdkmcp.ClientSession, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err, "CallTool %s failed", name)
	return res
}

func textOf(res *sdkmcp.CallToolResult) string {
	for _, c := range res.Content {
		if text, ok := c.(*sdkmcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
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

type listing struct {
	State    string `json:"state"`
	LoggedIn bool   `json:"logged_in"`
	Trips    []struct {
		Key   string `json:"key"`
		Name  string `json:"name"`
		Dates string `json:"dates"`
	} `json:"trips"`
}

func TestHTTP_RequiresBearerToken(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	body := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/mcp", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHTTP_HealthAndMetrics(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := connectHTTP(t, ts)

	callTool(t, cs, "sign_up", map[string]any{"email": "ada@example.com", "password": "secret123"})
	decode[listing](t, callTool(t, cs, "list_trips", nil))

	resp, err := http.Get(ts.Server.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.Server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(data), `trips_operations_total{operation="fetch",outcome="success"}`)
}

func TestHTTP_TripWorkflow(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := connectHTTP(t, ts)

	status := decode[struct {
		LoggedIn bool `json:"logged_in"`
	}](t, callTool(t, cs, "session_status", nil))
	require.False(t, status.LoggedIn)

	signedUp := decode[struct {
		Session struct {
			Email    string `json:"email"`
			Provider string `json:"provider"`
		} `json:"session"`
	}](t, callTool(t, cs, "sign_up", map[string]any{"email": "ada@example.com", "password": "secret123"}))
	require.Equal(t, "ada@example.com", signedUp.Session.Email)
	require.Equal(t, "password", signedUp.Session.Provider)

	empty := decode[listing](t, callTool(t, cs, "list_trips", nil))
	require.Equal(t, "empty", empty.State)
	require.True(t, empty.LoggedIn)

	for _, name := range []string{"Lisbon", "Kyoto"} {
		res := callTool(t, cs, "add_trip", map[string]any{
			"name": name, "start_date": "Jun 3, 2026", "end_date": "Jun 9, 2026",
		})
		require.False(t, res.IsError, textOf(res))
	}

	items := decode[listing](t, callTool(t, cs, "list_trips", nil))
	require.Equal(t, "items", items.State)
	require.Len(t, items.Trips, 2)
	require.Equal(t, "Kyoto", items.Trips[0].Name)
	require.Equal(t, "Jun 3, 2026-Jun 9, 2026", items.Trips[0].Dates)

	res := callTool(t, cs, "delete_trip", map[string]any{"key": items.Trips[0].Key})
	require.False(t, res.IsError, textOf(res))

	after := decode[listing](t, callTool(t, cs, "reload_trips", nil))
	require.Len(t, after.Trips, 1)
	require.Equal(t, "Lisbon", after.Trips[0].Name)
}

func TestHTTP_ValidationAndNotices(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	cs := connectHTTP(t, ts)

	res := callTool(t, cs, "add_trip", map[string]any{"name": "", "start_date": "", "end_date": ""})
	require.True(t, res.IsError)
	require.Contains(t, textOf(res), "VALIDATION")
	require.Contains(t, textOf(res), "Please specify trip name")

	callTool(t, cs, "sign_up", map[string]any{"email": "ada@example.com", "password": "secret123"})
	callTool(t, cs, "sign_out", nil)
	res = callTool(t, cs, "sign_in", map[string]any{"email": "ada@example.com", "password": "nope-nope"})
	require.True(t, res.IsError)

	notices := decode[struct {
		Notices []struct {
			Source  string `json:"source"`
			Message string `json:"message"`
		} `json:"notices"`
	}](t, callTool(t, cs, "notices", map[string]any{"drain": true}))
	require.Len(t, notices.Notices, 1)
	require.Equal(t, "sign_in", notices.Notices[0].Source)
}
