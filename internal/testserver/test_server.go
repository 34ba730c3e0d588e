// Package testserver assembles the full stack over an in-memory SQLite
// database for tests.
package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/domain/session"
	"github.com/rpggio/trips/internal/domain/trip"
	"github.com/rpggio/trips/internal/mcp"
	"github.com/rpggio/trips/internal/metrics"
	"github.com/rpggio/trips/internal/sqlite"
	"github.com/rpggio/trips/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// DefaultToken is the bearer token the HTTP server accepts unless
// Options.Token overrides it.
const DefaultToken = "test-token"

// Options tune the assembled stack.
type Options struct {
	// KeepDeletedRows disables the reload after a successful delete.
	KeepDeletedRows bool
	Federated       session.FederatedSignIn
	Verifier        session.CredentialVerifier
	Token           string
	// WrapStore, when set, wraps the SQLite store the host writes through.
	WrapStore func(trip.Store) trip.Store
}

type TestServer struct {
	DB       *sqlite.DB
	Identity *sqlite.IdentityProvider
	Store    *sqlite.Store
	Registry *prometheus.Registry
	Host     *app.Host
	MCP      *sdkmcp.Server
	Server   *httptest.Server
	Token    string
}

// New builds the stack and registers cleanup on t.
func New(t *testing.T, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, db.RunMigrations())

	identity := sqlite.NewIdentityProvider(db, opts.Verifier, sqlite.WithPasswordCost(bcrypt.MinCost))
	store := sqlite.NewStore(db)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var hostStore trip.Store = store
	if opts.WrapStore != nil {
		hostStore = opts.WrapStore(store)
	}

	host, err := app.New(app.Config{
		Identity:          identity,
		Federated:         opts.Federated,
		Store:             hostStore,
		Recorder:          collector,
		Observer:          collector,
		ReloadAfterDelete: !opts.KeepDeletedRows,
	})
	require.NoError(t, err)

	server := mcp.NewServer(mcp.Config{Host: host})

	token := opts.Token
	if token == "" {
		token = DefaultToken
	}
	handler := sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, nil)
	httpServer := httptest.NewServer(transport.NewServer(transport.Config{
		MCP:      handler,
		Gatherer: registry,
		Verifier: transport.NewStaticToken(token),
	}))

	t.Cleanup(func() {
		httpServer.Close()
		host.Close()
		_ = db.Close()
	})

	return &TestServer{
		DB:       db,
		Identity: identity,
		Store:    store,
		Registry: registry,
		Host:     host,
		MCP:      server,
		Server:   httpServer,
		Token:    token,
	}
}

// Connect opens an in-memory MCP client session against the server.
func (ts *TestServer) Connect(t *testing.T) *sdkmcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	serverTransport, clientTransport := sdkmcp.NewInMemoryTransports()
	serverSession, err := ts.MCP.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = clientSession.Close()
		_ = serverSession.Close()
	})
	return clientSession
}
