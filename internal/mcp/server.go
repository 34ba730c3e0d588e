package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/domain/session"
)

// Host defines the screen actions exposed as tools.
type Host interface {
	SignUp(ctx context.Context, email, password string) (*session.Session, error)
	SignIn(ctx context.Context, email, password string) (*session.Session, error)
	SignInWithGoogle(ctx context.Context) (*session.Session, error)
	SignOut(ctx context.Context) error
	Session() *session.Session
	Trips(ctx context.Context) (app.Listing, error)
	Reload(ctx context.Context) (app.Listing, error)
	AddTrip(ctx context.Context, name, startDate, endDate string) error
	DeleteTrip(ctx context.Context, key string) error
	Notices(drain bool) []app.Notice
}

// Config contains server configuration.
type Config struct {
	Host   Host
	Logger *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "trips",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	var current func() *session.Session
	if cfg.Host != nil {
		current = cfg.Host.Session
	}
	server.AddReceivingMiddleware(toolCallLogging(cfg.Logger, current))

	registerTools(server, cfg.Host)

	return server
}
