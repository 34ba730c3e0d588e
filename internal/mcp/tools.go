package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trips/internal/app"
	"github.com/rpggio/trips/internal/domain/session"
)

type noInput struct{}

type credentialsInput struct {
	Email    string `json:"email" jsonschema:"account email address"`
	Password string `json:"password" jsonschema:"account password, at least 6 characters for sign_up"`
}

type addTripInput struct {
	Name      string `json:"name" jsonschema:"trip name"`
	StartDate string `json:"start_date" jsonschema:"start date as displayed, e.g. Jun 3, 2026"`
	EndDate   string `json:"end_date" jsonschema:"end date as displayed"`
}

type deleteTripInput struct {
	Key string `json:"key" jsonschema:"record key from list_trips"`
}

type noticesInput struct {
	Drain bool `json:"drain,omitempty" jsonschema:"clear the returned notices"`
}

type sessionOutput struct {
	Session *session.Session `json:"session"`
}

type sessionStatusOutput struct {
	LoggedIn bool             `json:"logged_in"`
	Session  *session.Session `json:"session,omitempty"`
}

type statusOutput struct {
	OK bool `json:"ok"`
}

type noticesOutput struct {
	Notices []app.Notice `json:"notices"`
}

func registerTools(server *sdkmcp.Server, host Host) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_up",
		Description: "Register an email/password account and sign in",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in credentialsInput) (*sdkmcp.CallToolResult, sessionOutput, error) {
		sess, err := host.SignUp(ctx, in.Email, in.Password)
		if err != nil {
			return nil, sessionOutput{}, MapError(err)
		}
		return nil, sessionOutput{Session: sess}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_in",
		Description: "Sign in with email and password",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in credentialsInput) (*sdkmcp.CallToolResult, sessionOutput, error) {
		sess, err := host.SignIn(ctx, in.Email, in.Password)
		if err != nil {
			return nil, sessionOutput{}, MapError(err)
		}
		return nil, sessionOutput{Session: sess}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_in_google",
		Description: "Sign in with Google. Blocks until the browser flow completes or is canceled",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, sessionOutput, error) {
		sess, err := host.SignInWithGoogle(ctx)
		if err != nil {
			return nil, sessionOutput{}, MapError(err)
		}
		return nil, sessionOutput{Session: sess}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sign_out",
		Description: "Sign out of the current session",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, statusOutput, error) {
		if err := host.SignOut(ctx); err != nil {
			return nil, statusOutput{}, MapError(err)
		}
		return nil, statusOutput{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "session_status",
		Description: "Report whether a user is signed in",
	}, func(_ context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, sessionStatusOutput, error) {
		sess := host.Session()
		return nil, sessionStatusOutput{LoggedIn: sess != nil, Session: sess}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_trips",
		Description: "Show the trip list, newest first, once any fetch in flight settles",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, app.Listing, error) {
		listing, err := host.Trips(ctx)
		if err != nil {
			return nil, app.Listing{}, MapError(err)
		}
		return nil, listing, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "reload_trips",
		Description: "Fetch the trip list again and show the result",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ noInput) (*sdkmcp.CallToolResult, app.Listing, error) {
		listing, err := host.Reload(ctx)
		if err != nil {
			return nil, app.Listing{}, MapError(err)
		}
		return nil, listing, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "add_trip",
		Description: "Add an upcoming trip. All three fields are required",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in addTripInput) (*sdkmcp.CallToolResult, statusOutput, error) {
		if err := host.AddTrip(ctx, in.Name, in.StartDate, in.EndDate); err != nil {
			return nil, statusOutput{}, MapError(err)
		}
		return nil, statusOutput{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_trip",
		Description: "Delete a displayed trip by key. The list changes on the next refresh",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in deleteTripInput) (*sdkmcp.CallToolResult, statusOutput, error) {
		if err := host.DeleteTrip(ctx, in.Key); err != nil {
			return nil, statusOutput{}, MapError(err)
		}
		return nil, statusOutput{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "notices",
		Description: "Recent alerts: list errors, failed deletions, failed submits and sign-in failures",
	}, func(_ context.Context, _ *sdkmcp.CallToolRequest, in noticesInput) (*sdkmcp.CallToolResult, noticesOutput, error) {
		notices := host.Notices(in.Drain)
		if notices == nil {
			notices = []app.Notice{}
		}
		return nil, noticesOutput{Notices: notices}, nil
	})
}
