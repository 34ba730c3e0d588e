package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `trips keeps a signed-in user's list of upcoming trips.

Workflow:
1) session_status to see who is signed in.
2) sign_in / sign_up (email + password) or sign_in_google.
3) list_trips shows the list newest first. State is "empty", "items" or "error".
4) add_trip (name, start_date, end_date) then list_trips.
5) delete_trip(key). The row stays listed until the next refresh.
6) notices returns alerts a UI would pop up.

Docs: trips://docs/index
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "trips://docs/index",
		Name:        "docs_index",
		Title:       "trips docs index",
		Description: "Tools, list states and error codes.",
		Content: `# trips

## List states

- ` + "`empty`" + `: no trips, or a sign-out is still refreshing the list.
- ` + "`items`" + `: trips, newest first. ` + "`dates`" + ` is "start-end".
- ` + "`error`" + `: the fetch failed; ` + "`message`" + ` says why and ` + "`can_create`" + ` is false.

## Error codes

- ` + "`VALIDATION`" + `: a required field is empty.
- ` + "`UNAUTHENTICATED`" + `: the action needs a signed-in user.
- ` + "`AUTH_FAILED`" + `: the identity provider rejected the request.
- ` + "`FEDERATED_FAILED`" + `: Google sign-in failed or was canceled.
- ` + "`STORAGE`" + `: the record store failed.
- ` + "`TRIP_NOT_FOUND`" + `: the key is not in the displayed list.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
