package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/trips/internal/domain/session"
)

// toolCallLogging logs one line per tool call with the tool name and the
// user signed in once the call returns. Arguments and results are only
// logged at debug level since they carry passwords and trip data.
func toolCallLogging(logger *slog.Logger, current func() *session.Session) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || method != "tools/call" {
				return next(ctx, method, req)
			}

			params, _ := safeParams(req).(*sdkmcp.CallToolParamsRaw)
			tool := ""
			if params != nil {
				tool = params.Name
			}

			start := time.Now()
			res, err := next(ctx, method, req)

			attrs := []any{
				"tool", tool,
				"user_id", userID(current),
				"session_id", safeSessionID(req),
				"duration", time.Since(start),
			}
			if code := failureCode(res, err); code != "" {
				logger.Warn("tool call failed", append(attrs, "code", code)...)
			} else {
				logger.Info("tool call", attrs...)
			}

			if logger.Enabled(ctx, slog.LevelDebug) {
				var args json.RawMessage
				if params != nil && tool != "sign_in" && tool != "sign_up" {
					args = params.Arguments
				}
				logger.Debug("tool call payload", "tool", tool, "arguments", formatPayload(args), "result", formatPayload(res))
			}
			return res, err
		}
	}
}

func userID(current func() *session.Session) string {
	if current == nil {
		return ""
	}
	if sess := current(); sess != nil {
		return sess.UserID
	}
	return ""
}

// failureCode returns the APIError code of a failed call, "ERROR" when the
// failure carries none, or "" on success.
func failureCode(res sdkmcp.Result, err error) string {
	if err != nil {
		return "ERROR"
	}
	ctr, ok := res.(*sdkmcp.CallToolResult)
	if !ok || ctr == nil || !ctr.IsError {
		return ""
	}
	for _, c := range ctr.Content {
		text, ok := c.(*sdkmcp.TextContent)
		if !ok {
			continue
		}
		if code, _, found := strings.Cut(text.Text, ":"); found && code == strings.ToUpper(code) && !strings.Contains(code, " ") {
			return code
		}
	}
	return "ERROR"
}

func safeSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	ss := req.GetSession()
	if ss == nil {
		return ""
	}
	return ss.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	if raw, ok := payload.(json.RawMessage); ok {
		if len(raw) == 0 {
			return "<nil>"
		}
		return string(raw)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(data)
}
