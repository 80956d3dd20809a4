// Package mcpserver exposes the acquire actions as MCP tools so agents can
// call them over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"maps"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/model"
)

// Acquirer runs one acquire call.
type Acquirer interface {
	Execute(ctx context.Context, req model.Request, settings model.Settings) model.Envelope
}

const (
	ToolSearch        = "search_web"
	ToolFetch         = "fetch_webpage"
	ToolDownloadImage = "download_image"
)

// Server holds the MCP server and what its tool handlers need.
type Server struct {
	acquirer Acquirer
	settings model.Settings
	logger   *zap.Logger
	mcp      *server.MCPServer
}

// New builds an MCP server with the three tools registered.
func New(acquirer Acquirer, settings model.Settings, version string, logger *zap.Logger) *Server {
	s := &Server{
		acquirer: acquirer,
		settings: settings,
		logger:   logger,
		mcp: server.NewMCPServer(
			"webacquire",
			version,
			server.WithToolCapabilities(false),
			server.WithRecovery(),
		),
	}

	s.mcp.AddTool(searchTool(), s.handle(model.ActionSearch))
	s.mcp.AddTool(fetchTool(), s.handle(model.ActionFetch))
	s.mcp.AddTool(downloadImageTool(), s.handle(model.ActionDownloadImage))
	return s
}

// MCP returns the underlying server, mainly for tests.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve speaks MCP over the given streams until ctx is cancelled or stdin
// closes. Protocol errors go to the zap logger since stdout carries the
// protocol itself.
func (s *Server) Serve(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	if err := stdio.Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return eris.Wrap(err, "serving mcp over stdio")
	}
	return nil
}

// handle turns tool arguments into a flat acquire request. The arguments
// already have the wire shape, so a JSON round trip plus the action field is
// all the decoding needed; scalar vs list is preserved.
func (s *Server) handle(action model.Action) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := maps.Clone(req.GetArguments())
		if args == nil {
			args = map[string]any{}
		}
		args["action"] = string(action)

		raw, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError("encoding arguments: " + err.Error()), nil
		}

		var acquireReq model.Request
		if err := json.Unmarshal(raw, &acquireReq); err != nil {
			s.logger.Debug("rejecting tool arguments", zap.String("tool", req.Params.Name), zap.Error(err))
			return mcp.NewToolResultError("invalid arguments: " + err.Error()), nil
		}

		env := s.acquirer.Execute(ctx, acquireReq, s.settings)

		result, err := mcp.NewToolResultJSON(env)
		if err != nil {
			s.logger.Error("encoding envelope", zap.String("tool", req.Params.Name), zap.Error(err))
			return mcp.NewToolResultError("failed to encode response"), nil
		}
		// The envelope still goes back on failure: per-item results and
		// warnings are useful to the agent even when the call failed.
		result.IsError = !env.Success
		return result, nil
	}
}
