package mcpserver

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/model"
)

type recordingAcquirer struct {
	mu   sync.Mutex
	reqs []model.Request
	env  model.Envelope
}

func (r *recordingAcquirer) Execute(_ context.Context, req model.Request, _ model.Settings) model.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	env := r.env
	env.Action = req.Action
	return env
}

func call(t *testing.T, s *Server, tool string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	registered := s.MCP().GetTool(tool)
	require.NotNil(t, registered, "tool %s not registered", tool)

	result, err := registered.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: tool, Arguments: args},
	})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestNew_RegistersTools(t *testing.T) {
	s := New(&recordingAcquirer{}, model.Settings{}, "test", zap.NewNop())

	tools := s.MCP().ListTools()
	assert.Len(t, tools, 3)
	for _, name := range []string{ToolSearch, ToolFetch, ToolDownloadImage} {
		assert.Contains(t, tools, name)
	}

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tools[ToolFetch].Tool.RawInputSchema, &schema))
	assert.Equal(t, []any{"url"}, schema["required"])
}

func TestHandle_SearchKeepsListShape(t *testing.T) {
	acq := &recordingAcquirer{env: model.Envelope{Success: true, TotalQueries: 2}}
	s := New(acq, model.Settings{}, "test", zap.NewNop())
	args := map[string]any{
		"query":       []any{"golang", "rust"},
		"country":     "us",
		"num":         float64(20),
		"search_type": "news",
	}

	result := call(t, s, ToolSearch, args)

	assert.False(t, result.IsError)
	require.Len(t, acq.reqs, 1)
	got := acq.reqs[0]
	assert.Equal(t, model.ActionSearch, got.Action)
	require.NotNil(t, got.Search)
	assert.Equal(t, []string{"golang", "rust"}, got.Search.Query.Items)
	assert.False(t, got.Search.Query.Scalar)
	require.NotNil(t, got.Search.Num)
	assert.Equal(t, 20, *got.Search.Num)
	assert.Equal(t, "news", got.Search.Type)
	assert.NotContains(t, args, "action", "caller's arguments must not be modified")

	assert.Contains(t, text(t, result), `"total_queries":2`)
}

func TestHandle_FetchScalar(t *testing.T) {
	acq := &recordingAcquirer{env: model.Envelope{Success: true}}
	s := New(acq, model.Settings{}, "test", zap.NewNop())

	call(t, s, ToolFetch, map[string]any{"url": "https://example.com", "markdown": true})

	require.Len(t, acq.reqs, 1)
	require.NotNil(t, acq.reqs[0].Fetch)
	assert.True(t, acq.reqs[0].Fetch.URL.Scalar)
	assert.True(t, acq.reqs[0].Fetch.Markdown)
}

func TestHandle_FailedEnvelopeIsToolError(t *testing.T) {
	acq := &recordingAcquirer{env: model.Envelope{Success: false, Error: "Invalid URL provided"}}
	s := New(acq, model.Settings{}, "test", zap.NewNop())

	result := call(t, s, ToolDownloadImage, map[string]any{"url": "ftp://nope"})

	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "Invalid URL provided")
	assert.Equal(t, model.ActionDownloadImage, acq.reqs[0].Action)
}

func TestHandle_BadArgumentTypes(t *testing.T) {
	acq := &recordingAcquirer{}
	s := New(acq, model.Settings{}, "test", zap.NewNop())

	result := call(t, s, ToolFetch, map[string]any{"url": float64(42)})

	assert.True(t, result.IsError)
	assert.Contains(t, text(t, result), "invalid arguments")
	assert.Empty(t, acq.reqs)
}
