package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleveque/webacquire/internal/model"
)

func TestSearchOptions_Request(t *testing.T) {
	opts := searchOptions{country: "de", num: 30, numSet: true, start: 0, searchType: "news"}

	req := opts.request([]string{"golang"})

	require.NotNil(t, req.Search)
	assert.Equal(t, model.ActionSearch, req.Action)
	assert.True(t, req.Search.Query.Scalar)
	require.NotNil(t, req.Search.Num)
	assert.Equal(t, 30, *req.Search.Num)
	assert.Nil(t, req.Search.Start, "unset --start must not be sent")
	assert.Equal(t, "news", req.Search.Type)
}

func TestFetchOptions_Request(t *testing.T) {
	req := fetchOptions{markdown: true}.request([]string{"https://a.example", "https://b.example"})

	require.NotNil(t, req.Fetch)
	assert.False(t, req.Fetch.URL.Scalar)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, req.Fetch.URL.Items)
	assert.True(t, req.Fetch.Markdown)
}

// runCLI executes the command tree against a fake proxy in a scratch
// directory, so the default ledger path lands there.
func runCLI(t *testing.T, proxy http.HandlerFunc, args ...string) (string, error) {
	t.Helper()
	srv := httptest.NewServer(proxy)
	t.Cleanup(srv.Close)

	t.Chdir(t.TempDir())
	t.Setenv("WEBACQUIRE_PROXY_ENDPOINT", srv.URL)
	t.Setenv("WEBACQUIRE_PROXY_UNLOCKER_API_KEY", "unlocker-key")
	t.Setenv("WEBACQUIRE_CONFIG_PATH", "")

	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFetchCommand_PrintsEnvelope(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, "fetch", "https://api.example/data")
	require.NoError(t, err)

	var env model.Envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env))
	assert.True(t, env.Success)
	require.NotNil(t, env.Result)
	assert.JSONEq(t, `{"ok":true}`, env.Result.Content)
}

func TestFetchCommand_FailureSetsExitError(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("blocked"))
	}, "fetch", "https://a.example")

	assert.True(t, errors.Is(err, errCallFailed))
	assert.Contains(t, out, "Web Unlocker API error (403): blocked")
}

func TestStatsCommand(t *testing.T) {
	out, err := runCLI(t, func(w http.ResponseWriter, _ *http.Request) {}, "stats", "--window", "1h")
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.EqualValues(t, 0, body["total"])
	assert.Equal(t, "1h0m0s", body["window"])
}
