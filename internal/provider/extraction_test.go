package provider

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/llm"
	"github.com/fleveque/webacquire/internal/model"
)

// fakeClient implements llm.Client with a canned answer.
type fakeClient struct {
	name   string
	out    string
	err    error
	delay  time.Duration
	calls  atomic.Int32
	prompt atomic.Value
}

func (f *fakeClient) Extract(ctx context.Context, req llm.Request) (json.RawMessage, error) {
	f.calls.Add(1)
	f.prompt.Store(req.Prompt)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.out), nil
}

func (f *fakeClient) ProviderName() string { return f.name }
func (f *fakeClient) ModelName() string    { return f.name + "-model" }

func newTestFactory(cfg ExtractionConfig, clients ...llm.Client) (*ExtractorFactory, *memLedger) {
	ledger := &memLedger{}
	f := NewExtractorFactory(cfg, ledger, nil, zap.NewNop())
	f.newClients = func(model.ExtractionSettings) []llm.Client { return clients }
	return f, ledger
}

const pageJSON = `{"title":"T","content":"body","follow_up_queries":["next"]}`

func TestExtractionChain_PrimarySucceeds(t *testing.T) {
	primary := &fakeClient{name: "openai", out: pageJSON}
	fallback := &fakeClient{name: "anthropic", out: pageJSON}
	f, ledger := newTestFactory(ExtractionConfig{}, primary, fallback)

	out := f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindPageContent, "<p>x</p>",
		model.ExtractionHint{URL: "https://a.com"})

	require.True(t, out.Success, out.Error)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, "https://a.com", out.Item)
	assert.Equal(t, int32(0), fallback.calls.Load())
	assert.Len(t, ledger.records, 1)
}

func TestExtractionChain_FallsBack(t *testing.T) {
	primary := &fakeClient{name: "openai", err: errors.New("upstream 500")}
	fallback := &fakeClient{name: "anthropic", out: pageJSON}
	f, ledger := newTestFactory(ExtractionConfig{}, primary, fallback)

	out := f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindPageContent, "x", model.ExtractionHint{})

	require.True(t, out.Success)
	assert.Equal(t, "anthropic", out.Provider)
	require.Len(t, ledger.records, 2)
	assert.False(t, ledger.records[0].Success)
	assert.True(t, ledger.records[1].Success)
}

func TestExtractionChain_ShapeMismatchFallsThrough(t *testing.T) {
	primary := &fakeClient{name: "openai", out: `{"results":"not a list"}`}
	f, _ := newTestFactory(ExtractionConfig{}, primary)

	out := f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindSearchResults, "x",
		model.ExtractionHint{Query: "q"})

	assert.False(t, out.Success)
	assert.Equal(t, "q", out.Item)
	assert.Contains(t, out.Error, "does not match schema")
}

func TestExtractionChain_AllFail(t *testing.T) {
	f, _ := newTestFactory(ExtractionConfig{},
		&fakeClient{name: "openai", err: errors.New("first")},
		&fakeClient{name: "anthropic", err: errors.New("second")},
	)

	out := f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindPageContent, "x", model.ExtractionHint{})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "openai: first")
	assert.Contains(t, out.Error, "anthropic: second")
}

func TestExtractionChain_Timeout(t *testing.T) {
	slow := &fakeClient{name: "openai", out: pageJSON, delay: time.Second}
	f, _ := newTestFactory(ExtractionConfig{Timeout: 20 * time.Millisecond}, slow)

	out := f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindPageContent, "x", model.ExtractionHint{})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "timed out")
}

func TestExtractionChain_Disabled(t *testing.T) {
	f, _ := newTestFactory(ExtractionConfig{})

	ex := f.For(model.ExtractionSettings{})
	assert.False(t, ex.Enabled())

	out := ex.Extract(context.Background(), model.KindPageContent, "x", model.ExtractionHint{})
	assert.False(t, out.Success)
	assert.Equal(t, "no extraction provider configured", out.Error)
}

func TestExtractionChain_InputBudget(t *testing.T) {
	client := &fakeClient{name: "openai", out: pageJSON}
	// An unknown encoding falls back to the four-chars-per-token estimate.
	f, _ := newTestFactory(ExtractionConfig{MaxInputTokens: 2, Encoding: "no-such-encoding"}, client)

	f.For(model.ExtractionSettings{}).Extract(context.Background(), model.KindPageContent, "abcdefghijklmnop", model.ExtractionHint{})

	prompt := client.prompt.Load().(string)
	assert.Contains(t, prompt, "abcdefgh")
	assert.NotContains(t, prompt, "abcdefghi")
}

func TestExtractorFactory_BuildClients(t *testing.T) {
	f := NewExtractorFactory(ExtractionConfig{}, nil, nil, zap.NewNop())

	clients := f.buildClients(model.ExtractionSettings{
		ProviderOrder: []string{"anthropic", "openai", "openai", "bogus"},
		OpenAIKey:     "sk",
		AnthropicKey:  "ak",
	})
	require.Len(t, clients, 2)
	assert.Equal(t, "anthropic", clients[0].ProviderName())
	assert.Equal(t, DefaultAnthropicModel, clients[0].ModelName())
	assert.Equal(t, "openai", clients[1].ProviderName())
	assert.Equal(t, DefaultOpenAIModel, clients[1].ModelName())

	// Providers without a key are skipped.
	clients = f.buildClients(model.ExtractionSettings{OpenAIKey: "sk"})
	require.Len(t, clients, 1)
	assert.Equal(t, "openai", clients[0].ProviderName())

	assert.Empty(t, f.buildClients(model.ExtractionSettings{}))
}
