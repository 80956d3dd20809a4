package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fleveque/webacquire/internal/content"
	"github.com/fleveque/webacquire/internal/llm"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/requestid"
	"github.com/fleveque/webacquire/internal/storage"
)

const (
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-haiku-4-5"
)

// ExtractionConfig holds the knobs shared by every extraction call.
type ExtractionConfig struct {
	RatePerMinute  int           // 0 disables the outbound throttle
	Timeout        time.Duration // per-provider attempt
	MaxTokens      int           // output budget
	Temperature    float64
	MaxInputTokens int    // input budget; 0 disables truncation
	Encoding       string // tiktoken encoding for the input budget
}

// ExtractionChain tries extraction clients in configured order. The first
// success wins; failures fall through to the next client.
type ExtractionChain struct {
	clients []llm.Client // first is primary, rest are fallbacks
	limiter *rate.Limiter
	cfg     ExtractionConfig
	budget  *content.TokenBudget
	calls   storage.CallRepository
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Enabled reports whether any client is configured.
func (c *ExtractionChain) Enabled() bool {
	return c != nil && len(c.clients) > 0
}

// Extract sends content to each client in order until one returns JSON that
// decodes into the kind's shape. It never returns an error.
func (c *ExtractionChain) Extract(ctx context.Context, kind model.ExtractionKind, text string, hint model.ExtractionHint) model.ExtractionOutcome {
	out := model.ExtractionOutcome{Item: hint.URL}
	if kind == model.KindSearchResults {
		out.Item = hint.Query
	}

	if !c.Enabled() {
		out.Error = "no extraction provider configured"
		return out
	}

	fitted, truncated := c.budget.Fit(text)
	if truncated {
		c.logger.Debug("extraction input truncated to token budget",
			zap.String("item", out.Item),
			zap.Int("max_input_tokens", c.cfg.MaxInputTokens),
		)
	}

	name, schema := llm.SchemaFor(kind)
	req := llm.Request{
		Prompt:      llm.BuildPrompt(kind, fitted, hint),
		SchemaName:  name,
		Schema:      schema,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}

	var failures []string
	for i, client := range c.clients {
		// Blocks until a token is available or ctx is cancelled.
		if err := c.limiter.Wait(ctx); err != nil {
			failures = append(failures, fmt.Sprintf("rate limit wait: %v", err))
			break
		}

		data, err := c.try(ctx, client, kind, req, out.Item)
		if err == nil {
			out.Success = true
			out.Data = data
			out.Provider = client.ProviderName()
			return out
		}

		failures = append(failures, fmt.Sprintf("%s: %v", client.ProviderName(), err))
		if i < len(c.clients)-1 {
			c.logger.Warn("extraction provider failed, trying next",
				zap.String("item", out.Item),
				zap.String("provider", client.ProviderName()),
				zap.Error(err),
			)
		}
	}

	out.Error = "extraction failed: " + strings.Join(failures, "; ")
	return out
}

func (c *ExtractionChain) try(ctx context.Context, client llm.Client, kind model.ExtractionKind, req llm.Request, item string) (json.RawMessage, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	data, err := client.Extract(attemptCtx, req)
	if err == nil {
		err = checkShape(kind, data)
	}
	duration := time.Since(start)

	if errors.Is(err, context.DeadlineExceeded) {
		err = eris.Errorf("timed out after %s", c.cfg.Timeout)
	}

	c.metrics.ObserveExtraction(client.ProviderName(), err == nil, duration)
	c.record(ctx, client, item, err, duration)

	return data, err
}

// checkShape only confirms the output decodes into the expected Go type;
// field-level schema enforcement is left to the endpoint.
func checkShape(kind model.ExtractionKind, data json.RawMessage) error {
	var err error
	if kind == model.KindSearchResults {
		_, err = model.DecodeSearch(data)
	} else {
		_, err = model.DecodePage(data)
	}
	if err != nil {
		return eris.Wrap(err, "output does not match schema")
	}
	return nil
}

func (c *ExtractionChain) record(ctx context.Context, client llm.Client, item string, callErr error, d time.Duration) {
	if c.calls == nil {
		return
	}

	ms := d.Milliseconds()
	call := &model.CallRecord{
		RequestID:  requestid.From(ctx),
		Kind:       model.CallExtraction,
		Target:     item,
		Provider:   client.ProviderName(),
		Model:      client.ModelName(),
		Success:    callErr == nil,
		DurationMs: &ms,
	}
	if callErr != nil {
		msg := callErr.Error()
		call.ErrorMessage = &msg
	}

	if err := c.calls.Create(context.WithoutCancel(ctx), call); err != nil {
		c.logger.Error("recording extraction call", zap.Error(err))
	}
}

// ExtractorFactory builds an ExtractionChain per invocation while sharing the
// outbound limiter, token budget and ledger across all of them.
type ExtractorFactory struct {
	cfg        ExtractionConfig
	limiter    *rate.Limiter
	budget     *content.TokenBudget
	httpClient *http.Client
	calls      storage.CallRepository
	metrics    *metrics.Metrics
	logger     *zap.Logger

	// newClients is swapped in tests to inject fake clients.
	newClients func(model.ExtractionSettings) []llm.Client
}

// NewExtractorFactory creates a factory. calls and m may be nil.
func NewExtractorFactory(cfg ExtractionConfig, calls storage.CallRepository, m *metrics.Metrics, logger *zap.Logger) *ExtractorFactory {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}

	// rate.Every converts "one event per interval" to a rate.Limit.
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RatePerMinute))
	}

	f := &ExtractorFactory{
		cfg:        cfg,
		limiter:    rate.NewLimiter(limit, 1),
		budget:     content.NewTokenBudget(cfg.Encoding, cfg.MaxInputTokens),
		httpClient: &http.Client{},
		calls:      calls,
		metrics:    m,
		logger:     logger,
	}
	f.newClients = f.buildClients
	return f
}

// For returns the chain for one invocation's settings. The provider order is
// settings-driven, so swapping priority is a config change, not a code change.
func (f *ExtractorFactory) For(settings model.ExtractionSettings) Extractor {
	return &ExtractionChain{
		clients: f.newClients(settings),
		limiter: f.limiter,
		cfg:     f.cfg,
		budget:  f.budget,
		calls:   f.calls,
		metrics: f.metrics,
		logger:  f.logger,
	}
}

func (f *ExtractorFactory) buildClients(s model.ExtractionSettings) []llm.Client {
	order := s.ProviderOrder
	if len(order) == 0 {
		order = []string{"openai", "anthropic"}
	}

	var clients []llm.Client
	seen := make(map[string]bool)
	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "openai":
			if s.OpenAIKey == "" {
				continue
			}
			modelName := s.OpenAIModel
			if modelName == "" {
				modelName = DefaultOpenAIModel
			}
			clients = append(clients, llm.NewOpenAIClient(s.OpenAIKey, modelName, s.OpenAIBaseURL, f.httpClient))
		case "anthropic":
			if s.AnthropicKey == "" {
				continue
			}
			modelName := s.AnthropicModel
			if modelName == "" {
				modelName = DefaultAnthropicModel
			}
			clients = append(clients, llm.NewAnthropicClient(s.AnthropicKey, modelName, s.AnthropicBaseURL, f.httpClient))
		default:
			f.logger.Warn("unknown extraction provider in provider_order", zap.String("provider", name))
		}
	}
	return clients
}
