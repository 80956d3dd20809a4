package llm

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements Client against any OpenAI-compatible chat-completion
// endpoint, using response_format=json_schema with strict=true.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client. baseURL may be empty for api.openai.com;
// httpClient may be nil for the library default.
func NewOpenAIClient(apiKey, model, baseURL string, httpClient *http.Client) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (o *OpenAIClient) ProviderName() string { return "openai" }
func (o *OpenAIClient) ModelName() string    { return o.model }

func (o *OpenAIClient) Extract(ctx context.Context, req Request) (json.RawMessage, error) {
	schema, err := json.Marshal(req.Schema)
	if err != nil {
		return nil, eris.Wrap(err, "openai: marshaling schema")
	}

	// go-openai drops a zero temperature (omitempty); the smallest non-zero
	// float32 is how the library documents sending an effective 0.
	temperature := float32(req.Temperature)
	if temperature == 0 {
		temperature = math.SmallestNonzeroFloat32
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   req.SchemaName,
				Schema: json.RawMessage(schema),
				Strict: true,
			},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: temperature,
	})
	if err != nil {
		return nil, eris.Wrap(err, "openai: chat completion")
	}

	if len(resp.Choices) == 0 {
		return nil, eris.New("openai: response has no choices")
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if out == "" {
		if refusal := resp.Choices[0].Message.Refusal; refusal != "" {
			return nil, eris.Errorf("openai: model refused: %s", refusal)
		}
		return nil, eris.New("openai: empty response content")
	}

	if !json.Valid([]byte(out)) {
		return nil, eris.Errorf("openai: model output is not valid JSON: %.200s", out)
	}

	return json.RawMessage(out), nil
}
