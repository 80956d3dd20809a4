package llm

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// extractionTool is the single tool Claude is forced to call. Its input schema
// is the extraction schema, so the tool input is the structured result.
const extractionTool = "record_extraction"

// AnthropicClient implements Client using Claude with a forced tool call.
// Claude has no response_format, so the schema travels as the tool's
// input_schema and tool_choice pins the call.
type AnthropicClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicClient creates a client. baseURL and httpClient are optional.
func NewAnthropicClient(apiKey, model, baseURL string, httpClient *http.Client) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		// Retries are decided by the caller, not the SDK.
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := anthropic.NewClient(opts...)
	return &AnthropicClient{
		client: &client,
		model:  model,
	}
}

func (a *AnthropicClient) ProviderName() string { return "anthropic" }
func (a *AnthropicClient) ModelName() string    { return a.model }

func (a *AnthropicClient) Extract(ctx context.Context, req Request) (json.RawMessage, error) {
	required, _ := req.Schema["required"].([]string)

	tool := anthropic.ToolParam{
		Name:        extractionTool,
		Description: anthropic.String("Record the extracted data. Call this exactly once with the complete result."),
		InputSchema: anthropic.ToolInputSchemaParam{
			Properties: req.Schema["properties"],
			Required:   required,
			ExtraFields: map[string]any{
				"additionalProperties": false,
			},
		},
	}

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Tools:      []anthropic.ToolUnionParam{{OfTool: &tool}},
		ToolChoice: anthropic.ToolChoiceParamOfTool(extractionTool),
	})
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: messages")
	}

	for _, block := range message.Content {
		toolUse, ok := block.AsAny().(anthropic.ToolUseBlock)
		if !ok || toolUse.Name != extractionTool {
			continue
		}
		if len(toolUse.Input) == 0 {
			return nil, eris.New("anthropic: empty tool input")
		}
		if !json.Valid(toolUse.Input) {
			return nil, eris.New("anthropic: tool input is not valid JSON")
		}
		return toolUse.Input, nil
	}

	return nil, eris.Errorf("anthropic: model did not call %s (stop reason %s)", extractionTool, message.StopReason)
}
