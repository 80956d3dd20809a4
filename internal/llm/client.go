// Package llm provides a provider-agnostic interface for schema-constrained
// extraction. A client sends one prompt plus a JSON Schema and returns the
// model's JSON object as-is; schema enforcement is left to the endpoint.
package llm

import (
	"context"
	"encoding/json"
)

// Request is one extraction call.
type Request struct {
	Prompt      string
	SchemaName  string
	Schema      map[string]any
	MaxTokens   int
	Temperature float64
}

// Client is the interface for extraction back ends. Both the OpenAI-compatible
// client and Anthropic implement it, so the provider chain can fall back from
// one to the other.
//
// Go interface design tip: keep interfaces small. The bigger the interface,
// the weaker the abstraction.
type Client interface {
	Extract(ctx context.Context, req Request) (json.RawMessage, error)
	ProviderName() string
	ModelName() string
}
