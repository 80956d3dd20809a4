package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// stringOrList is the schema for fields that accept one value or many. The
// response mirrors the shape the agent sent.
func stringOrList(description string, maxItems int) map[string]any {
	return map[string]any{
		"description": description,
		"oneOf": []any{
			map[string]any{"type": "string"},
			map[string]any{
				"type":     "array",
				"items":    map[string]any{"type": "string"},
				"minItems": 1,
				"maxItems": maxItems,
			},
		},
	}
}

func rawSchema(properties map[string]any, required ...string) json.RawMessage {
	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
	raw, _ := json.Marshal(schema)
	return raw
}

func searchTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		ToolSearch,
		"Search the web through the SERP proxy. Pass a list of queries to run them in parallel; "+
			"results come back in the same order with duplicate URLs removed.",
		rawSchema(map[string]any{
			"query":       stringOrList("Search query, or a list of up to 20 queries.", 20),
			"country":     map[string]any{"type": "string", "description": "Two-letter country code, e.g. us."},
			"language":    map[string]any{"type": "string", "description": "Two-letter language code, e.g. en."},
			"num":         map[string]any{"type": "integer", "description": "Results per page: 10, 20, ... 100."},
			"start":       map[string]any{"type": "integer", "description": "Result offset for paging."},
			"search_type": map[string]any{"type": "string", "enum": []string{"web", "news", "images", "videos", "shopping", "scholar"}},
			"time_range":  map[string]any{"type": "string", "description": "hour, day, week, month, year, or a raw tbs expression."},
			"udm":         map[string]any{"type": "string", "description": "Raw vertical override passed through as udm=."},
			"context":     map[string]any{"type": "string", "description": "What you are looking for; steers extraction relevance."},
		}, "query"),
	)
}

func fetchTool() mcp.Tool {
	return mcp.NewToolWithRawSchema(
		ToolFetch,
		"Fetch web pages through the unblocker and return their main content. "+
			"Pass a list of URLs to fetch them in parallel.",
		rawSchema(map[string]any{
			"url":      stringOrList("http(s) URL, or a list of up to 150 URLs.", 150),
			"context":  map[string]any{"type": "string", "description": "What you need from the page; steers extraction."},
			"markdown": map[string]any{"type": "boolean", "description": "Ask the unblocker for markdown instead of raw HTML."},
		}, "url"),
	)
}

func downloadImageTool() mcp.Tool {
	return mcp.NewTool(
		ToolDownloadImage,
		mcp.WithDescription("Download one image and return it base64-encoded, downscaled if very large."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL of the image.")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}
