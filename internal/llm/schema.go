package llm

import "github.com/fleveque/webacquire/internal/model"

// Schemas follow the strict structured-output rules: every object sets
// additionalProperties=false and lists all of its properties as required;
// optional values are expressed as nullable types instead.

func searchResultsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type":        "array",
				"description": "Organic search results in the order they appear on the page.",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"source":  map[string]any{"type": "string", "description": "Name of the site or publisher."},
						"title":   map[string]any{"type": "string", "description": "Result title as shown."},
						"excerpt": map[string]any{"type": "string", "description": "Snippet text shown under the title."},
						"url":     map[string]any{"type": "string", "description": "Canonical destination URL of the result."},
					},
					"required":             []string{"source", "title", "excerpt", "url"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"results"},
		"additionalProperties": false,
	}
}

func pageContentSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        []string{"string", "null"},
				"description": "Page title, or null if the page has none.",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Main body text with markup stripped, keeping <pre> and <code> blocks intact.",
			},
			"follow_up_queries": map[string]any{
				"type":        "array",
				"description": "Between 1 and 5 research queries that would deepen understanding of the page.",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required":             []string{"title", "content", "follow_up_queries"},
		"additionalProperties": false,
	}
}

// SchemaFor returns the schema name and body used for an extraction kind.
func SchemaFor(kind model.ExtractionKind) (string, map[string]any) {
	if kind == model.KindSearchResults {
		return "search_results", searchResultsSchema()
	}
	return "page_content", pageContentSchema()
}
