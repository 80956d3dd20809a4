// Package provider holds the two outbound collaborators of an acquire call:
// the proxy client that fetches raw bytes through the unblocker, and the
// extraction chain that turns fetched content into structured JSON.
//
// Both return tagged outcomes instead of errors. One item failing must never
// abort its siblings, so failure is data here, not control flow.
package provider

import (
	"context"

	"github.com/fleveque/webacquire/internal/model"
)

// Product labels used in failure messages, e.g. "SERP API error (502): ...".
const (
	LabelSERP     = "SERP API"
	LabelUnlocker = "Web Unlocker API"
)

// ProxyRequest is one call to the proxy endpoint.
type ProxyRequest struct {
	URL        string // target URL the proxy should retrieve
	Credential string // bearer key for the proxy account
	Zone       string // proxy zone, selects SERP vs unblocker product
	Markdown   bool   // ask the proxy to convert the page to markdown
	Label      string // product name used in failure messages
}

// Fetcher retrieves a target through the proxy.
type Fetcher interface {
	Fetch(ctx context.Context, req ProxyRequest) model.FetchOutcome
}

// Extractor runs schema-constrained extraction over fetched content.
type Extractor interface {
	// Enabled reports whether any back end is configured. When false the
	// orchestrator skips extraction and returns fallback text.
	Enabled() bool
	Extract(ctx context.Context, kind model.ExtractionKind, content string, hint model.ExtractionHint) model.ExtractionOutcome
}

// ExtractorSource builds an Extractor for one invocation's settings.
// Credentials are per-invocation, so extractors are too.
type ExtractorSource interface {
	For(settings model.ExtractionSettings) Extractor
}
