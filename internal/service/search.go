package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/content"
	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/provider"
	"github.com/fleveque/webacquire/internal/search"
)

func (s *AcquireService) search(ctx context.Context, req *model.SearchRequest, settings model.Settings) model.Envelope {
	action := model.ActionSearch

	if env := checkAccess(action, settings.SerpAPIKey, provider.LabelSERP, settings); env != nil {
		return *env
	}
	if req == nil || req.Query.IsZero() {
		return missing(action, "query")
	}
	if req.Query.Scalar && strings.TrimSpace(req.Query.Items[0]) == "" {
		return missing(action, "query")
	}

	queries, truncated := req.Query.Truncate(s.limits.MaxQueries)
	n := len(queries.Items)
	s.metrics.ObserveFanout(string(action), n)

	params := search.Params{
		CountryCode:   req.Country,
		LanguageCode:  req.Language,
		ResultCount:   req.Num,
		StartOffset:   req.Start,
		Vertical:      req.Type,
		TimeRange:     req.TimeRange,
		VerticalBoost: req.UDM,
	}

	// Dispatching
	fetched := make([]model.FetchOutcome, n)
	s.fanOut(n, func(i int) {
		q := strings.TrimSpace(queries.Items[i])
		if q == "" {
			fetched[i] = model.FetchOutcome{Item: q, Index: i, Error: "query must not be empty"}
			return
		}

		out := s.fetcher.Fetch(ctx, provider.ProxyRequest{
			URL:        s.searchURLs.Build(q, params),
			Credential: settings.SerpAPIKey,
			Zone:       settings.SerpZone,
			Label:      provider.LabelSERP,
		})
		out.Item = q
		out.Index = i
		fetched[i] = out
	})

	// Collecting: every results page goes to extraction.
	ex := s.extractors.For(settings.Extraction)
	items := make([]model.ItemResult, n)
	var queue []pendingExtraction

	for i, out := range fetched {
		items[i] = model.ItemResult{Index: i, Query: out.Item}
		if !out.Success {
			items[i].Error = out.Error
			s.logger.Warn("search fetch failed",
				zap.String("query", out.Item),
				zap.Int("index", i),
				zap.String("error", out.Error),
			)
			continue
		}

		items[i].Success = true
		items[i].ContentType = model.ContentHTML
		if ex.Enabled() {
			queue = append(queue, pendingExtraction{
				index: i,
				text:  content.ExtractBody(string(out.Payload)),
				hint:  model.ExtractionHint{Query: out.Item, Context: req.Context},
			})
		} else {
			items[i].Title, items[i].Content = content.Readable(string(out.Payload))
		}
	}

	// Extracting
	extracted := s.runExtractions(ctx, ex, model.KindSearchResults, queue)

	// Assembling
	for i, exOut := range extracted {
		item := &items[i]
		if exOut.Success {
			parsed, err := model.DecodeSearch(exOut.Data)
			if err == nil {
				item.Hits = parsed.Results
				item.Extracted = true
				item.Provider = exOut.Provider
				continue
			}
			exOut.Error = "decoding extraction output: " + err.Error()
		}
		item.ExtractionError = exOut.Error
		item.Title, item.Content = content.Readable(string(fetched[i].Payload))
	}

	if !queries.Scalar {
		dedupeHits(items)
	}

	return assemble(action, queries.Scalar, items, truncated, search.LocaleHints(req.Country, req.Language))
}

// dedupeHits drops hits whose canonical URL already appeared, walking items
// in input order so the first-seen occurrence wins regardless of which
// branch finished first.
func dedupeHits(items []model.ItemResult) {
	seen := make(map[string]bool)
	for i := range items {
		if len(items[i].Hits) == 0 {
			continue
		}
		kept := items[i].Hits[:0]
		for _, hit := range items[i].Hits {
			key := model.CanonicalURL(hit.URL)
			if key != "" && seen[key] {
				continue
			}
			seen[key] = true
			kept = append(kept, hit)
		}
		items[i].Hits = kept
	}
}
