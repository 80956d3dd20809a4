package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/content"
	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/provider"
)

func (s *AcquireService) fetch(ctx context.Context, req *model.FetchRequest, settings model.Settings) model.Envelope {
	action := model.ActionFetch

	if env := checkAccess(action, settings.UnlockerAPIKey, provider.LabelUnlocker, settings); env != nil {
		return *env
	}
	if req == nil || req.URL.IsZero() {
		return missing(action, "url")
	}
	// A malformed scalar URL fails the call; in a list it fails only its item.
	if req.URL.Scalar {
		if err := model.ValidateURL(req.URL.Items[0]); err != nil {
			return model.Failed(action, err.Error())
		}
	}

	urls, truncated := req.URL.Truncate(s.limits.MaxURLs)
	n := len(urls.Items)
	s.metrics.ObserveFanout(string(action), n)

	// Dispatching
	fetched := make([]model.FetchOutcome, n)
	s.fanOut(n, func(i int) {
		u := strings.TrimSpace(urls.Items[i])
		if err := model.ValidateURL(u); err != nil {
			fetched[i] = model.FetchOutcome{Item: u, Index: i, Error: err.Error()}
			return
		}

		out := s.fetcher.Fetch(ctx, provider.ProxyRequest{
			URL:        u,
			Credential: settings.UnlockerAPIKey,
			Zone:       settings.UnlockerZone,
			Markdown:   req.Markdown,
			Label:      provider.LabelUnlocker,
		})
		out.Item = u
		out.Index = i
		fetched[i] = out
	})

	// Collecting: classify, pass through non-HTML, queue HTML.
	ex := s.extractors.For(settings.Extraction)
	items := make([]model.ItemResult, n)
	var queue []pendingExtraction

	for i, out := range fetched {
		items[i] = model.ItemResult{Index: i, URL: out.Item}
		if !out.Success {
			items[i].Error = out.Error
			s.logger.Warn("fetch failed",
				zap.String("url", out.Item),
				zap.Int("index", i),
				zap.String("error", out.Error),
			)
			continue
		}

		items[i].ContentType = out.Classified
		switch out.Classified {
		case model.ContentUnsupported:
			items[i].Error = unsupportedMessage(out.ContentTypeHeader)
		case model.ContentHTML:
			items[i].Success = true
			if ex.Enabled() {
				queue = append(queue, pendingExtraction{
					index: i,
					text:  content.ExtractBody(string(out.Payload)),
					hint:  model.ExtractionHint{URL: out.Item, Context: req.Context},
				})
			} else {
				items[i].Title, items[i].Content = content.Readable(string(out.Payload))
			}
		default:
			items[i].Success = true
			items[i].Content = string(out.Payload)
		}
	}

	// Extracting
	extracted := s.runExtractions(ctx, ex, model.KindPageContent, queue)

	// Assembling: extraction failure keeps the item usable with fallback text.
	for i, exOut := range extracted {
		item := &items[i]
		if exOut.Success {
			page, err := model.DecodePage(exOut.Data)
			if err == nil {
				item.Page = page
				item.Extracted = true
				item.Provider = exOut.Provider
				continue
			}
			exOut.Error = "decoding extraction output: " + err.Error()
		}
		item.ExtractionError = exOut.Error
		item.Title, item.Content = content.Readable(string(fetched[i].Payload))
	}

	return assemble(action, urls.Scalar, items, truncated, nil)
}

func (s *AcquireService) downloadImage(ctx context.Context, req *model.ImageRequest, settings model.Settings) model.Envelope {
	action := model.ActionDownloadImage

	if env := checkAccess(action, settings.UnlockerAPIKey, provider.LabelUnlocker, settings); env != nil {
		return *env
	}
	if req == nil || strings.TrimSpace(req.URL) == "" {
		return missing(action, "url")
	}
	u := strings.TrimSpace(req.URL)
	if err := model.ValidateURL(u); err != nil {
		return model.Failed(action, err.Error())
	}
	s.metrics.ObserveFanout(string(action), 1)

	item := model.ItemResult{URL: u}
	out := s.fetcher.Fetch(ctx, provider.ProxyRequest{
		URL:        u,
		Credential: settings.UnlockerAPIKey,
		Zone:       settings.UnlockerZone,
		Label:      provider.LabelUnlocker,
	})

	if !out.Success {
		item.Error = out.Error
		return assemble(action, true, []model.ItemResult{item}, false, nil)
	}

	img, err := s.images.Prepare(out.Payload)
	if err != nil {
		item.Error = err.Error()
		s.logger.Warn("image rejected", zap.String("url", u), zap.Error(err))
		return assemble(action, true, []model.ItemResult{item}, false, nil)
	}

	item.Success = true
	item.Image = img
	return assemble(action, true, []model.ItemResult{item}, false, nil)
}
