// Package service contains the acquisition pipeline. AcquireService fans a
// call out over its items:
//
//	Validating  -> action, credentials, gate, required field, URL syntax
//	Dispatching -> normalize to a list, truncate, one proxy fetch per item
//	Collecting  -> classify payloads, queue HTML for extraction
//	Extracting  -> one extraction per queued item, in parallel
//	Assembling  -> merge by input index, dedupe search hits, unwrap scalars
//
// No item's failure aborts its siblings; only validation problems fail the
// whole call.
package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fleveque/webacquire/internal/content"
	"github.com/fleveque/webacquire/internal/imaging"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/model"
	"github.com/fleveque/webacquire/internal/provider"
	"github.com/fleveque/webacquire/internal/requestid"
	"github.com/fleveque/webacquire/internal/search"
)

const (
	DefaultMaxQueries  = 20
	DefaultMaxURLs     = 150
	DefaultConcurrency = 10
)

// Limits bounds a single call.
type Limits struct {
	MaxQueries  int // search items kept after truncation
	MaxURLs     int // fetch items kept after truncation
	Concurrency int // in-flight network calls per call
}

func (l Limits) withDefaults() Limits {
	if l.MaxQueries <= 0 {
		l.MaxQueries = DefaultMaxQueries
	}
	if l.MaxURLs <= 0 {
		l.MaxURLs = DefaultMaxURLs
	}
	if l.Concurrency <= 0 {
		l.Concurrency = DefaultConcurrency
	}
	return l
}

// AcquireService is the single entry point for search, fetch and
// download_image calls.
type AcquireService struct {
	fetcher    provider.Fetcher
	extractors provider.ExtractorSource
	searchURLs *search.Builder
	images     *imaging.Processor
	limits     Limits
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewAcquireService wires the pipeline. m may be nil.
func NewAcquireService(
	fetcher provider.Fetcher,
	extractors provider.ExtractorSource,
	searchURLs *search.Builder,
	images *imaging.Processor,
	limits Limits,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AcquireService {
	return &AcquireService{
		fetcher:    fetcher,
		extractors: extractors,
		searchURLs: searchURLs,
		images:     images,
		limits:     limits.withDefaults(),
		metrics:    m,
		logger:     logger,
	}
}

// Execute runs one call and always returns an envelope. Panics are recovered
// and reported as "Unexpected error: ...".
//
// Go note: a named return lets the deferred recover replace the result after
// the panic unwinds the stack.
func (s *AcquireService) Execute(ctx context.Context, req model.Request, settings model.Settings) (env model.Envelope) {
	ctx, id := requestid.Ensure(ctx)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during acquire",
				zap.String("request_id", id),
				zap.String("action", string(req.Action)),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			env = model.Failed(req.Action, fmt.Sprintf("Unexpected error: %v", r))
			env.RequestID = id
		}
	}()

	env = s.execute(ctx, req, settings)
	env.RequestID = id

	s.logger.Info("acquire complete",
		zap.String("request_id", id),
		zap.String("action", string(req.Action)),
		zap.Bool("success", env.Success),
		zap.Int("total_queries", env.TotalQueries),
		zap.Int("total_urls", env.TotalURLs),
	)
	return env
}

func (s *AcquireService) execute(ctx context.Context, req model.Request, settings model.Settings) model.Envelope {
	switch req.Action {
	case model.ActionSearch:
		return s.search(ctx, req.Search, settings)
	case model.ActionFetch:
		return s.fetch(ctx, req.Fetch, settings)
	case model.ActionDownloadImage:
		return s.downloadImage(ctx, req.Image, settings)
	default:
		return model.Failed(req.Action, fmt.Sprintf(
			"Invalid action %q. Supported actions: search, fetch, download_image", req.Action))
	}
}

// checkAccess validates the credential for the product an action uses and the
// automation gate. Nothing has touched the network yet when this fails.
func checkAccess(action model.Action, credential, product string, settings model.Settings) *model.Envelope {
	if credential == "" {
		env := model.Failed(action, product+" key not configured. Add it to the configuration.")
		return &env
	}
	if !settings.AutoEnabled {
		env := model.Failed(action, "Automatic web fetching is disabled. Enable it in the configuration.")
		return &env
	}
	return nil
}

func missing(action model.Action, field string) model.Envelope {
	return model.Failed(action, "Missing required parameter: "+field)
}

// fanOut runs fn for every index with at most Concurrency in flight. fn
// writes its own slot of a pre-sized slice, so no locking is needed and the
// output order is the input order no matter which call finishes first.
//
// A panic in a worker is re-raised on the calling goroutine after the group
// drains, so Execute's recover still sees it.
func (s *AcquireService) fanOut(n int, fn func(i int)) {
	var (
		g        errgroup.Group
		mu       sync.Mutex
		panicked any
	)
	g.SetLimit(s.limits.Concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if panicked == nil {
						panicked = r
					}
					mu.Unlock()
				}
			}()
			fn(i)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures live in the outcomes

	if panicked != nil {
		panic(panicked)
	}
}

// pendingExtraction is an item queued for the Extracting stage.
type pendingExtraction struct {
	index int
	text  string
	hint  model.ExtractionHint
}

// runExtractions extracts every queued item in parallel and returns the
// outcomes keyed by item index.
func (s *AcquireService) runExtractions(ctx context.Context, ex provider.Extractor, kind model.ExtractionKind, queue []pendingExtraction) map[int]model.ExtractionOutcome {
	outcomes := make([]model.ExtractionOutcome, len(queue))
	s.fanOut(len(queue), func(i int) {
		p := queue[i]
		out := ex.Extract(ctx, kind, p.text, p.hint)
		out.Index = p.index
		outcomes[i] = out
	})

	byIndex := make(map[int]model.ExtractionOutcome, len(outcomes))
	for _, out := range outcomes {
		byIndex[out.Index] = out
		if !out.Success {
			s.logger.Warn("extraction failed",
				zap.String("item", out.Item),
				zap.Int("index", out.Index),
				zap.String("error", out.Error),
			)
		}
	}
	return byIndex
}

// assemble builds the envelope: a scalar input unwraps to Result, a list
// input becomes Results plus totals and the truncation flag.
func assemble(action model.Action, scalar bool, items []model.ItemResult, truncated bool, warnings []string) model.Envelope {
	env := model.Envelope{Success: true, Action: action, Warnings: warnings}

	if scalar && len(items) == 1 {
		item := items[0]
		env.Result = &item
		// With one item there are no siblings to protect; its failure is the call's.
		if !item.Success {
			env.Success = false
			env.Error = item.Error
		}
		return env
	}

	env.Results = items
	env.Truncated = &truncated
	if action == model.ActionSearch {
		env.TotalQueries = len(items)
	} else {
		env.TotalURLs = len(items)
	}
	return env
}

// unsupportedMessage explains a payload the classifier couldn't place.
func unsupportedMessage(header string) string {
	if header == "" {
		header = "none"
	}
	return fmt.Sprintf("unsupported content type (content-type: %s); supported types: %s",
		strings.TrimSpace(header), content.SupportedList())
}
