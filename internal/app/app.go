// Package app assembles the acquisition pipeline from configuration. Both the
// HTTP server and the CLI build their service through here, so they share one
// wiring.
package app

import (
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/config"
	"github.com/fleveque/webacquire/internal/imaging"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/provider"
	"github.com/fleveque/webacquire/internal/search"
	"github.com/fleveque/webacquire/internal/service"
	"github.com/fleveque/webacquire/internal/storage"
)

// App holds the built pipeline and the resources that must be closed.
type App struct {
	Service *service.AcquireService
	Calls   storage.CallRepository
	Metrics *metrics.Metrics

	db *sqlx.DB
}

// NewLogger returns a development logger for debug level (human-readable)
// and a production JSON logger otherwise.
func NewLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if lvl, err := zap.ParseAtomicLevel(level); err == nil {
		cfg.Level = lvl
	}
	return cfg.Build()
}

// Build wires storage, metrics, the proxy client, the extractor factory and
// the orchestrator. withMetrics=false leaves collectors out (the CLI).
func Build(cfg *config.Config, logger *zap.Logger, withMetrics bool) (*App, error) {
	a := &App{}
	if withMetrics {
		a.Metrics = metrics.New()
	}

	if path := cfg.Storage.DatabasePath; path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, eris.Wrap(err, "creating database directory")
		}
		db, err := storage.NewDatabase(path)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.Calls = storage.NewCallRepository(db)
	} else {
		logger.Info("call ledger disabled (storage.database_path is empty)")
		a.Calls = storage.NewNopCallRepository()
	}

	proxy := provider.NewProxyClient(logger,
		provider.WithEndpoint(cfg.Proxy.Endpoint),
		provider.WithTimeout(cfg.Proxy.Timeout),
		provider.WithMaxBody(cfg.Proxy.MaxBodyBytes),
		provider.WithRetry(cfg.RetryPolicy()),
		provider.WithRateLimit(cfg.Proxy.RatePerMinute, cfg.Fanout.Concurrency),
		provider.WithCallLedger(a.Calls),
		provider.WithMetrics(a.Metrics),
	)
	extractors := provider.NewExtractorFactory(cfg.ExtractionTuning(), a.Calls, a.Metrics, logger)

	a.Service = service.NewAcquireService(
		proxy,
		extractors,
		search.NewBuilder(cfg.Search.BaseURL, cfg.Search.ScholarURL),
		imaging.NewProcessor(cfg.Image.MaxDimension),
		cfg.Limits(),
		a.Metrics,
		logger,
	)

	logger.Info("pipeline ready",
		zap.Bool("serp_configured", cfg.Proxy.SerpAPIKey != ""),
		zap.Bool("unlocker_configured", cfg.Proxy.UnlockerAPIKey != ""),
		zap.Bool("extraction_enabled", cfg.Settings().Extraction.Enabled()),
		zap.Bool("ledger_enabled", a.db != nil),
	)
	return a, nil
}

// Close releases the database handle, if any.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
