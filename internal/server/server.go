package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/config"
	"github.com/fleveque/webacquire/internal/handler"
	"github.com/fleveque/webacquire/internal/metrics"
	"github.com/fleveque/webacquire/internal/storage"
)

// Deps are the already-built pieces the HTTP layer exposes.
type Deps struct {
	Acquirer handler.Acquirer
	Calls    storage.CallRepository
	Metrics  *metrics.Metrics // nil disables /metrics
	Version  string
}

// Server wraps the HTTP server and its dependencies.
// In Go, you typically compose a struct with all the pieces your server needs,
// then wire them together in the constructor (New function).
type Server struct {
	cfg    *config.Config
	router *gin.Engine
	logger *zap.Logger
	http   *http.Server
}

// New creates and configures a new Server.
func New(cfg *config.Config, deps Deps, logger *zap.Logger) *Server {
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Recovery middleware catches panics and returns 500 instead of crashing.
	// The request ID comes first so every later log line can carry it.
	router.Use(gin.Recovery())
	router.Use(middlewareChain(deps.Metrics, logger)...)

	RegisterRoutes(router, cfg, deps, logger)

	// A fan-out of 150 slow pages can legitimately take minutes, so the
	// write timeout follows the proxy timeout rather than a fixed value.
	writeTimeout := max(2*cfg.Proxy.Timeout+cfg.Extraction.Timeout, 30*time.Second)

	return &Server{
		cfg:    cfg,
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Start begins listening for HTTP requests. This blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("address", s.cfg.Server.Address()))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

// Shutdown gracefully stops the server, waiting for in-flight requests to complete.
// context.Context is Go's way of handling cancellation and timeouts; you'll see it everywhere.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	return s.http.Shutdown(ctx)
}

// Router returns the underlying Gin engine (useful for testing).
func (s *Server) Router() *gin.Engine {
	return s.router
}
