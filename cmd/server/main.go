// Package main is the entry point for the webacquire HTTP server.
// In Go, the `main` package with a `main()` function is what gets executed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/fleveque/webacquire/internal/app"
	"github.com/fleveque/webacquire/internal/config"
	"github.com/fleveque/webacquire/internal/server"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// os.Exit ensures the process exits with a non-zero code on failure.
	// We call run() separately so deferred cleanup functions execute properly
	// (deferred functions don't run when os.Exit is called directly).
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("WEBACQUIRE_CONFIG_PATH"))
	if err != nil {
		return eris.Wrap(err, "loading config")
	}

	logger, err := app.NewLogger(cfg.Log.Level)
	if err != nil {
		return eris.Wrap(err, "creating logger")
	}
	// Sync flushes buffered log entries. We intentionally ignore the error here
	// because Sync commonly fails on stdout/stderr (not a real problem).
	defer func() { _ = logger.Sync() }()

	a, err := app.Build(cfg, logger, true)
	if err != nil {
		return eris.Wrap(err, "building pipeline")
	}
	defer func() { _ = a.Close() }()

	srv := server.New(cfg, server.Deps{
		Acquirer: a.Service,
		Calls:    a.Calls,
		Metrics:  a.Metrics,
		Version:  version,
	}, logger)

	// Graceful shutdown: listen for SIGINT (Ctrl+C) or SIGTERM (docker stop).
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	// select is like a switch for channels; it waits until one is ready.
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errChan:
		if err != nil {
			return err
		}
	}

	// In-flight fan-outs get ShutdownTimeout to finish.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(ctx)
}
