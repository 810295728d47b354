// Command litscoped runs the Search-Ingest-Score pipeline daemon: it loads
// configuration, opens the Store, wires the bibliographic/citation/
// vocabulary/embedder adapters and the Pipeline Coordinator, then serves
// the Coordinator's operations over MCP stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"litscope/internal/wire"
)

func main() {
	ctx := context.Background()

	app, cleanup, err := wire.InitializeApplication()
	if err != nil {
		slog.Error("failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	logger := app.Logger
	cfg := app.Config

	if app.EmbeddedManager != nil {
		logger.Info("starting messaging manager")
		if err := app.EmbeddedManager.Start(ctx); err != nil {
			logger.Error("failed to start messaging manager", slog.String("error", err.Error()))
			os.Exit(1)
		}
		if err := app.EmbeddedManager.SetupDefaultHandlers(ctx); err != nil {
			logger.Warn("failed to setup default event handlers", slog.String("error", err.Error()))
		}
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("starting MCP server on stdio")
		serveErrCh <- app.MCP.ServeStdio()
	}()

	logger.Info("litscope daemon startup complete",
		slog.String("database_type", cfg.Database.Type),
		slog.Bool("embedded_nats", cfg.NATS.Embedded.Enabled),
		slog.Bool("messaging_connected", app.EmbeddedManager != nil && app.EmbeddedManager.IsConnected()))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-serveErrCh:
		if err != nil {
			logger.Error("MCP server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Coordinator.Shutdown(shutdownCtx); err != nil {
		logger.Error("coordinator shutdown did not complete cleanly", slog.String("error", err.Error()))
	}

	if app.EmbeddedManager != nil {
		if err := app.EmbeddedManager.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop messaging manager", slog.String("error", err.Error()))
		}
	}

	logger.Info("litscope daemon shutdown complete")
}
