package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docpage/internal/api"
	"github.com/dgallion1/docpage/internal/config"
	"github.com/dgallion1/docpage/internal/content"
	"github.com/dgallion1/docpage/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize content source.
	source := content.New(cfg.ContentBase, cfg.ContentExt, cfg.FetchTimeout)
	stats := content.NewStats(cfg.StatsWindow)
	stages := pipeline.NewStages(content.Instrumented{Fetcher: source, Stats: stats}, nil, log)

	// Initialize HTTP server.
	srv := api.NewServer(ctx, stages, stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		cancel()
		if hf, ok := source.(*content.HTTPFetcher); ok {
			hf.Close()
		}
	}()

	log.Info("starting docpage", "port", cfg.Port, "content_base", cfg.ContentBase)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
