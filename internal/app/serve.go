// Package app wires configuration, cache, index client, pipeline and HTTP
// server into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgallion1/hierchunk/internal/api"
	"github.com/dgallion1/hierchunk/internal/cache"
	"github.com/dgallion1/hierchunk/internal/config"
	"github.com/dgallion1/hierchunk/internal/hierarchy"
	"github.com/dgallion1/hierchunk/internal/indexsink"
	"github.com/dgallion1/hierchunk/internal/pipeline"
)

// Serve runs the HTTP service until ctx is cancelled, then shuts down the
// pipeline and server.
func Serve(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := cache.Open(cfg.CacheBackend, cfg.CachePath, log)
	if err != nil {
		return err
	}
	defer store.Close()

	builder, err := hierarchy.NewBuilder(cfg.Chunking, hierarchy.WithLogger(log))
	if err != nil {
		return err
	}

	// Initialize the index client only when an index service is configured.
	var (
		index *indexsink.Client
		sink  indexsink.Writer
	)
	if cfg.IndexURL != "" {
		index = indexsink.NewClient(cfg.IndexURL, cfg.IndexAPIKey)
		defer index.Close()
		sink = index
	} else {
		log.Info("no INDEX_URL set, jobs will not be indexed")
	}

	orch := pipeline.NewOrchestrator(cfg, builder, store, sink, log)
	orch.Start(ctx)
	defer orch.Stop()

	srv := api.NewServer(orch, index, log, cfg)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting hierchunk", "port", cfg.Port, "cache", cfg.CacheBackend, "workers", cfg.WorkerCount)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	orch.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
