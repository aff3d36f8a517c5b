// Affinity - Content Similarity and Behavioral Telemetry for Community Platforms
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

// Package main is the entry point for the Affinity agent.
//
// The agent runs next to a community platform and provides two things:
// content similarity analysis over HTTP, and a durable behavioral
// telemetry queue that batches events to a remote collector and
// survives collector outages.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered loading (defaults, YAML file,
//     AFFINITY_ environment variables)
//  2. Logging: zerolog, JSON by default
//  3. Storage: BadgerDB event store (in-memory when no path is set)
//  4. Telemetry: collector client, tracker, redelivery dispatcher
//  5. Similarity: scoring engine, default weight tables merged with
//     the similarity config section
//  6. HTTP API: chi router on server.addr (default :9473)
//  7. Supervision: suture tree running the flush loop, the
//     dispatcher, and the HTTP server
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the supervisor stops
// its services, the tracker performs a final flush, and the database
// closes last.
//
// # Example
//
//	export AFFINITY_COLLECTOR_URL=https://collector.example.com/ingest
//	export AFFINITY_STORAGE_PATH=/data/affinity
//	./affinity-agent
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgraph-io/badger/v4"

	"github.com/affinitylabs/affinity/internal/api"
	"github.com/affinitylabs/affinity/internal/config"
	"github.com/affinitylabs/affinity/internal/logging"
	"github.com/affinitylabs/affinity/internal/similarity"
	"github.com/affinitylabs/affinity/internal/supervisor"
	"github.com/affinitylabs/affinity/internal/supervisor/services"
	"github.com/affinitylabs/affinity/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("storage_path", cfg.Storage.Path).
		Str("collector_url", cfg.Collector.URL).
		Str("addr", cfg.Server.Addr).
		Msg("starting affinity agent")

	db, err := openStorage(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open event storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing event storage")
		}
	}()

	store := telemetry.NewStore(db)

	client := telemetry.NewClient(cfg.Collector.URL,
		telemetry.WithTimeout(cfg.Collector.Timeout),
		telemetry.WithAuthToken(cfg.Collector.AuthToken),
	)

	queueCfg := telemetry.Config{
		BatchSize:     cfg.Queue.BatchSize,
		FlushInterval: cfg.Queue.FlushInterval,
		RetryInterval: cfg.Queue.RetryInterval,
		MaxRetries:    cfg.Queue.MaxRetries,
	}

	tracker := telemetry.NewTracker(store, client, queueCfg, logging.Logger())
	dispatcher := telemetry.NewDispatcher(store, client, queueCfg, logging.Logger())

	// Seed the pending gauge from whatever survived the last run.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if pending, err := store.PendingCount(ctx); err == nil {
		telemetry.SetPendingEvents(pending)
		if pending > 0 {
			logging.Info().Int("count", pending).Msg("pending events recovered from storage")
		}
	}

	engine, err := similarity.NewEngine(similarity.DefaultConfig(), logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create similarity engine")
	}
	if err := engine.UpdateWeights(similarityPatch(cfg.Similarity)); err != nil {
		logging.Fatal().Err(err).Msg("invalid similarity configuration")
	}

	handler := api.NewHandler(engine, tracker, store)
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Routes(handler),
		ReadHeaderTimeout: cfg.Server.Timeout,
	}

	// zerolog bridged to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddTelemetryService(services.NewFlushService(tracker, cfg.Queue.FlushInterval))
	tree.AddTelemetryService(dispatcher)
	tree.AddAPIService(services.NewHTTPServerService(server, supervisor.DefaultTreeConfig().ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop within timeout")
	}

	// Final flush after the supervised loops have stopped, so buffered
	// events get one last delivery attempt or land in storage.
	tracker.Close(context.Background())

	logging.Info().Msg("agent stopped")
}

// openStorage opens the BadgerDB event store. An empty path selects
// in-memory mode, which loses queued events on restart.
func openStorage(cfg config.StorageConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.Path == "" {
		logging.Warn().Msg("no storage path configured, queued events will not survive restarts")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites)
	opts.Logger = nil

	return badger.Open(opts)
}

// similarityPatch translates the similarity section of the agent
// configuration into a weight patch merged onto the engine defaults.
func similarityPatch(cfg config.SimilarityConfig) similarity.WeightPatch {
	caps := similarity.EngagementCaps{
		Views:    cfg.EngagementCaps.Views,
		Likes:    cfg.EngagementCaps.Likes,
		Comments: cfg.EngagementCaps.Comments,
		Shares:   cfg.EngagementCaps.Shares,
	}
	return similarity.WeightPatch{
		Factors:        cfg.FactorWeights,
		Tags:           cfg.TagWeights,
		Categories:     cfg.CategoryWeights,
		EngagementCaps: &caps,
		Threshold:      &cfg.InclusionThreshold,
		TemporalWindow: &cfg.TemporalWindow,
	}
}
