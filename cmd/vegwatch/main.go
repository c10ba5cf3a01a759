package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/vegwatch-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/vegwatch-service/internal/adapter/kafka"
	"github.com/couchcryptid/vegwatch-service/internal/adapter/mapbox"
	"github.com/couchcryptid/vegwatch-service/internal/adapter/source"
	"github.com/couchcryptid/vegwatch-service/internal/adapter/sqlite"
	"github.com/couchcryptid/vegwatch-service/internal/config"
	"github.com/couchcryptid/vegwatch-service/internal/dashboard"
	"github.com/couchcryptid/vegwatch-service/internal/domain"
	"github.com/couchcryptid/vegwatch-service/internal/observability"
	"github.com/couchcryptid/vegwatch-service/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		logger.Error("failed to open state store", "error", err, "path", cfg.SQLitePath)
		os.Exit(1)
	}
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate state store", "error", err)
		os.Exit(1)
	}

	// Place search (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var searcher domain.PlaceSearcher
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.MapboxRateLimit, metrics, logger)
		searcher = mapbox.NewCachedSearcher(client, cfg.MapboxCacheSize, metrics)
		metrics.SearchEnabled.Set(1)
		logger.Info("mapbox place search enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox place search disabled")
	}

	// Action publishing (feature-flagged via KAFKA_ENABLED).
	var publisher domain.ActionPublisher
	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = writer
		logger.Info("kafka action publishing enabled", "topic", cfg.KafkaActionTopic)
	}

	var src domain.ObservationSource
	if cfg.SourcePath != "" {
		src = source.NewFileSource(cfg.SourcePath)
	} else {
		src = source.NewHTTPSource(cfg.SourceURL, cfg.SourceTimeout, logger)
	}

	dataset := dashboard.NewDataset(nil)
	svc := dashboard.NewService(dataset, cfg.Selection, store, store, publisher, logger, metrics)
	if err := svc.LoadWatchlist(ctx); err != nil {
		logger.Warn("starting with an empty watchlist", "error", err)
	}
	search := dashboard.NewSearch(searcher, cfg.SearchDebounce, nil, logger, metrics)

	p := pipeline.New(src, pipeline.NewTransformer(logger), dataset, logger, metrics, cfg.RefreshInterval)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc, search, cfg.CORSOrigins, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("refresh loop error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("state store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
