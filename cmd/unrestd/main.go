package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/couchcryptid/unrest-risk-service/internal/adapter/feed"
	httpadapter "github.com/couchcryptid/unrest-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/unrest-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/unrest-risk-service/internal/assess"
	"github.com/couchcryptid/unrest-risk-service/internal/config"
	"github.com/couchcryptid/unrest-risk-service/internal/domain"
	"github.com/couchcryptid/unrest-risk-service/internal/modelfile"
	"github.com/couchcryptid/unrest-risk-service/internal/observability"
	"github.com/couchcryptid/unrest-risk-service/internal/session"
)

const sessionSweepInterval = time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	model := domain.DefaultModel()
	if cfg.ModelFile != "" {
		model, err = modelfile.Load(cfg.ModelFile)
		if err != nil {
			logger.Error("failed to load model file", "error", err)
			os.Exit(1)
		}
	}
	logger.Info("model loaded", "model", model.Name, "presets", model.Presets.Len(), "monotonic", model.Monotonic())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Assessment publishing (feature-flagged via KAFKA_BROKERS).
	var (
		enqueuer      assess.Enqueuer
		writer        *kafkaadapter.Writer
		publisherDone = make(chan struct{})
	)
	if cfg.PublishEnabled() {
		writer = kafkaadapter.NewWriter(cfg, logger)
		publisher := assess.NewPublisher(writer, logger, metrics, cfg.BatchSize, cfg.BatchFlushInterval, cfg.PublishQueueSize)
		enqueuer = publisher
		go func() {
			defer close(publisherDone)
			if err := publisher.Run(ctx); err != nil {
				logger.Error("publisher error", "error", err)
			}
		}()
		logger.Info("assessment publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		close(publisherDone)
		logger.Info("assessment publishing disabled")
	}

	store := session.NewStore(cfg.MaxSessions, cfg.SessionTTL, nil)
	assessor := assess.NewAssessor(model, store, enqueuer, logger, metrics)

	// Headline feed (feature-flagged via FEED_URL).
	var (
		fetcher domain.HeadlineFetcher
		warmer  *feed.Warmer
	)
	if cfg.FeedEnabled() {
		client := feed.NewClient(cfg.FeedTimeout, metrics, logger)
		cached := feed.NewCachedFetcher(client, cfg.FeedCacheSize, cfg.FeedCacheTTL, cfg.FeedTimeout, nil, metrics)
		fetcher = cached
		metrics.FeedEnabled.Set(1)
		logger.Info("headline feed enabled", "feed_url", cfg.FeedURL, "cache_ttl", cfg.FeedCacheTTL)

		if cfg.FeedRefreshSchedule != "" {
			warmer, err = feed.NewWarmer(cfg.FeedRefreshSchedule, cached, cfg.FeedURL, cfg.FeedLimit, cfg.FeedTimeout, logger)
			if err != nil {
				logger.Error("invalid feed refresh schedule", "error", err)
				os.Exit(1)
			}
			warmer.Start()
		}
	} else {
		logger.Info("headline feed disabled")
	}

	// Model hot reload.
	var watcher *modelfile.Watcher
	if cfg.ModelWatch {
		watcher, err = modelfile.NewWatcher(cfg.ModelFile, assessor.SetModel, logger, metrics)
		if err != nil {
			logger.Error("failed to watch model file", "error", err)
			os.Exit(1)
		}
		go func() {
			if err := watcher.Run(ctx); err != nil {
				logger.Error("model watcher error", "error", err)
			}
		}()
	}

	go sweepSessions(ctx, assessor)

	srv := httpadapter.NewServer(cfg.HTTPAddr, assessor, httpadapter.Headlines{
		Fetcher:      fetcher,
		FeedURL:      cfg.FeedURL,
		DefaultLimit: cfg.FeedLimit,
	}, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-publisherDone:
	case <-shutdownCtx.Done():
		logger.Warn("publisher did not finish before shutdown timeout")
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if warmer != nil {
		if err := warmer.Stop(shutdownCtx); err != nil {
			logger.Error("headline warmer stop error", "error", err)
		}
	}
	if watcher != nil {
		if err := watcher.Close(); err != nil {
			logger.Error("model watcher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}

func sweepSessions(ctx context.Context, assessor *assess.Assessor) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			assessor.SweepSessions()
		}
	}
}
