package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gpubsub "cloud.google.com/go/pubsub"
	gstorage "cloud.google.com/go/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/junhyukpark/naver-blog-scraper/internal/api"
	"github.com/junhyukpark/naver-blog-scraper/internal/clock/system"
	"github.com/junhyukpark/naver-blog-scraper/internal/config"
	"github.com/junhyukpark/naver-blog-scraper/internal/coordinator"
	"github.com/junhyukpark/naver-blog-scraper/internal/extractor"
	"github.com/junhyukpark/naver-blog-scraper/internal/id/uuid"
	"github.com/junhyukpark/naver-blog-scraper/internal/images"
	"github.com/junhyukpark/naver-blog-scraper/internal/logging"
	pubsubpub "github.com/junhyukpark/naver-blog-scraper/internal/publisher/pubsub"
	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/gcs"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/local"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/memory"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/postgres"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scraper HTTP API",
		Long: `Starts the HTTP server exposing job submission, status, result, and
one-shot extraction endpoints, plus health and Prometheus metrics.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	blobStore, err := buildBlobStore(ctx, cfg)
	if err != nil {
		return err
	}
	postStore, postStoreClose, err := buildPostStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer postStoreClose()

	publisher, publisherStop, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer publisherStop()

	ext, err := extractor.NewChromedp(extractor.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		MaxParallel:       cfg.Browser.MaxParallel,
	}, system.New(), logging.Component(logger, "extractor"))
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	defer ext.Close()

	var materializer scraper.Materializer
	if cfg.Images.Enabled {
		materializer = images.New(images.Config{
			UserAgent:    cfg.Scraper.UserAgent,
			FetchTimeout: cfg.ImageFetchTimeout(),
			MaxDimension: cfg.Images.MaxDimension,
			JPEGQuality:  cfg.Images.JPEGQuality,
			PerHostRPS:   cfg.Images.PerHostRPS,
		}, blobStore, logging.Component(logger, "images"))
	}

	governor := scraper.NewRandomizedGovernor(cfg.MinDelay(), cfg.MaxDelay())
	jobStore := memory.NewJobStore(cfg.Scraper.MaxFinishedJobs)

	coord := coordinator.New(
		coordinator.Config{
			MaxConcurrent: cfg.Scraper.MaxConcurrent,
			Topic:         cfg.Scraper.Topic,
			RetryPolicy: scraper.RetryPolicy{
				MaxAttempts: cfg.Scraper.MaxRetries,
				BaseDelay:   cfg.MinDelay(),
				Backoff:     cfg.Scraper.RetryBackoff,
			},
		},
		ext, materializer, jobStore, postStore, publisher, governor,
		system.New(), uuid.New(), logging.Component(logger, "coordinator"),
	)
	defer coord.Close()

	server := api.NewServer(coord, cfg, logging.Component(logger, "api"))
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

func buildBlobStore(ctx context.Context, cfg config.Config) (scraper.BlobStore, error) {
	switch cfg.Storage.Provider {
	case config.ProviderLocal:
		store, err := local.New(local.Config{BaseDir: cfg.Storage.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.ProviderGCS:
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("init gcs client: %w", err)
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return store, nil
	default:
		return memory.NewBlobStore(), nil
	}
}

func buildPostStore(ctx context.Context, cfg config.Config) (scraper.PostStore, func(), error) {
	if cfg.DB.Provider == config.ProviderPostgres {
		store, err := postgres.NewPostStore(ctx, postgres.PostStoreConfig{
			DSN:      cfg.DB.DSN,
			Table:    cfg.DB.Table,
			MaxConns: cfg.DB.MaxConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		return store, store.Close, nil
	}
	return memory.NewPostStore(), func() {}, nil
}

func buildPublisher(ctx context.Context, cfg config.Config) (scraper.Publisher, func(), error) {
	if !cfg.PubSub.Enabled {
		return nil, func() {}, nil
	}
	client, err := gpubsub.NewClient(ctx, cfg.PubSub.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub client: %w", err)
	}
	pub := pubsubpub.New(client.Topic(cfg.PubSub.TopicName))
	stop := func() {
		pub.Stop()
		_ = client.Close()
	}
	return pub, stop, nil
}
