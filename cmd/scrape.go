package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/junhyukpark/naver-blog-scraper/internal/clock/system"
	"github.com/junhyukpark/naver-blog-scraper/internal/coordinator"
	"github.com/junhyukpark/naver-blog-scraper/internal/export"
	"github.com/junhyukpark/naver-blog-scraper/internal/extractor"
	"github.com/junhyukpark/naver-blog-scraper/internal/id/uuid"
	"github.com/junhyukpark/naver-blog-scraper/internal/images"
	"github.com/junhyukpark/naver-blog-scraper/internal/logging"
	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/local"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/memory"
)

func newScrapeCmd() *cobra.Command {
	var (
		downloadImages bool
		outputFormat   string
		imagesDir      string
	)
	cmd := &cobra.Command{
		Use:   "scrape <url>",
		Short: "Scrape a single blog post and print it",
		Long: `Extracts one post synchronously and writes it to stdout in the chosen
format. With --images, embedded images are downloaded next to the output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd, args[0], downloadImages, outputFormat, imagesDir)
		},
	}
	cmd.Flags().BoolVar(&downloadImages, "images", false, "download embedded images")
	cmd.Flags().StringVar(&outputFormat, "format", export.FormatJSON, "output format: json, csv, or markdown")
	cmd.Flags().StringVar(&imagesDir, "images-dir", "images", "directory for downloaded images")
	return cmd
}

func runScrape(cmd *cobra.Command, rawURL string, downloadImages bool, outputFormat, imagesDir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ext, err := extractor.NewChromedp(extractor.Config{
		Headless:          cfg.Browser.Headless,
		UserAgent:         cfg.Scraper.UserAgent,
		NavigationTimeout: cfg.NavTimeout(),
		MaxParallel:       1,
	}, system.New(), logging.Component(logger, "extractor"))
	if err != nil {
		return fmt.Errorf("init extractor: %w", err)
	}
	defer ext.Close()

	var materializer scraper.Materializer
	if downloadImages {
		store, err := local.New(local.Config{BaseDir: imagesDir})
		if err != nil {
			return fmt.Errorf("init image dir: %w", err)
		}
		materializer = images.New(images.Config{
			UserAgent:    cfg.Scraper.UserAgent,
			FetchTimeout: cfg.ImageFetchTimeout(),
			MaxDimension: cfg.Images.MaxDimension,
			JPEGQuality:  cfg.Images.JPEGQuality,
			PerHostRPS:   cfg.Images.PerHostRPS,
		}, store, logging.Component(logger, "images"))
	}

	coord := coordinator.New(
		coordinator.Config{
			Topic: cfg.Scraper.Topic,
			RetryPolicy: scraper.RetryPolicy{
				MaxAttempts: cfg.Scraper.MaxRetries,
				BaseDelay:   cfg.MinDelay(),
				Backoff:     cfg.Scraper.RetryBackoff,
			},
		},
		ext, materializer, memory.NewJobStore(0), memory.NewPostStore(), nil,
		scraper.NewRandomizedGovernor(cfg.MinDelay(), cfg.MaxDelay()),
		system.New(), uuid.New(), logging.Component(logger, "coordinator"),
	)
	defer coord.Close()

	post, err := coord.ExtractOne(cmd.Context(), rawURL, downloadImages)
	if err != nil {
		return fmt.Errorf("scrape %s: %w", rawURL, err)
	}

	body, err := export.Render(outputFormat, []scraper.ExtractedPost{post})
	if err != nil {
		return err
	}
	if _, err := os.Stdout.Write(append(body, '\n')); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
