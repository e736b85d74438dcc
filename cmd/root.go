// Package cmd defines the CLI commands for the scraper executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/junhyukpark/naver-blog-scraper/internal/config"
	"github.com/junhyukpark/naver-blog-scraper/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "naver-blog-scraper",
		Short: "A scraper service for Naver blog posts.",
		Long: `naver-blog-scraper extracts structured content (title, author, body,
images, tags) from Naver blog posts. It drives a headless browser to get
past the iframe indirection and client-side rendering Naver uses, and
exposes both a batch job API and a one-shot CLI mode.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	return cmd
}

// Execute runs the CLI with a signal-aware context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func buildLogger(cfg config.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
