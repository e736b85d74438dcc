// Package extractor drives a headless browser to pull structured content out
// of Naver blog post pages.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// Config controls the chromedp extractor.
type Config struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
	MaxParallel       int
}

// Chromedp implements scraper.Extractor with one shared browser allocator
// and a fresh tab per extraction.
type Chromedp struct {
	cfg         Config
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	clock       scraper.Clock
	logger      *zap.Logger
}

// NewChromedp creates the extractor and its exec allocator. Tabs are only
// opened per Extract call; the allocator lives until Close.
func NewChromedp(cfg Config, clock scraper.Clock, logger *zap.Logger) (*Chromedp, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Chromedp{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context, tearing down the browser.
func (e *Chromedp) Close() {
	e.allocCancel()
}

// Extract navigates to the canonical post URL, follows the content iframe
// indirection when present, and parses the resulting document.
func (e *Chromedp) Extract(ctx context.Context, ref scraper.PostReference) (scraper.ExtractedPost, error) {
	if err := e.acquire(ctx); err != nil {
		return scraper.ExtractedPost{}, err
	}
	defer e.release()

	tabCtx, cancelTab := chromedp.NewContext(e.allocator)
	defer cancelTab()
	taskCtx, cancelTask := context.WithTimeout(tabCtx, e.cfg.NavigationTimeout)
	defer cancelTask()
	stopForward := forwardCancel(ctx, cancelTask)
	defer stopForward()

	html, pageURL, err := e.snapshotContent(taskCtx, ref.CanonicalURL)
	if err != nil {
		return scraper.ExtractedPost{}, classifyNavError(ref.CanonicalURL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return scraper.ExtractedPost{}, scraper.NewError(scraper.KindUnexpectedStructure, "parse document", err)
	}
	content, err := scraper.ParseDocument(doc, pageURL)
	if err != nil {
		return scraper.ExtractedPost{}, err
	}

	e.logger.Debug("post extracted",
		zap.String("blog_id", ref.BlogID),
		zap.String("log_no", ref.LogNo),
		zap.Int("images", len(content.Images)),
	)

	return scraper.ExtractedPost{
		Reference:     ref,
		Title:         content.Title,
		Author:        content.Author,
		PublishedDate: content.Date,
		Body:          content.Body,
		Images:        content.Images,
		Tags:          content.Tags,
		ExtractedAt:   e.clock.Now(),
	}, nil
}

// snapshotContent returns the outer HTML of the content document and the URL
// it was loaded from. Naver wraps most posts in a #mainFrame iframe; legacy
// posts render without it, so a missing frame falls through to the top-level
// document.
func (e *Chromedp) snapshotContent(ctx context.Context, canonicalURL string) (string, string, error) {
	var frameSrc string
	actions := []chromedp.Action{
		e.networkSetupAction(),
		chromedp.Navigate(canonicalURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(frameProbeJS, &frameSrc),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", "", fmt.Errorf("navigate post page: %w", err)
	}

	pageURL := canonicalURL
	if frameURL := resolveFrameURL(canonicalURL, frameSrc); frameURL != "" {
		if err := chromedp.Run(ctx,
			chromedp.Navigate(frameURL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		); err != nil {
			return "", "", fmt.Errorf("navigate content frame: %w", err)
		}
		pageURL = frameURL
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", "", fmt.Errorf("snapshot document: %w", err)
	}
	return html, pageURL, nil
}

const frameProbeJS = `(() => {
	const f = document.querySelector('iframe#mainFrame');
	return f && f.src ? f.src : '';
})()`

func (e *Chromedp) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if e.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(e.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// resolveFrameURL makes the iframe src absolute against the page URL.
// Empty or javascript: sources mean there is no frame to follow.
func resolveFrameURL(pageURL, frameSrc string) string {
	frameSrc = strings.TrimSpace(frameSrc)
	if frameSrc == "" || strings.HasPrefix(frameSrc, "javascript:") || strings.HasPrefix(frameSrc, "about:") {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return frameSrc
	}
	abs, err := base.Parse(frameSrc)
	if err != nil {
		return ""
	}
	return abs.String()
}

// classifyNavError maps browser/navigation failures onto the retryable
// navigation_timeout kind. Anything that fails before the document parses is
// an origin or network problem; unrecognized templates are classified later
// by the parser.
func classifyNavError(url string, err error) error {
	msg := fmt.Sprintf("navigate %s", url)
	if errors.Is(err, context.DeadlineExceeded) {
		return scraper.NewError(scraper.KindNavigationTimeout, msg+": deadline exceeded", err)
	}
	return scraper.NewError(scraper.KindNavigationTimeout, msg, err)
}

func (e *Chromedp) acquire(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	select {
	case e.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("extractor slot wait canceled: %w", ctx.Err())
	}
}

func (e *Chromedp) release() {
	if e.limiter == nil {
		return
	}
	select {
	case <-e.limiter:
	default:
	}
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
