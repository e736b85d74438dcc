// Package images downloads, normalizes, and persists the images embedded in
// extracted posts.
package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/time/rate"

	"github.com/junhyukpark/naver-blog-scraper/internal/hash/sha256"
	"github.com/junhyukpark/naver-blog-scraper/internal/metrics"
	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// Config controls image fetching and normalization.
type Config struct {
	UserAgent    string
	FetchTimeout time.Duration
	MaxDimension int
	JPEGQuality  int
	PerHostRPS   float64
}

// Materializer implements scraper.Materializer using a colly collector for
// fetching and a BlobStore for persistence.
type Materializer struct {
	cfg           Config
	store         scraper.BlobStore
	hasher        *sha256.Hasher
	logger        *zap.Logger
	baseCollector *colly.Collector
	hostLimiters  sync.Map
}

// New builds a Materializer.
func New(cfg Config, store scraper.BlobStore, logger *zap.Logger) *Materializer {
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = 1920
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Materializer{
		cfg:           cfg,
		store:         store,
		hasher:        sha256.New(),
		logger:        logger,
		baseCollector: c,
	}
}

// Materialize downloads every image ref and persists it under destKey.
// Filenames are always the ordinal index plus a sniffed extension, never
// derived from the source URL. A failed download leaves that ref's LocalPath
// empty; siblings and the post itself are unaffected. Identical payloads are
// stored once and later refs reuse the first local path.
func (m *Materializer) Materialize(ctx context.Context, refs []scraper.ImageRef, destKey string) []scraper.ImageRef {
	out := make([]scraper.ImageRef, len(refs))
	copy(out, refs)

	type stored struct {
		path string
		size int64
	}
	seen := make(map[string]stored)

	for i := range out {
		srcURL := out[i].SourceURL
		if err := m.waitHostBudget(ctx, srcURL); err != nil {
			m.logger.Warn("image fetch canceled", zap.String("url", srcURL), zap.Error(err))
			metrics.ObserveImage("failed")
			continue
		}
		body, err := m.fetch(ctx, srcURL)
		if err != nil {
			m.logger.Warn("image fetch failed", zap.String("url", srcURL), zap.Error(err))
			metrics.ObserveImage("failed")
			continue
		}

		digest := m.hasher.Hash(body)
		if prev, dup := seen[digest]; dup {
			out[i].LocalPath = prev.path
			out[i].ByteSize = prev.size
			metrics.ObserveImage("deduped")
			continue
		}

		data, ext, contentType := m.normalize(body)
		path := fmt.Sprintf("%s/image_%03d%s", strings.Trim(destKey, "/"), i, ext)
		uri, err := m.store.Put(ctx, path, contentType, data)
		if err != nil {
			m.logger.Warn("image persist failed", zap.String("url", srcURL), zap.Error(err))
			metrics.ObserveImage("failed")
			continue
		}
		out[i].LocalPath = uri
		out[i].ByteSize = int64(len(data))
		seen[digest] = stored{path: uri, size: int64(len(data))}
		metrics.ObserveImage("saved")
	}
	return out
}

// fetch downloads the image bytes with the configured timeout and UA.
func (m *Materializer) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var (
		body     []byte
		fetchErr error
	)
	collector := m.baseCollector.Clone()
	if m.cfg.UserAgent != "" {
		collector.UserAgent = m.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(m.cfg.FetchTimeout)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(rawURL)
	}()
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("image fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("visit image: %w", err)
		}
		if fetchErr != nil {
			return nil, fmt.Errorf("image response: %w", fetchErr)
		}
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("empty image response")
	}
	return body, nil
}

// normalize downscales decodable images whose longest side exceeds the
// configured maximum, re-encoding as JPEG. Payloads Go cannot decode (webp
// and friends) are stored verbatim with a sniffed extension.
func (m *Materializer) normalize(body []byte) ([]byte, string, string) {
	sniffed := http.DetectContentType(body)
	ext := extensionFor(sniffed)

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return body, ext, sniffed
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	longest := max(w, h)
	if longest <= m.cfg.MaxDimension {
		return body, extensionForFormat(format, ext), sniffed
	}

	scale := float64(m.cfg.MaxDimension) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: m.cfg.JPEGQuality}); err != nil {
		return body, ext, sniffed
	}
	return buf.Bytes(), ".jpg", "image/jpeg"
}

func (m *Materializer) waitHostBudget(ctx context.Context, rawURL string) error {
	if m.cfg.PerHostRPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())
	val, _ := m.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(m.cfg.PerHostRPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("host rate wait: %w", err)
	}
	return nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// extensionForFormat prefers the decoded format over the sniff result.
func extensionForFormat(format, fallback string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	default:
		return fallback
	}
}
