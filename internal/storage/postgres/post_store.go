// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostStoreConfig controls the Postgres connection pool used for post rows.
type PostStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Close()
}

// PostStore writes extracted posts into Postgres, one row per blog_id/log_no.
type PostStore struct {
	pool  querier
	table string
}

// NewPostStore creates a Postgres-backed PostStore using the provided config.
func NewPostStore(ctx context.Context, cfg PostStoreConfig) (*PostStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "posts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewPostStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewPostStoreWithPool(pool querier, table string) (*PostStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "posts"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *PostStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Upsert writes the post row, replacing any earlier extraction of the same
// blog_id/log_no pair.
func (s *PostStore) Upsert(ctx context.Context, post scraper.ExtractedPost) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("post store is not configured")
	}
	if post.Reference.BlogID == "" || post.Reference.LogNo == "" {
		return fmt.Errorf("post reference is required")
	}
	imagesJSON, err := json.Marshal(normalizeImages(post.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}
	tagsJSON, err := json.Marshal(normalizeTags(post.Tags))
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	blog_id,
	log_no,
	canonical_url,
	title,
	author,
	published_date,
	body,
	images,
	tags,
	extracted_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
ON CONFLICT (blog_id, log_no) DO UPDATE SET
	canonical_url = EXCLUDED.canonical_url,
	title = EXCLUDED.title,
	author = EXCLUDED.author,
	published_date = EXCLUDED.published_date,
	body = EXCLUDED.body,
	images = EXCLUDED.images,
	tags = EXCLUDED.tags,
	extracted_at = EXCLUDED.extracted_at`, s.table)

	args := []any{
		post.Reference.BlogID,
		post.Reference.LogNo,
		post.Reference.CanonicalURL,
		post.Title,
		post.Author,
		post.PublishedDate,
		post.Body,
		imagesJSON,
		tagsJSON,
		post.ExtractedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert post: %w", err)
	}
	return nil
}

// Get reads the stored post row for the reference.
func (s *PostStore) Get(ctx context.Context, ref scraper.PostReference) (scraper.ExtractedPost, error) {
	if s == nil || s.pool == nil {
		return scraper.ExtractedPost{}, fmt.Errorf("post store is not configured")
	}
	query := fmt.Sprintf(`
SELECT canonical_url, title, author, published_date, body, images, tags, extracted_at
FROM %s
WHERE blog_id = $1 AND log_no = $2`, s.table)

	var (
		post       scraper.ExtractedPost
		imagesJSON []byte
		tagsJSON   []byte
	)
	post.Reference = ref
	row := s.pool.QueryRow(ctx, query, ref.BlogID, ref.LogNo)
	err := row.Scan(
		&post.Reference.CanonicalURL,
		&post.Title,
		&post.Author,
		&post.PublishedDate,
		&post.Body,
		&imagesJSON,
		&tagsJSON,
		&post.ExtractedAt,
	)
	if err != nil {
		return scraper.ExtractedPost{}, fmt.Errorf("select post: %w", err)
	}
	if err := json.Unmarshal(imagesJSON, &post.Images); err != nil {
		return scraper.ExtractedPost{}, fmt.Errorf("unmarshal images: %w", err)
	}
	if err := json.Unmarshal(tagsJSON, &post.Tags); err != nil {
		return scraper.ExtractedPost{}, fmt.Errorf("unmarshal tags: %w", err)
	}
	return post, nil
}

func normalizeImages(images []scraper.ImageRef) []scraper.ImageRef {
	if len(images) == 0 {
		return []scraper.ImageRef{}
	}
	return images
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	return tags
}
