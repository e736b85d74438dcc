// Package export renders extracted posts into the client-facing output
// formats.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// Output formats accepted by the result endpoint.
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// ContentType returns the HTTP content type for a format.
func ContentType(format string) string {
	switch format {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "application/json; charset=utf-8"
	}
}

// Render serializes posts in the requested format.
func Render(format string, posts []scraper.ExtractedPost) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		return renderJSON(posts)
	case FormatCSV:
		return renderCSV(posts)
	case FormatMarkdown:
		return renderMarkdown(posts), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func renderJSON(posts []scraper.ExtractedPost) ([]byte, error) {
	if posts == nil {
		posts = []scraper.ExtractedPost{}
	}
	data, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal posts: %w", err)
	}
	return data, nil
}

var csvHeader = []string{
	"blog_id", "log_no", "url", "title", "author", "published_date", "body", "tags", "image_count",
}

func renderCSV(posts []scraper.ExtractedPost) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, post := range posts {
		row := []string{
			post.Reference.BlogID,
			post.Reference.LogNo,
			post.Reference.CanonicalURL,
			post.Title,
			post.Author,
			post.PublishedDate,
			post.Body,
			strings.Join(post.Tags, ";"),
			fmt.Sprintf("%d", len(post.Images)),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func renderMarkdown(posts []scraper.ExtractedPost) []byte {
	var b strings.Builder
	for i, post := range posts {
		if i > 0 {
			b.WriteString("\n---\n\n")
		}
		fmt.Fprintf(&b, "# %s\n\n", post.Title)
		if post.Author != "" {
			fmt.Fprintf(&b, "**Author:** %s\n", post.Author)
		}
		if post.PublishedDate != "" {
			fmt.Fprintf(&b, "**Date:** %s\n", post.PublishedDate)
		}
		fmt.Fprintf(&b, "**URL:** %s\n\n", post.Reference.CanonicalURL)
		if len(post.Tags) > 0 {
			fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(post.Tags, ", "))
		}
		b.WriteString(post.Body)
		b.WriteString("\n")
		if len(post.Images) > 0 {
			b.WriteString("\n## Images\n\n")
			for _, img := range post.Images {
				target := img.LocalPath
				if target == "" {
					target = img.SourceURL
				}
				fmt.Fprintf(&b, "![%s](%s)\n", img.AltText, target)
			}
		}
	}
	return []byte(b.String())
}
