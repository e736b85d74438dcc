package export

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

func samplePosts() []scraper.ExtractedPost {
	return []scraper.ExtractedPost{
		{
			Reference: scraper.PostReference{
				BlogID:       "foodlover",
				LogNo:        "223456789012",
				CanonicalURL: "https://blog.naver.com/foodlover/223456789012",
			},
			Title:         "Best Naengmyeon in Seoul",
			Author:        "foodlover",
			PublishedDate: "2024. 6. 3. 14:22",
			Body:          "Cold noodles worth the queue.\nSecond line.",
			Images: []scraper.ImageRef{
				{SourceURL: "https://postfiles.pstatic.net/a.jpg", AltText: "bowl", LocalPath: "foodlover/223456789012/image_000.jpg"},
			},
			Tags:        []string{"naengmyeon", "seoul"},
			ExtractedAt: time.Unix(1700000000, 0).UTC(),
		},
	}
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	data, err := Render(FormatJSON, samplePosts())
	require.NoError(t, err)

	var decoded []scraper.ExtractedPost
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 1)
	assert.Equal(t, "Best Naengmyeon in Seoul", decoded[0].Title)
	assert.True(t, strings.HasPrefix(string(data), "[\n  {"), "JSON output is indented")
}

func TestRenderJSONEmptyIsArray(t *testing.T) {
	t.Parallel()

	data, err := Render("", nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRenderCSV(t *testing.T) {
	t.Parallel()

	data, err := Render(FormatCSV, samplePosts())
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, "foodlover", records[1][0])
	assert.Equal(t, "naengmyeon;seoul", records[1][7])
	assert.Equal(t, "1", records[1][8])
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	data, err := Render(FormatMarkdown, samplePosts())
	require.NoError(t, err)

	md := string(data)
	assert.Contains(t, md, "# Best Naengmyeon in Seoul")
	assert.Contains(t, md, "**Author:** foodlover")
	assert.Contains(t, md, "**Tags:** naengmyeon, seoul")
	assert.Contains(t, md, "![bowl](foodlover/223456789012/image_000.jpg)")
}

func TestRenderUnsupportedFormat(t *testing.T) {
	t.Parallel()

	_, err := Render("xml", samplePosts())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestContentType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "application/json; charset=utf-8", ContentType(FormatJSON))
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(FormatCSV))
	assert.Equal(t, "text/markdown; charset=utf-8", ContentType(FormatMarkdown))
}
