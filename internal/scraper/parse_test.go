package scraper

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const pageURL = "https://blog.naver.com/foodlover/223456789012"

func TestParseDocument_CurrentGeneration(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
<html><body>
  <div class="se-title-text">Seoul Ramen Tour</div>
  <span class="nick">foodlover</span>
  <span class="se_publishDate">2024. 3. 1. 12:00</span>
  <div class="se-main-container">
    <p>First stop.</p>
    <p>Second stop.</p>
    <img src="https://postfiles.pstatic.net/a.jpg" alt="bowl one">
    <img data-lazy-src="https://postfiles.pstatic.net/b.png" alt="bowl two">
    <img src="data:image/gif;base64,R0lGOD">
  </div>
  <div class="tag_area"><a>#ramen</a><a>seoul</a></div>
</body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)

	assert.Equal(t, "Seoul Ramen Tour", content.Title)
	assert.Equal(t, "foodlover", content.Author)
	assert.Equal(t, "2024. 3. 1. 12:00", content.Date)
	assert.Equal(t, "First stop.\nSecond stop.", content.Body)
	require.Len(t, content.Images, 2)
	assert.Equal(t, "https://postfiles.pstatic.net/a.jpg", content.Images[0].SourceURL)
	assert.Equal(t, "bowl one", content.Images[0].AltText)
	assert.Equal(t, "https://postfiles.pstatic.net/b.png", content.Images[1].SourceURL)
	assert.Equal(t, []string{"ramen", "seoul"}, content.Tags)
}

func TestParseDocument_LegacyTemplateOnly(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
<html><body>
  <span class="pcol1">Old Post</span>
  <div id="postViewArea">written back in 2009</div>
</body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "Old Post", content.Title)
	assert.Equal(t, "written back in 2009", content.Body)
}

func TestParseDocument_SmartEditorTwo(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
<html><body>
  <div class="se_title">Middle Era</div>
  <div class="se_component_wrap"><span>se2 paragraph</span></div>
</body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "Middle Era", content.Title)
	assert.Equal(t, "se2 paragraph", content.Body)
}

func TestParseDocument_MissingTitleFallsBackToSentinel(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div class="se-main-container">body only</div></body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)
	assert.Equal(t, NoTitle, content.Title)
	assert.Equal(t, "body only", content.Body)
}

func TestParseDocument_EmptyBodyContainerIsNotAnError(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
<html><body>
  <div class="se-title-text">Photo Dump</div>
  <div class="se-main-container"><img src="https://postfiles.pstatic.net/only.jpg"></div>
</body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)
	assert.Equal(t, "Photo Dump", content.Title)
	assert.Empty(t, content.Body)
	require.Len(t, content.Images, 1)
}

func TestParseDocument_NoKnownContainers(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body><div class="totally-unknown">???</div></body></html>`)

	_, err := ParseDocument(doc, pageURL)
	require.Error(t, err)
	assert.Equal(t, KindUnexpectedStructure, KindOf(err))
	assert.False(t, IsRetryable(err))
}

func TestParseDocument_RelativeImageResolved(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `
<html><body>
  <div class="se-main-container">
    <p>text</p>
    <img src="/images/rel.jpg" alt="rel">
  </div>
</body></html>`)

	content, err := ParseDocument(doc, pageURL)
	require.NoError(t, err)
	require.Len(t, content.Images, 1)
	assert.Equal(t, "https://blog.naver.com/images/rel.jpg", content.Images[0].SourceURL)
}
