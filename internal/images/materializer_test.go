package images

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
	"github.com/junhyukpark/naver-blog-scraper/internal/storage/memory"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestServer(t *testing.T, payloads map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := payloads[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMaterialize_SavesAndEnrichesRefs(t *testing.T) {
	t.Parallel()

	small := encodePNG(t, 10, 10)
	srv := newTestServer(t, map[string][]byte{"/a.png": small})
	store := memory.NewBlobStore()
	m := New(Config{}, store, nil)

	refs := []scraper.ImageRef{{SourceURL: srv.URL + "/a.png", AltText: "small"}}
	out := m.Materialize(context.Background(), refs, "foodlover/223456789012")

	require.Len(t, out, 1)
	assert.Equal(t, "foodlover/223456789012/image_000.png", out[0].LocalPath)
	assert.Equal(t, int64(len(small)), out[0].ByteSize)
	assert.Equal(t, "small", out[0].AltText)

	data, ok := store.Get("foodlover/223456789012/image_000.png")
	require.True(t, ok)
	assert.Equal(t, small, data)
}

func TestMaterialize_UnresolvableHostSkipsOnlyThatImage(t *testing.T) {
	t.Parallel()

	small := encodePNG(t, 8, 8)
	srv := newTestServer(t, map[string][]byte{"/ok.png": small})
	store := memory.NewBlobStore()
	m := New(Config{}, store, nil)

	refs := []scraper.ImageRef{
		{SourceURL: "http://host.invalid/broken.jpg"},
		{SourceURL: srv.URL + "/ok.png"},
	}
	out := m.Materialize(context.Background(), refs, "blog/1")

	require.Len(t, out, 2)
	assert.Empty(t, out[0].LocalPath)
	assert.Zero(t, out[0].ByteSize)
	assert.Equal(t, "blog/1/image_001.png", out[1].LocalPath)
}

func TestMaterialize_DownscalesOversizedImages(t *testing.T) {
	t.Parallel()

	big := encodePNG(t, 400, 100)
	srv := newTestServer(t, map[string][]byte{"/big.png": big})
	store := memory.NewBlobStore()
	m := New(Config{MaxDimension: 200}, store, nil)

	out := m.Materialize(context.Background(), []scraper.ImageRef{{SourceURL: srv.URL + "/big.png"}}, "blog/2")

	require.Len(t, out, 1)
	assert.Equal(t, "blog/2/image_000.jpg", out[0].LocalPath)

	data, ok := store.Get("blog/2/image_000.jpg")
	require.True(t, ok)
	decoded, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 50, decoded.Bounds().Dy())
}

func TestMaterialize_DeduplicatesIdenticalPayloads(t *testing.T) {
	t.Parallel()

	small := encodePNG(t, 12, 12)
	srv := newTestServer(t, map[string][]byte{"/one.png": small, "/two.png": small})
	store := memory.NewBlobStore()
	m := New(Config{}, store, nil)

	refs := []scraper.ImageRef{
		{SourceURL: srv.URL + "/one.png"},
		{SourceURL: srv.URL + "/two.png"},
	}
	out := m.Materialize(context.Background(), refs, "blog/3")

	require.Len(t, out, 2)
	assert.Equal(t, out[0].LocalPath, out[1].LocalPath)
	assert.Equal(t, 1, store.Count())
}

func TestMaterialize_UndecodablePayloadStoredVerbatim(t *testing.T) {
	t.Parallel()

	// RIFF/WEBP magic followed by junk: sniffable, not decodable.
	webp := append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), bytes.Repeat([]byte{0x1}, 64)...)
	srv := newTestServer(t, map[string][]byte{"/pic.webp": webp})
	store := memory.NewBlobStore()
	m := New(Config{MaxDimension: 10}, store, nil)

	out := m.Materialize(context.Background(), []scraper.ImageRef{{SourceURL: srv.URL + "/pic.webp"}}, "blog/4")

	require.Len(t, out, 1)
	assert.Equal(t, "blog/4/image_000.webp", out[0].LocalPath)
	data, ok := store.Get("blog/4/image_000.webp")
	require.True(t, ok)
	assert.Equal(t, webp, data)
}
