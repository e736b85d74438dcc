package extractor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

func TestResolveFrameURL(t *testing.T) {
	t.Parallel()

	page := "https://blog.naver.com/foodlover/223456789012"

	cases := []struct {
		name string
		src  string
		want string
	}{
		{"absolute", "https://blog.naver.com/PostView.naver?blogId=foodlover&logNo=223456789012", "https://blog.naver.com/PostView.naver?blogId=foodlover&logNo=223456789012"},
		{"relative", "/PostView.naver?blogId=foodlover&logNo=223456789012", "https://blog.naver.com/PostView.naver?blogId=foodlover&logNo=223456789012"},
		{"empty", "", ""},
		{"whitespace", "   ", ""},
		{"javascript", "javascript:void(0)", ""},
		{"about blank", "about:blank", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, resolveFrameURL(page, tc.src))
		})
	}
}

func TestClassifyNavError(t *testing.T) {
	t.Parallel()

	err := classifyNavError("https://blog.naver.com/a/1", context.DeadlineExceeded)
	assert.Equal(t, scraper.KindNavigationTimeout, scraper.KindOf(err))
	assert.True(t, scraper.IsRetryable(err))

	err = classifyNavError("https://blog.naver.com/a/1", errors.New("net::ERR_CONNECTION_REFUSED"))
	assert.Equal(t, scraper.KindNavigationTimeout, scraper.KindOf(err))
	assert.True(t, scraper.IsRetryable(err))
}

func TestNewChromedp_RejectsNegativeParallel(t *testing.T) {
	t.Parallel()

	_, err := NewChromedp(Config{MaxParallel: -1}, nil, nil)
	require.Error(t, err)
}

func TestAcquireRelease_Bounded(t *testing.T) {
	t.Parallel()

	e := &Chromedp{limiter: make(chan struct{}, 1)}
	require.NoError(t, e.acquire(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := e.acquire(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	e.release()
	require.NoError(t, e.acquire(context.Background()))
	e.release()
}
