package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesCollectors(t *testing.T) {
	ObservePost("ok", 1200*time.Millisecond)
	ObservePost("navigation_timeout", 10*time.Second)
	ObserveGovernorWait(2 * time.Second)
	ObserveImage("saved")
	ObserveImage("failed")
	ObserveJob("completed")
	IncActiveExtractions()
	DecActiveExtractions()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "scraper_posts_total")
	assert.Contains(t, body, "scraper_images_total")
	assert.Contains(t, body, "scraper_jobs_total")
	assert.Contains(t, body, "scraper_governor_wait_seconds")
}
