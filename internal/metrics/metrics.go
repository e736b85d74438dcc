// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	postsScrapedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_posts_total",
			Help: "Total posts processed, labeled by outcome (ok or a failure kind).",
		},
		[]string{"outcome"},
	)

	extractDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_extract_duration_seconds",
			Help:    "Histogram of single-post extraction latencies.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
	)

	governorWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_governor_wait_seconds",
			Help:    "Histogram of time spent waiting on the shared rate governor.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		},
	)

	imagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_images_total",
			Help: "Total image downloads, labeled by result (saved, deduped, failed).",
		},
		[]string{"result"},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_jobs_total",
			Help: "Total jobs reaching a terminal status, labeled by status.",
		},
		[]string{"status"},
	)

	activeExtractions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scraper_active_extractions",
			Help: "Number of URL extractions currently in flight.",
		},
	)
)

// Handler returns an http.Handler exposing the Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePost records the outcome of one URL extraction.
func ObservePost(outcome string, duration time.Duration) {
	postsScrapedTotal.WithLabelValues(outcome).Inc()
	extractDurationSeconds.Observe(duration.Seconds())
}

// ObserveGovernorWait records time spent queued behind the rate governor.
func ObserveGovernorWait(duration time.Duration) {
	governorWaitSeconds.Observe(duration.Seconds())
}

// ObserveImage records one image download result.
func ObserveImage(result string) {
	imagesTotal.WithLabelValues(result).Inc()
}

// ObserveJob records a job reaching a terminal status.
func ObserveJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveExtractions increments the in-flight extraction gauge.
func IncActiveExtractions() {
	activeExtractions.Inc()
}

// DecActiveExtractions decrements the in-flight extraction gauge.
func DecActiveExtractions() {
	activeExtractions.Dec()
}
