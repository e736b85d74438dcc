// Package scraper defines core types shared across subsystems.
package scraper

import "time"

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// NoTitle is stored when none of the title selectors match.
const NoTitle = "no title"

// PostReference is the canonical identity of a blog post, independent of
// which URL shape the caller supplied.
type PostReference struct {
	BlogID       string `json:"blog_id"`
	LogNo        string `json:"log_no"`
	CanonicalURL string `json:"canonical_url"`
}

// Key returns the storage key for the referenced post.
func (r PostReference) Key() string {
	return r.BlogID + "/" + r.LogNo
}

// ImageRef describes one embedded image. LocalPath and ByteSize are filled
// in by the materializer; a failed download leaves them zero.
type ImageRef struct {
	SourceURL string `json:"source_url"`
	AltText   string `json:"alt_text,omitempty"`
	LocalPath string `json:"local_path,omitempty"`
	ByteSize  int64  `json:"byte_size,omitempty"`
}

// ExtractedPost is the structured content pulled out of one post page.
type ExtractedPost struct {
	Reference     PostReference `json:"reference"`
	Title         string        `json:"title"`
	Author        string        `json:"author,omitempty"`
	PublishedDate string        `json:"published_date,omitempty"`
	Body          string        `json:"body"`
	Images        []ImageRef    `json:"images"`
	Tags          []string      `json:"tags,omitempty"`
	ExtractedAt   time.Time     `json:"extracted_at"`
}

// JobParameters captures per-job knobs requested by the client.
type JobParameters struct {
	URLs           []string `json:"urls"`
	DownloadImages bool     `json:"download_images"`
	OutputFormat   string   `json:"output_format"`
	MaxConcurrent  int      `json:"max_concurrent"`
	Headless       bool     `json:"headless"`
}

// URLOutcome is the terminal result for one submitted URL. Success carries
// the extracted post; failure carries a short classification, never a trace.
type URLOutcome struct {
	URL     string         `json:"url"`
	Success bool           `json:"success"`
	Post    *ExtractedPost `json:"post,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// JobCounters tracks aggregate progress for a job.
type JobCounters struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Completed reports how many URLs have reached a terminal outcome.
func (c JobCounters) Completed() int {
	return c.Succeeded + c.Failed
}

// Job is the metadata kept for each submitted scrape request. It is owned by
// the coordinator and mutated only through the job store.
type Job struct {
	ID         string                `json:"id"`
	Status     JobStatus             `json:"status"`
	Parameters JobParameters         `json:"parameters"`
	Outcomes   map[string]URLOutcome `json:"outcomes"`
	Counters   JobCounters           `json:"counters"`
	ErrorText  string                `json:"error_text,omitempty"`
	Created    time.Time             `json:"created_at"`
	Started    *time.Time            `json:"started_at,omitempty"`
	Finished   *time.Time            `json:"finished_at,omitempty"`
}

// Progress returns completed/total as a fraction in [0,1].
func (j Job) Progress() float64 {
	if j.Counters.Total == 0 {
		return 0
	}
	return float64(j.Counters.Completed()) / float64(j.Counters.Total)
}

// Terminal reports whether the job has finished.
func (j Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
