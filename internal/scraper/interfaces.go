package scraper

import (
	"context"
	"time"
)

// Extractor turns a canonical reference into structured post content.
type Extractor interface {
	Extract(ctx context.Context, ref PostReference) (ExtractedPost, error)
}

// Materializer downloads and persists the images referenced by a post.
// Individual image failures must never surface as an error; they leave the
// ref's LocalPath empty instead.
type Materializer interface {
	Materialize(ctx context.Context, refs []ImageRef, destKey string) []ImageRef
}

// JobStore persists job state. Implementations must be safe for concurrent
// use: outcome writes come from worker goroutines while status queries read.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, errText string) error
	RecordOutcome(ctx context.Context, jobID string, outcome URLOutcome) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	DeleteJob(ctx context.Context, jobID string) error
}

// PostStore persists extracted posts keyed by (blogID, logNo). Upsert
// overwrites any previous record for the same reference.
type PostStore interface {
	Upsert(ctx context.Context, post ExtractedPost) error
	Get(ctx context.Context, ref PostReference) (ExtractedPost, error)
}

// BlobStore writes raw artifacts (image bytes) and returns a URI or path.
type BlobStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes job completion events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Governor is the shared throttle in front of outbound navigations.
type Governor interface {
	Wait(ctx context.Context) error
}

// Clock returns the current time (injectable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewID() (string, error)
}
