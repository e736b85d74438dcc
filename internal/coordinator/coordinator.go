// Package coordinator owns the scrape job lifecycle: it validates
// submissions, fans URLs out to the extractor under a concurrency cap, and
// records per-URL outcomes so callers can poll progress.
package coordinator

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/junhyukpark/naver-blog-scraper/internal/metrics"
	"github.com/junhyukpark/naver-blog-scraper/internal/scraper"
)

// DefaultMaxConcurrent caps per-job parallelism when the submission does not
// ask for a value.
const DefaultMaxConcurrent = 3

// Config controls coordinator behavior.
type Config struct {
	MaxConcurrent int
	Topic         string
	RetryPolicy   scraper.RetryPolicy
}

// JobEvent is published when a job reaches a terminal status.
type JobEvent struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

type runningJob struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Coordinator runs scrape jobs. All mutation of job state goes through the
// job store; the coordinator only keeps cancel handles for live jobs.
type Coordinator struct {
	cfg          Config
	extractor    scraper.Extractor
	materializer scraper.Materializer
	jobs         scraper.JobStore
	posts        scraper.PostStore
	publisher    scraper.Publisher
	governor     scraper.Governor
	clock        scraper.Clock
	ids          scraper.IDGenerator
	logger       *zap.Logger

	mu      sync.Mutex
	active  map[string]*runningJob
	closing bool
}

// New wires a Coordinator. Materializer, publisher, and governor may be nil
// when the corresponding feature is disabled.
func New(
	cfg Config,
	extractor scraper.Extractor,
	materializer scraper.Materializer,
	jobs scraper.JobStore,
	posts scraper.PostStore,
	publisher scraper.Publisher,
	governor scraper.Governor,
	clock scraper.Clock,
	ids scraper.IDGenerator,
	logger *zap.Logger,
) *Coordinator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.RetryPolicy.MaxAttempts <= 0 {
		cfg.RetryPolicy = scraper.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		cfg:          cfg,
		extractor:    extractor,
		materializer: materializer,
		jobs:         jobs,
		posts:        posts,
		publisher:    publisher,
		governor:     governor,
		clock:        clock,
		ids:          ids,
		logger:       logger,
		active:       make(map[string]*runningJob),
	}
}

type target struct {
	rawURL string
	ref    scraper.PostReference
}

// Submit validates the submission, creates a pending job, and starts it in
// the background. URLs that fail normalization are recorded as failed
// outcomes immediately; at least one URL must normalize or the whole
// submission is rejected.
func (c *Coordinator) Submit(ctx context.Context, params scraper.JobParameters) (string, error) {
	if len(params.URLs) == 0 {
		return "", scraper.NewError(scraper.KindJobSubmission, "no URLs submitted", nil)
	}

	var (
		targets []target
		invalid []scraper.URLOutcome
	)
	for _, rawURL := range params.URLs {
		ref, err := scraper.Normalize(rawURL)
		if err != nil {
			invalid = append(invalid, scraper.URLOutcome{
				URL:     rawURL,
				Success: false,
				Error:   scraper.FailureReason(err),
			})
			continue
		}
		targets = append(targets, target{rawURL: rawURL, ref: ref})
	}
	if len(targets) == 0 {
		return "", scraper.NewError(scraper.KindJobSubmission, "no submitted URL is a recognizable blog post", nil)
	}

	jobID, err := c.ids.NewID()
	if err != nil {
		return "", scraper.NewError(scraper.KindJobSubmission, "generate job id", err)
	}

	job := scraper.Job{
		ID:         jobID,
		Status:     scraper.JobStatusPending,
		Parameters: params,
		Outcomes:   make(map[string]scraper.URLOutcome),
		Counters:   scraper.JobCounters{Total: len(params.URLs)},
		Created:    c.clock.Now(),
	}
	if err := c.jobs.CreateJob(ctx, job); err != nil {
		return "", scraper.NewError(scraper.KindJobSubmission, "create job", err)
	}
	for _, outcome := range invalid {
		if err := c.jobs.RecordOutcome(ctx, jobID, outcome); err != nil {
			c.logger.Warn("record invalid outcome", zap.String("job_id", jobID), zap.Error(err))
		}
	}

	// The run context is detached from the submission request: the job
	// outlives the HTTP call that created it.
	runCtx, cancel := context.WithCancel(context.Background())
	handle := &runningJob{cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		cancel()
		return "", scraper.NewError(scraper.KindJobSubmission, "coordinator is shutting down", nil)
	}
	c.active[jobID] = handle
	c.mu.Unlock()

	go c.run(runCtx, handle, jobID, params, targets)
	return jobID, nil
}

func (c *Coordinator) run(ctx context.Context, handle *runningJob, jobID string, params scraper.JobParameters, targets []target) {
	defer close(handle.done)
	defer func() {
		c.mu.Lock()
		delete(c.active, jobID)
		c.mu.Unlock()
	}()

	if err := c.jobs.UpdateJobStatus(ctx, jobID, scraper.JobStatusRunning, ""); err != nil {
		c.logger.Error("mark job running", zap.String("job_id", jobID), zap.Error(err))
	}

	limit := params.MaxConcurrent
	if limit <= 0 || limit > c.cfg.MaxConcurrent {
		limit = c.cfg.MaxConcurrent
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, tgt := range targets {
		tgt := tgt
		g.Go(func() error {
			c.processTarget(gctx, jobID, params, tgt)
			return nil
		})
	}
	_ = g.Wait()

	status := scraper.JobStatusCompleted
	errText := ""
	if ctx.Err() != nil {
		status = scraper.JobStatusFailed
		errText = "job canceled"
	}
	// Terminal bookkeeping runs on a fresh context so cancellation does not
	// lose the final status.
	finishCtx := context.Background()
	if err := c.jobs.UpdateJobStatus(finishCtx, jobID, status, errText); err != nil {
		c.logger.Error("mark job terminal", zap.String("job_id", jobID), zap.Error(err))
	}
	metrics.ObserveJob(string(status))

	job, err := c.jobs.GetJob(finishCtx, jobID)
	if err != nil {
		c.logger.Warn("load finished job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	c.logger.Info("job finished",
		zap.String("job_id", jobID),
		zap.String("status", string(status)),
		zap.Int("succeeded", job.Counters.Succeeded),
		zap.Int("failed", job.Counters.Failed),
	)
	if c.publisher != nil {
		event := JobEvent{
			JobID:     jobID,
			Status:    string(status),
			Total:     job.Counters.Total,
			Succeeded: job.Counters.Succeeded,
			Failed:    job.Counters.Failed,
		}
		if _, err := c.publisher.Publish(finishCtx, c.cfg.Topic, event); err != nil {
			c.logger.Warn("publish job event", zap.String("job_id", jobID), zap.Error(err))
		}
	}
}

func (c *Coordinator) processTarget(ctx context.Context, jobID string, params scraper.JobParameters, tgt target) {
	post, err := c.scrapeOne(ctx, tgt.ref, params.DownloadImages)
	outcome := scraper.URLOutcome{URL: tgt.rawURL}
	if err != nil {
		outcome.Error = scraper.FailureReason(err)
		c.logger.Warn("url failed",
			zap.String("job_id", jobID),
			zap.String("url", tgt.rawURL),
			zap.String("reason", outcome.Error),
		)
	} else {
		outcome.Success = true
		outcome.Post = &post
	}
	if err := c.jobs.RecordOutcome(context.Background(), jobID, outcome); err != nil {
		c.logger.Error("record outcome", zap.String("job_id", jobID), zap.Error(err))
	}
}

// scrapeOne waits on the governor, extracts with retries, materializes
// images, and persists the post.
func (c *Coordinator) scrapeOne(ctx context.Context, ref scraper.PostReference, downloadImages bool) (scraper.ExtractedPost, error) {
	if c.governor != nil {
		waitStart := c.clock.Now()
		if err := c.governor.Wait(ctx); err != nil {
			return scraper.ExtractedPost{}, err
		}
		metrics.ObserveGovernorWait(c.clock.Now().Sub(waitStart))
	}

	metrics.IncActiveExtractions()
	start := c.clock.Now()
	post, err := scraper.Retry(ctx, c.cfg.RetryPolicy, c.logger, func(ctx context.Context) (scraper.ExtractedPost, error) {
		return c.extractor.Extract(ctx, ref)
	})
	duration := c.clock.Now().Sub(start)
	metrics.DecActiveExtractions()
	if err != nil {
		metrics.ObservePost(scraper.FailureReason(err), duration)
		return scraper.ExtractedPost{}, err
	}
	metrics.ObservePost("ok", duration)

	if downloadImages && c.materializer != nil && len(post.Images) > 0 {
		post.Images = c.materializer.Materialize(ctx, post.Images, ref.Key())
	}
	if err := c.posts.Upsert(ctx, post); err != nil {
		c.logger.Warn("persist post", zap.String("post", ref.Key()), zap.Error(err))
	}
	return post, nil
}

// ExtractOne scrapes a single URL synchronously, outside any job. Used by
// the one-shot API endpoint and the CLI.
func (c *Coordinator) ExtractOne(ctx context.Context, rawURL string, downloadImages bool) (scraper.ExtractedPost, error) {
	ref, err := scraper.Normalize(rawURL)
	if err != nil {
		return scraper.ExtractedPost{}, err
	}
	return c.scrapeOne(ctx, ref, downloadImages)
}

// Status returns the current job snapshot.
func (c *Coordinator) Status(ctx context.Context, jobID string) (scraper.Job, error) {
	return c.jobs.GetJob(ctx, jobID)
}

// Result returns the successfully extracted posts in submission order.
func (c *Coordinator) Result(ctx context.Context, jobID string) (scraper.Job, []scraper.ExtractedPost, error) {
	job, err := c.jobs.GetJob(ctx, jobID)
	if err != nil {
		return scraper.Job{}, nil, err
	}
	posts := make([]scraper.ExtractedPost, 0, job.Counters.Succeeded)
	for _, rawURL := range job.Parameters.URLs {
		outcome, ok := job.Outcomes[rawURL]
		if ok && outcome.Success && outcome.Post != nil {
			posts = append(posts, *outcome.Post)
		}
	}
	return job, posts, nil
}

// Delete cancels the job if it is still running, waits for in-flight URLs
// to drain, and removes it from the store.
func (c *Coordinator) Delete(ctx context.Context, jobID string) error {
	c.mu.Lock()
	handle := c.active[jobID]
	c.mu.Unlock()

	if handle != nil {
		handle.cancel()
		select {
		case <-handle.done:
		case <-ctx.Done():
			return fmt.Errorf("wait for job drain: %w", ctx.Err())
		}
	}
	return c.jobs.DeleteJob(ctx, jobID)
}

// Close cancels all running jobs and waits for them to drain.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closing = true
	handles := make([]*runningJob, 0, len(c.active))
	for _, h := range c.active {
		handles = append(handles, h)
	}
	c.mu.Unlock()

	for _, h := range handles {
		h.cancel()
	}
	for _, h := range handles {
		<-h.done
	}
}
